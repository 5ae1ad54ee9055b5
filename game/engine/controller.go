package engine

import (
	"errors"
	"fmt"
)

var (
	ErrTileNotInteractive = errors.New("tile is not interactive")
	ErrTileNotDragging    = errors.New("tile is not being dragged")
	ErrSameTile           = errors.New("cannot swap a tile with itself")
)

// DropResult describes how a drag ended
type DropResult struct {
	TileID   int  `json:"tile_id"`
	Swapped  bool `json:"swapped"`
	TargetID *int `json:"target_id,omitempty"`
	FromCell Cell `json:"from_cell"`
	ToCell   Cell `json:"to_cell"`
}

// DragController turns pointer gestures into committed swaps. Positions
// change continuously while dragging but cells only change on drop.
type DragController struct {
	grid   *Grid
	layout Layout
	finder DropTargetFinder
	disp   *Dispatcher
	subs   []*Subscription

	// hooks into the owning engine
	onStart  func(t *Tile)
	onCommit func(t, target *Tile, from Cell)
	onRevert func(t *Tile)

	lastDrop *DropResult
}

// NewDragController creates a detached controller
func NewDragController(grid *Grid, layout Layout, finder DropTargetFinder, disp *Dispatcher) *DragController {
	if finder == nil {
		finder = CellOverlapFinder{Layout: layout}
	}
	return &DragController{
		grid:   grid,
		layout: layout,
		finder: finder,
		disp:   disp,
	}
}

// Attach subscribes the controller to drag events. Attaching twice keeps a
// single set of subscriptions.
func (c *DragController) Attach() {
	if len(c.subs) > 0 {
		return
	}
	c.subs = []*Subscription{
		c.disp.On(PointerDragStart, c.handleDragStart),
		c.disp.On(PointerDrag, c.handleDrag),
		c.disp.On(PointerDragEnd, c.handleDragEnd),
	}
}

// Detach cancels the controller's subscriptions
func (c *DragController) Detach() {
	for _, s := range c.subs {
		s.Cancel()
	}
	c.subs = nil
}

// Attached reports whether the controller is receiving events
func (c *DragController) Attached() bool {
	return len(c.subs) > 0
}

// SetGrid points the controller at a new tile set
func (c *DragController) SetGrid(g *Grid) {
	c.grid = g
}

// LastDrop returns the outcome of the most recent drag end
func (c *DragController) LastDrop() *DropResult {
	return c.lastDrop
}

// SnapAll moves every tile to the resting position of its cell
func (c *DragController) SnapAll() {
	for _, t := range c.grid.Tiles {
		t.Pos = c.layout.CellOrigin(t.Cell)
		t.State = AtRest
	}
}

// SetInteractive enables or disables dragging for every tile. Disabling
// drops any tile in flight back to its cell.
func (c *DragController) SetInteractive(on bool) {
	for _, t := range c.grid.Tiles {
		t.Interactive = on
		if !on && t.State == Dragging {
			t.State = AtRest
			t.Pos = c.layout.CellOrigin(t.Cell)
		}
	}
}

func (c *DragController) interactiveTile(id int) (*Tile, error) {
	t, err := c.grid.Tile(id)
	if err != nil {
		return nil, err
	}
	if !t.Interactive {
		return nil, fmt.Errorf("%w: %d", ErrTileNotInteractive, id)
	}
	return t, nil
}

func (c *DragController) handleDragStart(ev PointerEvent) error {
	t, err := c.interactiveTile(ev.TileID)
	if err != nil {
		return err
	}
	t.State = Dragging
	if c.onStart != nil {
		c.onStart(t)
	}
	return nil
}

func (c *DragController) handleDrag(ev PointerEvent) error {
	t, err := c.grid.Tile(ev.TileID)
	if err != nil {
		return err
	}
	if t.State != Dragging {
		return fmt.Errorf("%w: %d", ErrTileNotDragging, ev.TileID)
	}
	t.Pos = Point{X: ev.X, Y: ev.Y}
	return nil
}

func (c *DragController) handleDragEnd(ev PointerEvent) error {
	t, err := c.grid.Tile(ev.TileID)
	if err != nil {
		return err
	}
	if t.State != Dragging {
		return fmt.Errorf("%w: %d", ErrTileNotDragging, ev.TileID)
	}
	if ev.HasPos {
		t.Pos = Point{X: ev.X, Y: ev.Y}
	}

	from := t.Cell
	result := &DropResult{TileID: t.ID, FromCell: from, ToCell: from}

	target, ok := c.finder.FindDropTarget(c.grid, t, c.layout.TileBounds(t))
	t.State = AtRest
	if ok {
		c.commit(t, target)
		id := target.ID
		result.Swapped = true
		result.TargetID = &id
		result.ToCell = t.Cell
	} else {
		t.Pos = c.layout.CellOrigin(t.Cell)
		if c.onRevert != nil {
			c.onRevert(t)
		}
	}

	c.lastDrop = result
	return nil
}

// SwapTiles commits a swap without a drag gesture
func (c *DragController) SwapTiles(a, b int) (*DropResult, error) {
	if !c.Attached() {
		return nil, ErrInputDetached
	}
	if a == b {
		return nil, ErrSameTile
	}
	ta, err := c.interactiveTile(a)
	if err != nil {
		return nil, err
	}
	tb, err := c.interactiveTile(b)
	if err != nil {
		return nil, err
	}
	if c.onStart != nil {
		c.onStart(ta)
	}
	from := ta.Cell
	c.commit(ta, tb)
	id := tb.ID
	return &DropResult{TileID: ta.ID, Swapped: true, TargetID: &id, FromCell: from, ToCell: ta.Cell}, nil
}

func (c *DragController) commit(t, target *Tile) {
	from := t.Cell
	// both IDs come from the grid, so Swap cannot fail here
	_ = c.grid.Swap(t.ID, target.ID)
	t.Pos = c.layout.CellOrigin(t.Cell)
	target.Pos = c.layout.CellOrigin(target.Cell)
	if c.onCommit != nil {
		c.onCommit(t, target, from)
	}
}
