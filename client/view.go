package client

import (
	"sync"

	"github.com/wricardo/adventure-games/game/engine"
)

type heldTile struct {
	id     int
	offset engine.Point // cursor minus tile corner at grab time
	pos    engine.Point
}

// BoardView is the host's local copy of a board. Server states replace it
// wholesale; the tile under the cursor is tracked locally so it follows the
// pointer without waiting for a round trip.
type BoardView struct {
	mu     sync.RWMutex
	state  *engine.GameState
	layout engine.Layout
	finder engine.DropTargetFinder
	held   *heldTile
}

func NewBoardView(layout engine.Layout) *BoardView {
	return &BoardView{
		layout: layout,
		finder: engine.CellOverlapFinder{Layout: layout},
	}
}

// Apply installs a state received from the server. A held tile stays held
// while the server still reports it as dragging.
func (v *BoardView) Apply(state *engine.GameState) {
	if state == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = state
	if v.held == nil {
		return
	}
	if !state.Interactive || v.held.id >= len(state.Tiles) {
		v.held = nil
	}
}

// State returns the last applied server state
func (v *BoardView) State() *engine.GameState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func (v *BoardView) Layout() engine.Layout { return v.layout }

func (v *BoardView) tilePos(t *engine.Tile) engine.Point {
	if v.held != nil && v.held.id == t.ID {
		return v.held.pos
	}
	if t.State == engine.AtRest {
		return v.layout.CellOrigin(t.Cell)
	}
	return t.Pos
}

// TilePos returns where a tile should be drawn
func (v *BoardView) TilePos(id int) (engine.Point, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.state == nil || id < 0 || id >= len(v.state.Tiles) {
		return engine.Point{}, false
	}
	return v.tilePos(&v.state.Tiles[id]), true
}

// TileAt hit-tests p. The held tile is on top; among resting tiles the
// highest ID wins, matching draw order.
func (v *BoardView) TileAt(p engine.Point) (int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.tileAt(p)
}

func (v *BoardView) tileAt(p engine.Point) (int, bool) {
	if v.state == nil {
		return 0, false
	}
	if v.held != nil {
		at := v.held.pos
		if (engine.Rect{X: at.X, Y: at.Y, W: v.layout.TileWidth, H: v.layout.TileHeight}).Contains(p) {
			return v.held.id, true
		}
	}
	for i := len(v.state.Tiles) - 1; i >= 0; i-- {
		t := &v.state.Tiles[i]
		at := v.tilePos(t)
		if (engine.Rect{X: at.X, Y: at.Y, W: v.layout.TileWidth, H: v.layout.TileHeight}).Contains(p) {
			return t.ID, true
		}
	}
	return 0, false
}

// Grab picks up the tile under p when the board accepts input
func (v *BoardView) Grab(p engine.Point) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == nil || !v.state.Interactive || v.held != nil {
		return 0, false
	}
	id, ok := v.tileAt(p)
	if !ok || !v.state.Tiles[id].Interactive {
		return 0, false
	}
	at := v.tilePos(&v.state.Tiles[id])
	v.held = &heldTile{
		id:     id,
		offset: engine.Point{X: p.X - at.X, Y: p.Y - at.Y},
		pos:    at,
	}
	return id, true
}

// MoveTo drags the held tile so the grab point follows the cursor and
// returns the tile's new top-left corner
func (v *BoardView) MoveTo(p engine.Point) (int, engine.Point, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.held == nil {
		return 0, engine.Point{}, false
	}
	v.held.pos = engine.Point{X: p.X - v.held.offset.X, Y: p.Y - v.held.offset.Y}
	return v.held.id, v.held.pos, true
}

// Release lets go of the held tile
func (v *BoardView) Release() (int, engine.Point, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.held == nil {
		return 0, engine.Point{}, false
	}
	h := v.held
	v.held = nil
	return h.id, h.pos, true
}

// Held reports the tile being dragged, if any
func (v *BoardView) Held() (int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.held == nil {
		return 0, false
	}
	return v.held.id, true
}

// HoverTarget returns the tile the held tile would swap with if dropped now
func (v *BoardView) HoverTarget() (int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.state == nil || v.held == nil {
		return 0, false
	}

	grid := &engine.Grid{Columns: v.state.Columns, Tiles: make([]*engine.Tile, len(v.state.Tiles))}
	for i := range v.state.Tiles {
		t := v.state.Tiles[i]
		grid.Tiles[i] = &t
	}
	dragged := grid.Tiles[v.held.id]
	bounds := engine.Rect{X: v.held.pos.X, Y: v.held.pos.Y, W: v.layout.TileWidth, H: v.layout.TileHeight}
	target, ok := v.finder.FindDropTarget(grid, dragged, bounds)
	if !ok {
		return 0, false
	}
	return target.ID, true
}

// DrawOrder lists tiles bottom to top: resting tiles by ID, the held tile last
func (v *BoardView) DrawOrder() []engine.Tile {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.state == nil {
		return nil
	}
	out := make([]engine.Tile, 0, len(v.state.Tiles))
	var top *engine.Tile
	for i := range v.state.Tiles {
		t := v.state.Tiles[i]
		t.Pos = v.tilePos(&t)
		if v.held != nil && v.held.id == t.ID {
			top = &t
			continue
		}
		out = append(out, t)
	}
	if top != nil {
		out = append(out, *top)
	}
	return out
}
