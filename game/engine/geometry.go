package engine

// Rect is an axis-aligned bounding box
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Intersects reports strict overlap; rectangles that only share an edge do
// not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W &&
		r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Contains reports whether p lies inside r
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// CellOrigin returns the resting position of a tile placed in c
func (l Layout) CellOrigin(c Cell) Point {
	return Point{
		X: l.OriginX + float64(c.Col)*l.CellWidth,
		Y: l.OriginY + float64(c.Row)*l.CellHeight,
	}
}

// CellBounds returns the area a resting tile covers in c
func (l Layout) CellBounds(c Cell) Rect {
	p := l.CellOrigin(c)
	return Rect{X: p.X, Y: p.Y, W: l.TileWidth, H: l.TileHeight}
}

// TileBounds returns the area a tile covers at its current position
func (l Layout) TileBounds(t *Tile) Rect {
	return Rect{X: t.Pos.X, Y: t.Pos.Y, W: l.TileWidth, H: l.TileHeight}
}

// DropTargetFinder resolves which tile, if any, a dragged tile was dropped on.
// It returns at most one tile and never the dragged tile itself.
type DropTargetFinder interface {
	FindDropTarget(g *Grid, dragged *Tile, bounds Rect) (*Tile, bool)
}

// CellOverlapFinder compares the dragged tile's bounds against the cell each
// other tile occupies. When several cells overlap, the tile with the lowest ID
// wins.
type CellOverlapFinder struct {
	Layout Layout
}

// FindDropTarget implements DropTargetFinder
func (f CellOverlapFinder) FindDropTarget(g *Grid, dragged *Tile, bounds Rect) (*Tile, bool) {
	for _, t := range g.Tiles {
		if t.ID == dragged.ID {
			continue
		}
		if bounds.Intersects(f.Layout.CellBounds(t.Cell)) {
			return t, true
		}
	}
	return nil, false
}
