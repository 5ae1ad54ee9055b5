package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
)

var (
	ErrTileNotFound     = errors.New("tile not found")
	ErrUnknownSymbolSet = errors.New("unknown symbol set")
)

// Shuffler permutes n elements through swap. *rand.Rand satisfies it with a
// uniform Fisher-Yates shuffle.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultShuffler uses the process-wide random source
var DefaultShuffler Shuffler = globalShuffler{}

// Symbols returns the identities of a symbol set in natural order
func Symbols(set SymbolSet) ([]string, error) {
	switch set {
	case Letters:
		out := make([]string, 0, 26)
		for r := 'A'; r <= 'Z'; r++ {
			out = append(out, string(r))
		}
		return out, nil
	case Numbers:
		out := make([]string, 0, 20)
		for n := 1; n <= 20; n++ {
			out = append(out, strconv.Itoa(n))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSymbolSet, set)
	}
}

// Grid holds the tiles and the cells they occupy. Exactly one tile sits in
// each cell.
type Grid struct {
	Columns int
	Tiles   []*Tile
}

// NewGrid shuffles symbols and assigns them to cells in row-major order.
// Tile IDs follow the natural order of symbols, so tile i has rank i.
func NewGrid(symbols []string, columns int, shuffler Shuffler) *Grid {
	if shuffler == nil {
		shuffler = DefaultShuffler
	}

	order := make([]int, len(symbols))
	for i := range order {
		order[i] = i
	}
	shuffler.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	return newGridFromOrder(symbols, columns, order)
}

// NewSortedGrid places every symbol in its natural cell
func NewSortedGrid(symbols []string, columns int) *Grid {
	order := make([]int, len(symbols))
	for i := range order {
		order[i] = i
	}
	return newGridFromOrder(symbols, columns, order)
}

// newGridFromOrder puts tile order[k] into the k-th cell
func newGridFromOrder(symbols []string, columns int, order []int) *Grid {
	g := &Grid{
		Columns: columns,
		Tiles:   make([]*Tile, len(symbols)),
	}
	for i, sym := range symbols {
		g.Tiles[i] = &Tile{
			ID:          i,
			Symbol:      sym,
			Rank:        i,
			State:       AtRest,
			Interactive: true,
		}
	}
	for k, id := range order {
		g.Tiles[id].Cell = g.CellAt(k)
	}
	return g
}

// Size returns the number of tiles
func (g *Grid) Size() int {
	return len(g.Tiles)
}

// CellAt converts a row-major rank into a cell
func (g *Grid) CellAt(rank int) Cell {
	return Cell{Row: rank / g.Columns, Col: rank % g.Columns}
}

// RankOf converts a cell into its row-major rank
func (g *Grid) RankOf(c Cell) int {
	return c.Row*g.Columns + c.Col
}

// Tile returns the tile with the given ID
func (g *Grid) Tile(id int) (*Tile, error) {
	if id < 0 || id >= len(g.Tiles) {
		return nil, fmt.Errorf("%w: %d", ErrTileNotFound, id)
	}
	return g.Tiles[id], nil
}

// TileAt returns the tile occupying a cell, or nil
func (g *Grid) TileAt(c Cell) *Tile {
	for _, t := range g.Tiles {
		if t.Cell == c {
			return t
		}
	}
	return nil
}

// Swap exchanges the cells of two tiles. Both IDs are checked before either
// tile changes.
func (g *Grid) Swap(a, b int) error {
	ta, err := g.Tile(a)
	if err != nil {
		return err
	}
	tb, err := g.Tile(b)
	if err != nil {
		return err
	}
	ta.Cell, tb.Cell = tb.Cell, ta.Cell
	return nil
}

// IsBijection reports whether every cell in range holds exactly one tile
func (g *Grid) IsBijection() bool {
	seen := make([]bool, len(g.Tiles))
	for _, t := range g.Tiles {
		if t.Cell.Col < 0 || t.Cell.Col >= g.Columns || t.Cell.Row < 0 {
			return false
		}
		r := g.RankOf(t.Cell)
		if r >= len(seen) || seen[r] {
			return false
		}
		seen[r] = true
	}
	return true
}

// Arrangement returns the tile IDs in row-major cell order
func (g *Grid) Arrangement() []int {
	out := make([]int, len(g.Tiles))
	for _, t := range g.Tiles {
		if r := g.RankOf(t.Cell); r >= 0 && r < len(out) {
			out[r] = t.ID
		}
	}
	return out
}

// ValidationResult is the outcome of one validation pass
type ValidationResult struct {
	CorrectCount int          `json:"correct_count"`
	Total        int          `json:"total"`
	PerTile      map[int]bool `json:"per_tile"`
}

// Complete reports whether every tile is in its natural cell
func (r ValidationResult) Complete() bool {
	return r.Total > 0 && r.CorrectCount == r.Total
}

// Validate rescans every tile and records whether it sits in its natural
// cell. It reads committed cells only, never in-flight drag positions.
func (g *Grid) Validate() ValidationResult {
	res := ValidationResult{
		Total:   len(g.Tiles),
		PerTile: make(map[int]bool, len(g.Tiles)),
	}
	for _, t := range g.Tiles {
		t.Correct = t.Rank == g.RankOf(t.Cell)
		res.PerTile[t.ID] = t.Correct
		if t.Correct {
			res.CorrectCount++
		}
	}
	return res
}
