package main

import (
	"math/rand"

	"github.com/wricardo/adventure-games/game/engine"
)

// Move is one swap a strategy wants to make: tile TileID goes to Cell,
// trading places with TargetID
type Move struct {
	TileID   int
	TargetID int
	Cell     engine.Cell
}

// Strategy picks the next swap for a board
type Strategy interface {
	NextMove(state *engine.GameState) (Move, bool)
	Reset()
}

// occupants maps each row-major cell index to the tile ID resting there
func occupants(state *engine.GameState) []int {
	out := make([]int, len(state.Tiles))
	for _, t := range state.Tiles {
		if idx := t.Cell.Row*state.Columns + t.Cell.Col; idx >= 0 && idx < len(out) {
			out[idx] = t.ID
		}
	}
	return out
}

func homeCell(state *engine.GameState, rank int) engine.Cell {
	return engine.Cell{Row: rank / state.Columns, Col: rank % state.Columns}
}

// SystematicStrategy fills cells in order: the first cell holding the wrong
// tile receives its own tile. It never needs more than n-1 swaps.
type SystematicStrategy struct{}

func NewSystematicStrategy() *SystematicStrategy {
	return &SystematicStrategy{}
}

func (s *SystematicStrategy) NextMove(state *engine.GameState) (Move, bool) {
	if state == nil || state.Columns <= 0 {
		return Move{}, false
	}
	cells := occupants(state)
	for rank, occupant := range cells {
		if state.Tiles[occupant].Rank == rank {
			continue
		}
		// tile IDs equal ranks
		return Move{TileID: rank, TargetID: occupant, Cell: homeCell(state, rank)}, true
	}
	return Move{}, false
}

func (s *SystematicStrategy) Reset() {}

// RandomStrategy swaps a random misplaced tile into a random cell that is
// also wrong. It is the brute force baseline.
type RandomStrategy struct {
	rng *rand.Rand
}

func NewRandomStrategy(seed int64) *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomStrategy) NextMove(state *engine.GameState) (Move, bool) {
	if state == nil || state.Columns <= 0 {
		return Move{}, false
	}
	cells := occupants(state)
	var wrong []int
	for rank, occupant := range cells {
		if state.Tiles[occupant].Rank != rank {
			wrong = append(wrong, rank)
		}
	}
	if len(wrong) < 2 {
		return Move{}, false
	}

	i := s.rng.Intn(len(wrong))
	j := s.rng.Intn(len(wrong) - 1)
	if j >= i {
		j++
	}
	from, to := wrong[i], wrong[j]
	return Move{TileID: cells[from], TargetID: cells[to], Cell: homeCell(state, to)}, true
}

func (s *RandomStrategy) Reset() {}
