package main

import (
	"math/rand"
	"testing"

	"github.com/wricardo/adventure-games/game/engine"
)

func shuffledState(t *testing.T, seed int64) *engine.GameState {
	t.Helper()
	symbols, err := engine.Symbols(engine.Letters)
	if err != nil {
		t.Fatal(err)
	}
	grid := engine.NewGrid(symbols, 13, rand.New(rand.NewSource(seed)))
	return stateOf(grid)
}

func stateOf(grid *engine.Grid) *engine.GameState {
	state := &engine.GameState{Columns: grid.Columns, TotalTiles: grid.Size(), Phase: engine.PhaseRunning}
	for _, t := range grid.Tiles {
		state.Tiles = append(state.Tiles, *t)
	}
	return state
}

// apply plays a move on a local grid the way the server would
func apply(t *testing.T, state *engine.GameState, move Move) {
	t.Helper()
	a, b := &state.Tiles[move.TileID], &state.Tiles[move.TargetID]
	if b.Cell != move.Cell {
		t.Fatalf("move targets cell %+v but tile %d sits at %+v", move.Cell, b.ID, b.Cell)
	}
	a.Cell, b.Cell = b.Cell, a.Cell
}

func solved(state *engine.GameState) bool {
	for _, tile := range state.Tiles {
		if tile.Cell != homeCell(state, tile.Rank) {
			return false
		}
	}
	return true
}

func TestSystematicStrategy_SolvesWithinBound(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		state := shuffledState(t, seed)
		strategy := NewSystematicStrategy()

		moves := 0
		for {
			move, ok := strategy.NextMove(state)
			if !ok {
				break
			}
			apply(t, state, move)
			moves++
			if moves > len(state.Tiles) {
				t.Fatalf("seed %d: no progress after %d moves", seed, moves)
			}
		}

		if !solved(state) {
			t.Errorf("seed %d: board not solved", seed)
		}
		if moves > len(state.Tiles)-1 {
			t.Errorf("seed %d: used %d swaps, want at most %d", seed, moves, len(state.Tiles)-1)
		}
	}
}

func TestSystematicStrategy_SortedBoard(t *testing.T) {
	symbols, _ := engine.Symbols(engine.Numbers)
	state := stateOf(engine.NewSortedGrid(symbols, 10))

	if _, ok := NewSystematicStrategy().NextMove(state); ok {
		t.Error("Expected no move on a sorted board")
	}
	if _, ok := NewSystematicStrategy().NextMove(nil); ok {
		t.Error("Expected no move without a state")
	}
}

func TestSystematicStrategy_FirstWrongCell(t *testing.T) {
	symbols, _ := engine.Symbols(engine.Numbers)
	grid := engine.NewSortedGrid(symbols, 10)
	// put 5 where 3 belongs
	grid.Swap(2, 4)

	move, ok := NewSystematicStrategy().NextMove(stateOf(grid))
	if !ok {
		t.Fatal("Expected a move")
	}
	if move.TileID != 2 || move.TargetID != 4 || move.Cell != (engine.Cell{Row: 0, Col: 2}) {
		t.Errorf("Unexpected move %+v", move)
	}
}

func TestRandomStrategy_EventuallySolves(t *testing.T) {
	state := shuffledState(t, 99)
	strategy := NewRandomStrategy(5)

	for moves := 0; moves < 20000; moves++ {
		move, ok := strategy.NextMove(state)
		if !ok {
			if !solved(state) {
				t.Fatal("Strategy stopped on an unsolved board")
			}
			return
		}
		if move.TileID == move.TargetID {
			t.Fatalf("Strategy swapped tile %d with itself", move.TileID)
		}
		apply(t, state, move)
	}
	t.Fatal("Random strategy did not solve the board")
}
