package engine

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidState = errors.New("invalid game state")

// GetState returns a snapshot of the session. The snapshot shares nothing
// with the engine.
func (e *GameEngine) GetState() *GameState {
	tiles := make([]Tile, len(e.grid.Tiles))
	correct := 0
	for i, t := range e.grid.Tiles {
		tiles[i] = *t
		if t.Correct {
			correct++
		}
	}

	state := &GameState{
		Tiles:             tiles,
		Columns:           e.grid.Columns,
		Phase:             e.phase,
		TimeLimitSeconds:  e.countdown.Limit(),
		RemainingSeconds:  e.remaining,
		TimerText:         e.timerText(e.remaining),
		CorrectCount:      correct,
		TotalTiles:        len(tiles),
		Interactive:       e.controller.Attached(),
		Message:           e.message,
		ConfigName:        e.config.Name,
		PendingChecks:     e.pendingChecks,
		SwapHistory:       append([]SwapHistoryEntry(nil), e.history...),
		TotalSwaps:        e.totalSwaps,
		CurrentSwaps:      append([]SwapHistoryEntry(nil), e.currentSwaps...),
		CurrentSwapsCount: len(e.currentSwaps),
	}
	if start, ok := e.countdown.StartedAt(); ok {
		state.StartedAt = &start
	}
	if !e.endedAt.IsZero() {
		ended := e.endedAt
		state.EndedAt = &ended
	}

	switch e.phase {
	case PhaseWon:
		state.Overlay = OverlayWin
		state.FinalTime = e.finalTime()
	case PhaseTimedOut:
		state.Overlay = OverlayTimeout
	}
	return state
}

// SetState restores a snapshot taken by GetState, typically after loading a
// session from disk. Tiles are matched by ID and must form a valid
// arrangement of this engine's symbol set.
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("%w: nil state", ErrInvalidState)
	}
	if len(state.Tiles) != len(e.symbols) {
		return fmt.Errorf("%w: expected %d tiles, got %d", ErrInvalidState, len(e.symbols), len(state.Tiles))
	}
	if state.Columns != 0 && state.Columns != e.config.Columns {
		return fmt.Errorf("%w: expected %d columns, got %d", ErrInvalidState, e.config.Columns, state.Columns)
	}

	grid := NewSortedGrid(e.symbols, e.config.Columns)
	seen := make([]bool, len(e.symbols))
	for _, st := range state.Tiles {
		t, err := grid.Tile(st.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		if seen[st.ID] {
			return fmt.Errorf("%w: duplicate tile %d", ErrInvalidState, st.ID)
		}
		seen[st.ID] = true
		if st.Symbol != t.Symbol {
			return fmt.Errorf("%w: tile %d is %q, not %q", ErrInvalidState, st.ID, t.Symbol, st.Symbol)
		}
		t.Cell = st.Cell
		t.Correct = st.Correct
	}
	if !grid.IsBijection() {
		return fmt.Errorf("%w: tiles do not occupy distinct cells", ErrInvalidState)
	}

	switch state.Phase {
	case PhaseIdle, PhaseRunning, PhaseWon, PhaseTimedOut:
	default:
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidState, state.Phase)
	}
	if state.Phase != PhaseIdle && state.StartedAt == nil && state.Phase != PhaseWon {
		return fmt.Errorf("%w: phase %s without a start time", ErrInvalidState, state.Phase)
	}

	e.grid = grid
	e.controller.SetGrid(grid)
	e.generation++
	e.pendingChecks = 0
	e.countdown.Reset()
	if state.StartedAt != nil {
		e.countdown.Start(*state.StartedAt)
	}
	e.phase = state.Phase
	e.endedAt = time.Time{}
	if state.EndedAt != nil {
		e.endedAt = *state.EndedAt
	}
	e.remaining = state.RemainingSeconds
	if e.phase == PhaseIdle {
		e.remaining = e.countdown.Limit()
	}
	e.message = state.Message
	e.history = append([]SwapHistoryEntry{}, state.SwapHistory...)
	e.totalSwaps = state.TotalSwaps
	if e.totalSwaps < len(e.history) {
		e.totalSwaps = len(e.history)
	}
	e.currentSwaps = append([]SwapHistoryEntry{}, state.CurrentSwaps...)
	e.events = nil

	e.controller.SnapAll()
	if e.phase.Terminal() {
		e.controller.SetInteractive(false)
		e.controller.Detach()
	} else {
		e.controller.SetInteractive(true)
		e.controller.Attach()
	}
	return nil
}
