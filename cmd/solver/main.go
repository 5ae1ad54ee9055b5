// Command solver plays an ordering game through the REST API until the board
// is solved, retrying with a reset when the timer runs out.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wricardo/adventure-games/client"
	"github.com/wricardo/adventure-games/game/engine"
	"github.com/wricardo/adventure-games/game/service"
)

// Options control a solving run
type Options struct {
	Drag        bool
	MaxMoves    int
	MaxAttempts int
	Delay       time.Duration
	Settle      time.Duration
	Verbose     bool
}

// Outcome reports how a run ended
type Outcome struct {
	Won      bool
	Attempts int
	Moves    int
	State    *engine.GameState
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	configID := flag.String("config", "", "Game configuration ID (alphabet, numbers)")
	continueSession := flag.String("continue", "", "Resume playing an existing session by ID")
	strategyName := flag.String("strategy", "systematic", "Strategy: systematic or random")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Seed for the random strategy")
	drag := flag.Bool("drag", false, "Move tiles with drag gestures instead of direct swaps")
	maxMoves := flag.Int("max-moves", 500, "Maximum swaps per attempt")
	maxAttempts := flag.Int("max-attempts", 10, "Maximum attempts before giving up")
	verbose := flag.Bool("v", false, "Verbose output")
	delayMs := flag.Int("delay", 0, "Delay between swaps in milliseconds (0 = no delay)")
	flag.Parse()

	var strategy Strategy
	switch *strategyName {
	case "systematic":
		strategy = NewSystematicStrategy()
	case "random":
		strategy = NewRandomStrategy(*seed)
	default:
		log.Fatalf("Unknown strategy: %s", *strategyName)
	}

	log.Printf("Connecting to game server at %s", *serverURL)
	ctx := context.Background()
	c := client.New(*serverURL)

	sessionFile := ".session"
	savedSessionID := *continueSession
	if savedSessionID == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			savedSessionID = string(bytes.TrimSpace(data))
		}
	}

	var info *service.SessionInfo
	var err error
	if savedSessionID != "" {
		log.Printf("🔄 Resuming session: %s", savedSessionID)
		if info, err = c.Resume(ctx, savedSessionID); err != nil {
			log.Printf("⚠️  Failed to resume session (may be deleted): %v", err)
			savedSessionID = ""
		}
	}
	if savedSessionID == "" {
		info, err = c.CreateSession(ctx, *configID)
		if err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		log.Printf("✨ Session created: %s", c.SessionID())
		if err := os.WriteFile(sessionFile, []byte(c.SessionID()), 0644); err != nil {
			log.Printf("Warning: Failed to save session ID: %v", err)
		}
	}
	log.Printf("Board: %d tiles in %d columns, %s", info.GameState.TotalTiles, info.GameState.Columns, info.GameState.TimerText)

	outcome, err := Solve(ctx, c, strategy, Options{
		Drag:        *drag,
		MaxMoves:    *maxMoves,
		MaxAttempts: *maxAttempts,
		Delay:       time.Duration(*delayMs) * time.Millisecond,
		Settle:      5 * time.Second,
		Verbose:     *verbose,
	})
	if err != nil {
		log.Fatalf("Solver stopped: %v", err)
	}

	if outcome.Won {
		log.Printf("\n🎉 SOLVED in attempt %d with %d swaps! Time: %s", outcome.Attempts, outcome.Moves, outcome.State.FinalTime)
		log.Printf("Session: %s", c.SessionID())
		os.Exit(0)
	}
	log.Printf("\n❌ Failed to solve after %d attempts", outcome.Attempts)
	log.Printf("Session: %s", c.SessionID())
	os.Exit(1)
}

// Solve resets the board and plays the strategy until it wins, the timer runs
// out, or the move budget is spent. A lost attempt starts over with a reset.
func Solve(ctx context.Context, c *client.Client, strategy Strategy, opts Options) (*Outcome, error) {
	outcome := &Outcome{}
	for outcome.Attempts < opts.MaxAttempts {
		outcome.Attempts++

		state, err := c.Reset(ctx)
		if err != nil {
			return outcome, err
		}
		strategy.Reset()
		log.Printf("\n=== 🎮 Attempt %d/%d ===", outcome.Attempts, opts.MaxAttempts)

		moves := 0
		for state.Phase != engine.PhaseWon && state.Phase != engine.PhaseTimedOut && moves < opts.MaxMoves {
			move, ok := strategy.NextMove(state)
			if !ok {
				// everything is in place; wait for the validation to land
				waitCtx, cancel := context.WithTimeout(ctx, opts.Settle)
				state, err = c.WaitSettled(waitCtx, 20*time.Millisecond)
				cancel()
				if err != nil {
					return outcome, err
				}
				break
			}

			if opts.Verbose {
				log.Printf("Swap %d: tile %d -> (%d,%d), %s", moves+1, move.TileID, move.Cell.Row, move.Cell.Col, state.TimerText)
			}
			state, err = play(ctx, c, move, opts.Drag)
			if err != nil {
				return outcome, err
			}
			moves++

			if opts.Delay > 0 {
				time.Sleep(opts.Delay)
			}
		}

		outcome.Moves = moves
		outcome.State = state
		log.Printf("Attempt %d: Swaps=%d, In place=%d/%d, %s",
			outcome.Attempts, moves, state.CorrectCount, state.TotalTiles, state.TimerText)

		if state.Phase == engine.PhaseWon {
			outcome.Won = true
			return outcome, nil
		}
	}
	return outcome, nil
}

func play(ctx context.Context, c *client.Client, move Move, drag bool) (*engine.GameState, error) {
	if drag {
		result, err := c.Drag(ctx, move.TileID, move.Cell)
		if err != nil {
			return nil, err
		}
		if !result.Swapped {
			return nil, fmt.Errorf("drop of tile %d on (%d,%d) did not swap: %s",
				move.TileID, move.Cell.Row, move.Cell.Col, result.Message)
		}
		return result.GameState, nil
	}

	result, err := c.Swap(ctx, move.TileID, move.TargetID)
	if err != nil {
		return nil, err
	}
	return result.GameState, nil
}
