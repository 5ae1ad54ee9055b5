// Command analyze prints quick, human-readable statistics about the game
// configurations: board geometry, the time budget per tile, and how hard the
// shuffled boards are to solve (tiles already in place, minimum swaps).
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/adventure-games/game/config"
	"github.com/wricardo/adventure-games/game/engine"
)

// ShuffleStats summarizes many shuffles of one board
type ShuffleStats struct {
	Trials       int
	Tiles        int
	MeanInPlace  float64
	MaxInPlace   int
	Solved       int // shuffles that came out already in order
	MeanMinSwaps float64
	MinMinSwaps  int
	MaxMinSwaps  int
	// ChiSquare measures how evenly tiles land across cells; with a uniform
	// shuffle it stays near (tiles-1)^2.
	ChiSquare float64
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Statistics about ordering game configurations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "configs",
				Usage:  "Summarize every configuration",
				Action: runConfigs,
			},
			{
				Name:      "shuffle",
				Usage:     "Shuffle each board many times and report difficulty",
				ArgsUsage: "[config_id...]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "trials", Value: 5000, Usage: "Shuffles per configuration"},
					&cli.Int64Flag{Name: "seed", Usage: "Random seed (default: current time)"},
				},
				Action: runShuffle,
			},
		},
		DefaultCommand: "configs",
	}
}

func loadManager(cmd *cli.Command) (*config.Manager, error) {
	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, fmt.Errorf("open configs: %w", err)
	}
	return manager, nil
}

func runConfigs(ctx context.Context, cmd *cli.Command) error {
	manager, err := loadManager(cmd)
	if err != nil {
		return err
	}
	infos, err := manager.ListConfigs()
	if err != nil {
		return fmt.Errorf("list configs: %w", err)
	}

	for _, info := range infos {
		cfg, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			fmt.Fprintf(cmd.Root().Writer, "\n=== %s ===\nError: %v\n", info.ConfigID, err)
			continue
		}
		describeConfig(cmd.Root().Writer, info.ConfigID, cfg)
	}
	return nil
}

func describeConfig(w io.Writer, id string, cfg *engine.GameConfig) {
	symbols, _ := engine.Symbols(cfg.Symbols)
	rows := (len(symbols) + cfg.Columns - 1) / cfg.Columns
	last := cfg.Layout.CellBounds(engine.Cell{Row: rows - 1, Col: cfg.Columns - 1})

	fmt.Fprintf(w, "\n=== %s ===\n", id)
	fmt.Fprintf(w, "Name: %s\n", cfg.Name)
	fmt.Fprintf(w, "Tiles: %d %s\n", len(symbols), cfg.Symbols)
	fmt.Fprintf(w, "Grid: %d x %d\n", rows, cfg.Columns)
	if empty := rows*cfg.Columns - len(symbols); empty > 0 {
		fmt.Fprintf(w, "Empty cells in last row: %d\n", empty)
	}
	fmt.Fprintf(w, "Board: (%g,%g) to (%g,%g)\n", cfg.Layout.OriginX, cfg.Layout.OriginY, last.X+last.W, last.Y+last.H)
	fmt.Fprintf(w, "Time limit: %s\n", time.Duration(cfg.TimeLimitSeconds)*time.Second)
	fmt.Fprintf(w, "Worst case: %d swaps, %.1fs per swap\n",
		len(symbols)-1, float64(cfg.TimeLimitSeconds)/float64(len(symbols)-1))
	fmt.Fprintf(w, "Settle delay: %s\n", cfg.SettleDelay())
	fmt.Fprintf(w, "Reset reshuffles: %v\n", cfg.ReshufflesOnReset())
}

func runShuffle(ctx context.Context, cmd *cli.Command) error {
	trials := cmd.Int("trials")
	if trials < 1 {
		return fmt.Errorf("trials must be positive, got %d", trials)
	}
	seed := cmd.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	manager, err := loadManager(cmd)
	if err != nil {
		return err
	}
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return fmt.Errorf("list configs: %w", err)
		}
		for _, info := range infos {
			ids = append(ids, info.ConfigID)
		}
	}

	w := cmd.Root().Writer
	fmt.Fprintf(w, "Seed: %d, trials: %d\n", seed, trials)
	for _, id := range ids {
		cfg, err := manager.LoadConfig(id)
		if err != nil {
			return fmt.Errorf("load %s: %w", id, err)
		}
		stats, err := analyzeShuffles(cfg, trials, rand.New(rand.NewSource(seed)))
		if err != nil {
			return fmt.Errorf("analyze %s: %w", id, err)
		}
		printShuffleStats(w, id, cfg, stats)
	}
	return nil
}

// analyzeShuffles deals trials boards with the engine's grid and collects
// difficulty statistics
func analyzeShuffles(cfg *engine.GameConfig, trials int, shuffler engine.Shuffler) (ShuffleStats, error) {
	symbols, err := engine.Symbols(cfg.Symbols)
	if err != nil {
		return ShuffleStats{}, err
	}
	n := len(symbols)
	stats := ShuffleStats{Trials: trials, Tiles: n, MinMinSwaps: n}

	// landed[rank][cell]
	landed := make([][]int, n)
	for i := range landed {
		landed[i] = make([]int, n)
	}

	totalInPlace, totalSwaps := 0, 0
	for i := 0; i < trials; i++ {
		grid := engine.NewGrid(symbols, cfg.Columns, shuffler)
		arrangement := grid.Arrangement()

		inPlace := grid.Validate().CorrectCount
		totalInPlace += inPlace
		stats.MaxInPlace = max(stats.MaxInPlace, inPlace)
		if inPlace == n {
			stats.Solved++
		}

		swaps := minSwaps(arrangement)
		totalSwaps += swaps
		stats.MinMinSwaps = min(stats.MinMinSwaps, swaps)
		stats.MaxMinSwaps = max(stats.MaxMinSwaps, swaps)

		for cell, id := range arrangement {
			landed[id][cell]++
		}
	}

	stats.MeanInPlace = float64(totalInPlace) / float64(trials)
	stats.MeanMinSwaps = float64(totalSwaps) / float64(trials)
	stats.ChiSquare = chiSquare(landed, trials)
	return stats, nil
}

// minSwaps is the fewest swaps that sort an arrangement: one per element
// minus one per cycle
func minSwaps(arrangement []int) int {
	seen := make([]bool, len(arrangement))
	cycles := 0
	for start := range arrangement {
		if seen[start] {
			continue
		}
		cycles++
		for i := start; !seen[i]; i = arrangement[i] {
			seen[i] = true
		}
	}
	return len(arrangement) - cycles
}

// chiSquare tests the rank-by-cell counts against a uniform distribution
func chiSquare(landed [][]int, trials int) float64 {
	if len(landed) == 0 {
		return 0
	}
	expected := float64(trials) / float64(len(landed))
	sum := 0.0
	for _, row := range landed {
		for _, observed := range row {
			d := float64(observed) - expected
			sum += d * d / expected
		}
	}
	return sum
}

func printShuffleStats(w io.Writer, id string, cfg *engine.GameConfig, s ShuffleStats) {
	dof := float64((s.Tiles - 1) * (s.Tiles - 1))
	fmt.Fprintf(w, "\n=== %s (%d tiles) ===\n", id, s.Tiles)
	fmt.Fprintf(w, "Tiles already in place: mean %.2f, max %d\n", s.MeanInPlace, s.MaxInPlace)
	fmt.Fprintf(w, "Minimum swaps to solve: mean %.2f, range %d-%d\n", s.MeanMinSwaps, s.MinMinSwaps, s.MaxMinSwaps)
	fmt.Fprintf(w, "Time per swap at mean: %.1fs\n", float64(cfg.TimeLimitSeconds)/math.Max(s.MeanMinSwaps, 1))
	if s.Solved > 0 {
		fmt.Fprintf(w, "⚠️  %d/%d shuffles came out already solved\n", s.Solved, s.Trials)
	}

	// rough check: the statistic should sit within a few standard
	// deviations (sqrt(2*dof)) of dof
	spread := (s.ChiSquare - dof) / math.Sqrt(2*dof)
	verdict := "✅ uniform"
	if math.Abs(spread) > 4 {
		verdict = "⚠️  not uniform"
	}
	fmt.Fprintf(w, "Cell distribution: chi² %.1f (dof %.0f, %+.1fσ) %s\n", s.ChiSquare, dof, spread, verdict)
}
