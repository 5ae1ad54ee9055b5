// Command validate checks the game configuration JSON files in a directory
// (../configs by default). For each file it reports:
//   - JSON structure and the rules the engine enforces on load
//   - Whether the board fits on the screen
//   - Whether every cell can be hit as a drop target
//   - Missing sound cues or instructions
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/adventure-games/game/engine"
)

// Screen is the playfield the board must fit in
type Screen struct {
	Width  float64
	Height float64
}

// DefaultScreen is the canvas size the browser client renders at
var DefaultScreen = Screen{Width: 1024, Height: 576}

// ValidationResult captures the outcome of validating a single file.
// Errors make the file invalid. Info lines are printed for valid files.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration JSON file
func validateConfig(filePath string, screen Screen) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := engine.ValidateGameConfig(&config); err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), "config validation: "))
		return result
	}

	symbols, _ := engine.Symbols(config.Symbols)
	rows := (len(symbols) + config.Columns - 1) / config.Columns

	checkScreenFit(&result, config.Layout, rows, config.Columns, screen)
	checkDropTargets(&result, config.Layout, symbols, config.Columns)

	if config.Sounds.Swap == "" || config.Sounds.Win == "" || config.Sounds.Timeout == "" {
		result.Warnings = append(result.Warnings, "Some sound cues are empty; the host will stay silent for them")
	}
	if config.Messages.Instructions == "" {
		result.Warnings = append(result.Warnings, "messages.instructions is empty")
	}

	if result.Valid {
		result.Info = append(result.Info,
			fmt.Sprintf("✓ Name: %s", config.Name),
			fmt.Sprintf("✓ Tiles: %d %s (%s to %s)", len(symbols), config.Symbols, symbols[0], symbols[len(symbols)-1]),
			fmt.Sprintf("✓ Grid: %dx%d", rows, config.Columns),
			fmt.Sprintf("✓ Time limit: %s", fmt.Sprintf(config.Messages.TimerFormat, config.TimeLimitSeconds/60, config.TimeLimitSeconds%60)),
			fmt.Sprintf("✓ Settle delay: %dms", config.SettleDelayMs),
		)
	}

	return result
}

// checkScreenFit makes sure the last resting tile ends inside the screen
func checkScreenFit(result *ValidationResult, l engine.Layout, rows, columns int, screen Screen) {
	if l.OriginX < 0 || l.OriginY < 0 {
		result.fail("Layout origin (%g,%g) is off screen", l.OriginX, l.OriginY)
		return
	}
	last := l.CellBounds(engine.Cell{Row: rows - 1, Col: columns - 1})
	right, bottom := last.X+last.W, last.Y+last.H
	if right > screen.Width || bottom > screen.Height {
		result.fail("Board needs %gx%g but the screen is %gx%g", right, bottom, screen.Width, screen.Height)
		return
	}
	result.Info = append(result.Info, fmt.Sprintf("✓ Board: (%g,%g) to (%g,%g)", l.OriginX, l.OriginY, right, bottom))
}

// checkDropTargets drops a tile exactly on every other cell of a sorted board
// and expects the drop to resolve to that cell's tile
func checkDropTargets(result *ValidationResult, l engine.Layout, symbols []string, columns int) {
	grid := engine.NewSortedGrid(symbols, columns)
	finder := engine.CellOverlapFinder{Layout: l}

	missed := 0
	for _, target := range grid.Tiles {
		dragged := grid.Tiles[0]
		if target.ID == dragged.ID {
			dragged = grid.Tiles[1]
		}
		got, ok := finder.FindDropTarget(grid, dragged, l.CellBounds(target.Cell))
		if !ok || got.ID != target.ID {
			missed++
			if missed <= 3 {
				result.Errors = append(result.Errors, fmt.Sprintf("Unreachable: dropping on cell (%d,%d) does not hit %s",
					target.Cell.Row, target.Cell.Col, target.Symbol))
			}
		}
	}

	if missed > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Drop target failure: %d/%d cells unreachable", missed, len(grid.Tiles)))
		return
	}
	result.Info = append(result.Info, fmt.Sprintf("✓ Drop targets: all %d cells reachable", len(grid.Tiles)))
}

// main validates every *.json file in the config directory, printing a
// concise report and exiting with non-zero status if any are invalid
func main() {
	configDir := flag.String("dir", "../configs", "Directory containing game configurations")
	width := flag.Float64("width", DefaultScreen.Width, "Screen width the board must fit in")
	height := flag.Float64("height", DefaultScreen.Height, "Screen height the board must fit in")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(*configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No config files found in %s\n", *configDir)
		os.Exit(1)
	}

	screen := Screen{Width: *width, Height: *height}
	allValid := true
	for _, file := range files {
		result := validateConfig(file, screen)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Info {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
		for _, w := range result.Warnings {
			fmt.Println("  ⚠️  " + w)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
