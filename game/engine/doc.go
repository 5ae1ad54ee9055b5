// Package engine provides the core game logic for the ordering games.
//
// The engine package implements the game mechanics including:
//   - Shuffled tile sets laid out in a fixed-column grid
//   - Drag and drop with overlap-based swapping
//   - Order validation after a short settle delay
//   - A countdown that starts on the first drag
//   - Game state snapshots for persistence
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState is the snapshot handed to hosts,
// while GameConfig defines the symbol set, grid shape, timing and layout
// loaded from JSON files.
//
// Usage:
//
//	config, err := engine.LoadConfigByName("alphabet")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Drop tile 3 on tile 7
//	result, err := gameEngine.Swap(3, 7)
//	state := gameEngine.GetState()
//
// Game Rules:
//
// Every tile must end up in the cell matching its natural rank, read row by
// row. The first drag starts the countdown. Placing every tile wins; running
// out of time loses. Either outcome freezes the board until a reset.
package engine
