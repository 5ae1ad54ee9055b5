// Package config loads game configurations for the ordering games.
//
// Configurations are JSON files in a config directory, one per game, named
// by their config ID (alphabet.json, numbers.json). Each file sets the
// symbol set, grid columns, time limit, settle delay, board layout, sound
// cues and player-facing messages. Files are validated on load and cached.
//
// The two built-in games are always available. A file with the same ID
// overrides the built-in one.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	numbers, err := manager.LoadConfig("numbers")
//	infos, err := manager.ListConfigs()
package config
