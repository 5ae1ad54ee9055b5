package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate the symbol set and grid shape
	symbols, err := Symbols(config.Symbols)
	if err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if config.Columns < 1 || config.Columns > len(symbols) {
		return fmt.Errorf("config validation: columns must be between 1 and %d, got %d", len(symbols), config.Columns)
	}

	// Validate timing
	if config.TimeLimitSeconds < 1 || config.TimeLimitSeconds > MaxTimeLimitSeconds {
		return fmt.Errorf("config validation: time_limit_seconds must be between 1 and %d, got %d",
			MaxTimeLimitSeconds, config.TimeLimitSeconds)
	}
	if config.SettleDelayMs < 0 || config.SettleDelayMs > MaxSettleDelayMs {
		return fmt.Errorf("config validation: settle_delay_ms must be between 0 and %d, got %d",
			MaxSettleDelayMs, config.SettleDelayMs)
	}

	// Validate layout
	l := config.Layout
	if l.CellWidth <= 0 || l.CellHeight <= 0 {
		return fmt.Errorf("config validation: layout cell size must be positive, got %gx%g", l.CellWidth, l.CellHeight)
	}
	if l.TileWidth <= 0 || l.TileHeight <= 0 {
		return fmt.Errorf("config validation: layout tile size must be positive, got %gx%g", l.TileWidth, l.TileHeight)
	}
	// resting tiles must not overlap their neighbours' cells
	if l.TileWidth > l.CellWidth || l.TileHeight > l.CellHeight {
		return fmt.Errorf("config validation: tile size %gx%g exceeds cell size %gx%g",
			l.TileWidth, l.TileHeight, l.CellWidth, l.CellHeight)
	}

	// Validate messages
	if config.Messages.Win == "" {
		return fmt.Errorf("config validation: messages.win is required")
	}
	if config.Messages.Timeout == "" {
		return fmt.Errorf("config validation: messages.timeout is required")
	}
	if config.Messages.TimerFormat == "" {
		return fmt.Errorf("config validation: messages.timer_format is required")
	}
	if strings.Contains(fmt.Sprintf(config.Messages.TimerFormat, 0, 0), "%!") {
		return fmt.Errorf("config validation: messages.timer_format must take exactly two %%d verbs for minutes and seconds, got %q",
			config.Messages.TimerFormat)
	}

	return nil
}

// DefaultAlphabetConfig returns the built-in letters game
func DefaultAlphabetConfig() *GameConfig {
	config := &GameConfig{
		Name:             "alphabet",
		Description:      "Learn and arrange letters A to Z",
		SceneKey:         "AlphabetAdventure",
		Symbols:          Letters,
		Columns:          13,
		TimeLimitSeconds: 180,
		SettleDelayMs:    100,
		Layout: Layout{
			OriginX:    100,
			OriginY:    150,
			CellWidth:  65,
			CellHeight: 80,
			TileWidth:  52,
			TileHeight: 68,
		},
	}
	applyDefaultMessages(config, "Drag the letters to put them in order from A to Z!")
	return config
}

// DefaultNumbersConfig returns the built-in numbers game
func DefaultNumbersConfig() *GameConfig {
	config := &GameConfig{
		Name:             "numbers",
		Description:      "Learn and arrange numbers 1 to 20",
		SceneKey:         "NumberAdventure",
		Symbols:          Numbers,
		Columns:          10,
		TimeLimitSeconds: 120,
		SettleDelayMs:    100,
		Layout: Layout{
			OriginX:    150,
			OriginY:    150,
			CellWidth:  75,
			CellHeight: 80,
			TileWidth:  60,
			TileHeight: 68,
		},
	}
	applyDefaultMessages(config, "Drag the numbers to put them in order from 1 to 20!")
	return config
}

// DefaultConfigs returns every built-in game keyed by name
func DefaultConfigs() map[string]*GameConfig {
	return map[string]*GameConfig{
		"alphabet": DefaultAlphabetConfig(),
		"numbers":  DefaultNumbersConfig(),
	}
}

func applyDefaultMessages(config *GameConfig, instructions string) {
	config.Sounds.Swap = "ding"
	config.Sounds.Win = "clap"
	config.Sounds.Timeout = "error"
	config.Messages.Instructions = instructions
	config.Messages.Win = "🎉 Congratulations! 🎉"
	config.Messages.Timeout = "Time's Up!"
	config.Messages.Encourage = "Keep practicing! You can do it!"
	config.Messages.TimerFormat = "Time: %d:%02d"
}

// LoadGameConfig loads a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfigByName loads a game configuration by name from the configs directory
func LoadConfigByName(configName string) (*GameConfig, error) {
	if !strings.HasSuffix(configName, ".json") {
		configName = configName + ".json"
	}

	configPath := filepath.Join("configs", configName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file '%s' not found", configName)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %v", configName, err)
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %v", configName, err)
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %v", configName, err)
	}

	return &config, nil
}
