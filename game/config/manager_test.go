package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/adventure-games/game/engine"
)

func createValidConfig() *engine.GameConfig {
	config := engine.DefaultNumbersConfig()
	config.Name = "Test Config"
	config.Description = "Test configuration"
	config.Columns = 5
	config.TimeLimitSeconds = 30
	return config
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.GameConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "short", createValidConfig())

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager == nil {
			t.Error("Expected manager to be non-nil")
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in alphabet", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without config files, got error: %v", err)
		}
		def := manager.GetDefault()
		if def == nil {
			t.Fatal("Expected default config to be available")
		}
		if def.Symbols != engine.Letters || def.Columns != 13 {
			t.Errorf("Expected built-in alphabet default, got %s with %d columns", def.Symbols, def.Columns)
		}
	})

	t.Run("file overrides built-in default", func(t *testing.T) {
		dir := t.TempDir()
		custom := engine.DefaultAlphabetConfig()
		custom.TimeLimitSeconds = 90
		writeConfigFile(t, dir, "alphabet", custom)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().TimeLimitSeconds; got != 90 {
			t.Errorf("Expected overridden time limit 90, got %d", got)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "short", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("short")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "Test Config" {
			t.Errorf("Expected config name 'Test Config', got '%s'", config.Name)
		}
		if config.Columns != 5 {
			t.Errorf("Expected 5 columns, got %d", config.Columns)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("short.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		plain, _ := manager.LoadConfig("short")
		if config != plain {
			t.Error("Expected name with and without extension to share a cache entry")
		}
	})

	t.Run("load built-in numbers", func(t *testing.T) {
		config, err := manager.LoadConfig("numbers")
		if err != nil {
			t.Fatalf("Failed to load built-in: %v", err)
		}
		if config.Symbols != engine.Numbers || config.Columns != 10 || config.TimeLimitSeconds != 120 {
			t.Errorf("Unexpected built-in numbers config: %+v", config)
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("path names are rejected", func(t *testing.T) {
		_, err := manager.LoadConfig("../alphabet")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		bad := createValidConfig()
		bad.Columns = 0
		writeConfigFile(t, dir, "bad-columns", bad)

		_, err := manager.LoadConfig("bad-columns")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed json", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := manager.LoadConfig("broken")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "short", createValidConfig())
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not a config"), 0644); err != nil {
		t.Fatal(err)
	}
	bad := createValidConfig()
	bad.TimeLimitSeconds = 0
	writeConfigFile(t, dir, "invalid", bad)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}

	ids := make([]string, 0, len(configs))
	for _, c := range configs {
		ids = append(ids, c.ConfigID)
	}
	want := []string{"alphabet", "numbers", "short"}
	if len(ids) != len(want) {
		t.Fatalf("Expected configs %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected configs %v, got %v", want, ids)
			break
		}
	}

	for _, c := range configs {
		switch c.ConfigID {
		case "alphabet":
			if c.TileCount != 26 || c.Columns != 13 || c.Filename != "" {
				t.Errorf("Unexpected alphabet info: %+v", c)
			}
		case "numbers":
			if c.TileCount != 20 || c.SceneKey != "NumberAdventure" {
				t.Errorf("Unexpected numbers info: %+v", c)
			}
		case "short":
			if c.Filename != "short.json" || c.TimeLimitSeconds != 30 {
				t.Errorf("Unexpected short info: %+v", c)
			}
		}
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("save valid config", func(t *testing.T) {
		config := createValidConfig()
		config.Name = "Saved"
		if err := manager.SaveConfig("saved", config); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
			t.Errorf("Expected config file to exist: %v", err)
		}

		loaded, err := manager.LoadConfig("saved")
		if err != nil {
			t.Fatalf("Failed to load saved config: %v", err)
		}
		if loaded.Name != "Saved" {
			t.Errorf("Expected name 'Saved', got '%s'", loaded.Name)
		}
	})

	t.Run("saved file survives cache refresh", func(t *testing.T) {
		if err := manager.RefreshCache(); err != nil {
			t.Fatalf("Failed to refresh cache: %v", err)
		}
		loaded, err := manager.LoadConfig("saved")
		if err != nil {
			t.Fatalf("Failed to reload saved config: %v", err)
		}
		if loaded.Columns != 5 {
			t.Errorf("Expected 5 columns after reload, got %d", loaded.Columns)
		}
	})

	t.Run("save invalid config", func(t *testing.T) {
		config := createValidConfig()
		config.Layout.TileWidth = config.Layout.CellWidth + 1
		err := manager.SaveConfig("too-wide", config)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
		if _, statErr := os.Stat(filepath.Join(dir, "too-wide.json")); statErr == nil {
			t.Error("Invalid config should not be written")
		}
	})

	t.Run("save with path name", func(t *testing.T) {
		err := manager.SaveConfig("../escape", createValidConfig())
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_SetDefault(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := manager.SetDefault("numbers"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault().Symbols != engine.Numbers {
		t.Error("Expected numbers to be the default")
	}

	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "short", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 60)
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := manager.LoadConfig("short")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := manager.ListConfigs()
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := manager.LoadConfig("numbers")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent access failed: %v", err)
		}
	}
}

func TestRepositoryConfigs(t *testing.T) {
	manager, err := NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for _, name := range []string{"alphabet", "numbers", "numbers_quick"} {
		config, err := manager.LoadConfig(name)
		if err != nil {
			t.Errorf("Config %s failed to load: %v", name, err)
			continue
		}
		if config.Name != name {
			t.Errorf("Config %s has name %q", name, config.Name)
		}
	}
}

func TestDescribe_TileCount(t *testing.T) {
	unknown := createValidConfig()
	unknown.Symbols = "shapes"

	tests := []struct {
		name   string
		config *engine.GameConfig
		want   int
	}{
		{"letters", engine.DefaultAlphabetConfig(), 26},
		{"numbers", engine.DefaultNumbersConfig(), 20},
		{"unknown symbol set", unknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := describe("x.json", "x", tt.config)
			if info.TileCount != tt.want {
				t.Errorf("Expected %d tiles, got %d", tt.want, info.TileCount)
			}
			if info.Columns != tt.config.Columns {
				t.Errorf("Expected %d columns, got %d", tt.config.Columns, info.Columns)
			}
		})
	}
}
