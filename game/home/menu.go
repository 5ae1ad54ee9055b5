package home

import (
	"errors"
	"fmt"
)

// HomeScene is the scene key of the menu itself
const HomeScene = "HomeScene"

var (
	ErrUnknownScene     = errors.New("unknown scene")
	ErrSceneUnavailable = errors.New("scene is not available")
)

// GameButton is one card on the home menu
type GameButton struct {
	Title       string `json:"title"`
	Emoji       string `json:"emoji"`
	Scene       string `json:"scene"`
	ConfigID    string `json:"config_id"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Color       uint32 `json:"color"`
}

// ColorHex renders the card color as #rrggbb
func (b GameButton) ColorHex() string {
	return fmt.Sprintf("#%06x", b.Color&0xffffff)
}

// RGB splits the card color into channels
func (b GameButton) RGB() (r, g, bl uint8) {
	return uint8(b.Color >> 16), uint8(b.Color >> 8), uint8(b.Color)
}

// Menu is the ordered list of game cards
type Menu struct {
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle"`
	Buttons  []GameButton `json:"buttons"`
}

// DefaultMenu returns the two built-in games
func DefaultMenu() *Menu {
	return &Menu{
		Title:    "Adventure Games",
		Subtitle: "Choose a game to play!",
		Buttons: []GameButton{
			{
				Title:       "Alphabet Adventure",
				Emoji:       "🔤",
				Scene:       "AlphabetAdventure",
				ConfigID:    "alphabet",
				Description: "Learn and arrange letters A to Z",
				Available:   true,
				Color:       0x3b82f6,
			},
			{
				Title:       "Number Adventure",
				Emoji:       "🔢",
				Scene:       "NumberAdventure",
				ConfigID:    "numbers",
				Description: "Learn and arrange numbers 1 to 20",
				Available:   true,
				Color:       0x10b981,
			},
		},
	}
}

// Find returns the card for a scene key
func (m *Menu) Find(scene string) (GameButton, error) {
	for _, b := range m.Buttons {
		if b.Scene == scene {
			return b, nil
		}
	}
	return GameButton{}, fmt.Errorf("%w: %s", ErrUnknownScene, scene)
}

// FindByConfig returns the card that starts the given config
func (m *Menu) FindByConfig(configID string) (GameButton, bool) {
	for _, b := range m.Buttons {
		if b.ConfigID == configID {
			return b, true
		}
	}
	return GameButton{}, false
}

// Available returns the selectable cards in menu order
func (m *Menu) Available() []GameButton {
	var out []GameButton
	for _, b := range m.Buttons {
		if b.Available {
			out = append(out, b)
		}
	}
	return out
}
