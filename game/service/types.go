package service

import (
	"time"

	"github.com/wricardo/adventure-games/game/engine"
	"github.com/wricardo/adventure-games/game/home"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// DropResult contains the result of a drag end or a direct swap
type DropResult struct {
	Success   bool                     `json:"success"`
	Swapped   bool                     `json:"swapped"`
	TileID    int                      `json:"tile_id"`
	TargetID  *int                     `json:"target_id,omitempty"`
	FromCell  engine.Cell              `json:"from_cell"`
	ToCell    engine.Cell              `json:"to_cell"`
	GameState *engine.GameState        `json:"game_state"`
	Message   string                   `json:"message"`
	Events    []GameEvent              `json:"events,omitempty"`
	Swap      *engine.SwapHistoryEntry `json:"swap,omitempty"`
}

// PointerResult contains the result of a drag start or drag update
type PointerResult struct {
	Success   bool              `json:"success"`
	TileID    int               `json:"tile_id"`
	Tile      engine.Tile       `json:"tile"`
	Phase     engine.Phase      `json:"phase"`
	TimerText string            `json:"timer_text"`
	Events    []GameEvent       `json:"events,omitempty"`
	GameState *engine.GameState `json:"game_state,omitempty"`
}

// TickResult contains the timer state after a tick
type TickResult struct {
	SessionID string            `json:"session_id"`
	Tick      engine.TickResult `json:"tick"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type       string    `json:"type"` // "timer_started", "swap", "revert", "validation", "win", "timeout", "reset"
	Message    string    `json:"message"`
	Cue        string    `json:"cue,omitempty"` // sound to play
	StopSounds bool      `json:"stop_sounds,omitempty"`
	TileID     *int      `json:"tile_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HistoryOptions configures swap history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated swap history
type HistoryResponse struct {
	Swaps       []engine.SwapHistoryEntry `json:"swaps"`
	TotalSwaps  int                       `json:"total_swaps"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename         string           `json:"filename"`
	ConfigID         string           `json:"config_id"` // The identifier to use for session creation
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	SceneKey         string           `json:"scene_key,omitempty"`
	Symbols          engine.SymbolSet `json:"symbols"`
	Columns          int              `json:"columns"`
	TileCount        int              `json:"tile_count"`
	TimeLimitSeconds int              `json:"time_limit_seconds"`
}

// HomeMenu is the game selection screen
type HomeMenu struct {
	Title    string          `json:"title"`
	Subtitle string          `json:"subtitle"`
	Games    []HomeMenuEntry `json:"games"`
}

// HomeMenuEntry is one game card with the config it starts
type HomeMenuEntry struct {
	home.GameButton
	ColorHex   string      `json:"color_hex"`
	ConfigInfo *ConfigInfo `json:"config,omitempty"`
}

// Notifier receives state changes that happen outside a request, such as a
// validation firing after the settle delay or a timeout on a tick
type Notifier interface {
	NotifySession(sessionID string, state *engine.GameState, events []GameEvent)
}

func toGameEvents(events []engine.Event) []GameEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]GameEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, GameEvent{
			Type:       string(ev.Type),
			Message:    ev.Message,
			Cue:        ev.Cue,
			StopSounds: ev.StopSounds,
			TileID:     ev.TileID,
			Timestamp:  ev.Timestamp,
		})
	}
	return out
}
