package engine

import "time"

// SymbolSet names a fixed, ordered set of tile identities
type SymbolSet string

const (
	Letters SymbolSet = "letters"
	Numbers SymbolSet = "numbers"

	// Validation constants
	MaxTimeLimitSeconds = 3600
	MaxSettleDelayMs    = 5000
	DefaultSettleDelay  = 100 * time.Millisecond
	MaxHistoryPageSize  = 100
)

// Phase is the lifecycle state of one play-through
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseWon      Phase = "won"
	PhaseTimedOut Phase = "timed_out"
)

// Terminal reports whether no further transition happens without a reset
func (p Phase) Terminal() bool {
	return p == PhaseWon || p == PhaseTimedOut
}

// TileState is the drag state of a single tile
type TileState string

const (
	AtRest   TileState = "at_rest"
	Dragging TileState = "dragging"
)

// Cell is a grid coordinate
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Point is a screen position in host coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Tile is one draggable letter or number
type Tile struct {
	ID          int       `json:"id"`
	Symbol      string    `json:"symbol"`
	Rank        int       `json:"rank"` // natural rank in the symbol set
	Cell        Cell      `json:"cell"`
	Pos         Point     `json:"pos"`
	State       TileState `json:"state"`
	Correct     bool      `json:"correct"`
	Interactive bool      `json:"interactive"`
}

// Layout places grid cells on the host's screen
type Layout struct {
	OriginX    float64 `json:"origin_x"`
	OriginY    float64 `json:"origin_y"`
	CellWidth  float64 `json:"cell_width"`
	CellHeight float64 `json:"cell_height"`
	TileWidth  float64 `json:"tile_width"`
	TileHeight float64 `json:"tile_height"`
}

// GameConfig represents the game configuration from JSON
type GameConfig struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	SceneKey         string    `json:"scene_key"`
	Symbols          SymbolSet `json:"symbols"`
	Columns          int       `json:"columns"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
	SettleDelayMs    int       `json:"settle_delay_ms"`
	ReshuffleOnReset *bool     `json:"reshuffle_on_reset,omitempty"`
	Layout           Layout    `json:"layout"`
	Sounds           struct {
		Swap    string `json:"swap"`
		Win     string `json:"win"`
		Timeout string `json:"timeout"`
	} `json:"sounds"`
	Messages struct {
		Instructions string `json:"instructions"`
		Win          string `json:"win"`
		Timeout      string `json:"timeout"`
		Encourage    string `json:"encourage"`
		TimerFormat  string `json:"timer_format"`
	} `json:"messages"`
}

// SettleDelay returns the pause between a committed swap and validation
func (c *GameConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// ReshufflesOnReset defaults to true when unset
func (c *GameConfig) ReshufflesOnReset() bool {
	return c.ReshuffleOnReset == nil || *c.ReshuffleOnReset
}

// Overlay names the modal shown on top of the board
type Overlay string

const (
	OverlayNone    Overlay = ""
	OverlayWin     Overlay = "win"
	OverlayTimeout Overlay = "timeout"
)

// GameState represents the complete game state exposed to the host
type GameState struct {
	Tiles            []Tile     `json:"tiles"`
	Columns          int        `json:"columns"`
	Phase            Phase      `json:"phase"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
	RemainingSeconds int        `json:"remaining_seconds"`
	TimerText        string     `json:"timer_text"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	CorrectCount     int        `json:"correct_count"`
	TotalTiles       int        `json:"total_tiles"`
	Interactive      bool       `json:"interactive"`
	Overlay          Overlay    `json:"overlay,omitempty"`
	FinalTime        string     `json:"final_time,omitempty"`
	Message          string     `json:"message"`
	ConfigName       string     `json:"config_name"`
	PendingChecks    int        `json:"pending_checks"`

	SwapHistory []SwapHistoryEntry `json:"swap_history"`
	TotalSwaps  int                `json:"total_swaps"`

	// CurrentSwaps tracks only the swaps since the last reset. SwapHistory is cumulative.
	CurrentSwaps      []SwapHistoryEntry `json:"current_swaps"`
	CurrentSwapsCount int                `json:"current_swaps_count"`
}

// SwapHistoryEntry records one committed swap
type SwapHistoryEntry struct {
	TileID       int    `json:"tile_id"`
	TargetID     int    `json:"target_id"`
	Symbol       string `json:"symbol"`
	TargetSymbol string `json:"target_symbol"`
	FromCell     Cell   `json:"from_cell"`
	ToCell       Cell   `json:"to_cell"`
	Timestamp    int64  `json:"timestamp"`
	SwapNumber   int    `json:"swap_number"`
}
