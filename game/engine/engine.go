package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	Phase() Phase
	IsWon() bool
	IsTimedOut() bool

	// Pointer interaction
	HandlePointer(ev PointerEvent) (*DropResult, error)
	DragStart(tileID int) error
	Drag(tileID int, x, y float64) error
	DragEnd(tileID int) (*DropResult, error)
	Swap(a, b int) (*DropResult, error)

	// Validation and timing
	Validate() ValidationResult
	Tick(now time.Time) TickResult

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetSwapHistory() []SwapHistoryEntry
	GetLastSwap() *SwapHistoryEntry

	// Host notifications
	DrainEvents() []Event
}

// EventType classifies engine notifications for the host
type EventType string

const (
	EventTimerStarted EventType = "timer_started"
	EventSwap         EventType = "swap"
	EventRevert       EventType = "revert"
	EventValidation   EventType = "validation"
	EventWin          EventType = "win"
	EventTimeout      EventType = "timeout"
	EventReset        EventType = "reset"
)

// Event is something the host should present: a sound cue, an overlay, a
// color change
type Event struct {
	Type       EventType `json:"type"`
	Message    string    `json:"message"`
	Cue        string    `json:"cue,omitempty"`
	StopSounds bool      `json:"stop_sounds,omitempty"`
	TileID     *int      `json:"tile_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TickResult is the outcome of one timer tick
type TickResult struct {
	Phase     Phase  `json:"phase"`
	Remaining int    `json:"remaining_seconds"`
	Text      string `json:"timer_text"`
	TimedOut  bool   `json:"timed_out"` // true only on the tick that fired the timeout
	Changed   bool   `json:"changed"`
}

// Option customizes a GameEngine
type Option func(*GameEngine)

// WithClock sets the clock used for drag-start timestamps
func WithClock(c Clock) Option {
	return func(e *GameEngine) { e.clock = c }
}

// WithScheduler sets the scheduler used for the settle delay
func WithScheduler(s Scheduler) Option {
	return func(e *GameEngine) { e.scheduler = s }
}

// WithShuffler sets the random source used to deal tiles
func WithShuffler(s Shuffler) Option {
	return func(e *GameEngine) { e.shuffler = s }
}

// WithDropTargetFinder replaces the default cell-overlap drop resolution
func WithDropTargetFinder(f DropTargetFinder) Option {
	return func(e *GameEngine) { e.finder = f }
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; callers serialize access, including scheduled validations.
type GameEngine struct {
	config  *GameConfig
	symbols []string

	grid       *Grid
	countdown  *Countdown
	dispatcher *Dispatcher
	controller *DragController

	clock     Clock
	scheduler Scheduler
	shuffler  Shuffler
	finder    DropTargetFinder

	phase         Phase
	endedAt       time.Time
	remaining     int
	message       string
	generation    int
	pendingChecks int

	history      []SwapHistoryEntry
	totalSwaps   int
	currentSwaps []SwapHistoryEntry

	events []Event
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		clock:     SystemClock,
		scheduler: RealScheduler,
		shuffler:  DefaultShuffler,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.load(config); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineWithDefaults creates an engine for the alphabet game
func NewEngineWithDefaults(opts ...Option) *GameEngine {
	e, err := NewEngine(DefaultAlphabetConfig(), opts...)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return e
}

// load builds a fresh session for config
func (e *GameEngine) load(config *GameConfig) error {
	symbols, err := Symbols(config.Symbols)
	if err != nil {
		return err
	}
	e.config = config
	e.symbols = symbols
	e.dispatcher = NewDispatcher()
	e.grid = NewGrid(symbols, config.Columns, e.shuffler)
	e.countdown = NewCountdown(config.TimeLimitSeconds)

	finder := e.finder
	if finder == nil {
		finder = CellOverlapFinder{Layout: config.Layout}
	}
	e.controller = NewDragController(e.grid, config.Layout, finder, e.dispatcher)
	e.controller.onStart = e.onDragStart
	e.controller.onCommit = e.onCommit
	e.controller.onRevert = e.onRevert

	e.history = []SwapHistoryEntry{}
	e.totalSwaps = 0
	e.events = nil
	e.begin()
	return nil
}

// begin puts the current grid into a fresh Idle session
func (e *GameEngine) begin() {
	e.generation++
	e.pendingChecks = 0
	e.phase = PhaseIdle
	e.endedAt = time.Time{}
	e.countdown.Reset()
	e.remaining = e.countdown.Limit()
	e.message = e.config.Messages.Instructions
	e.currentSwaps = []SwapHistoryEntry{}

	for _, t := range e.grid.Tiles {
		t.Correct = false
	}
	e.controller.SnapAll()
	e.controller.SetInteractive(true)
	e.controller.Detach()
	e.controller.Attach()
}

// SetScheduler swaps the scheduler used for future settle delays
func (e *GameEngine) SetScheduler(s Scheduler) {
	e.scheduler = s
}

// Grid exposes the tile set
func (e *GameEngine) Grid() *Grid {
	return e.grid
}

// Dispatcher exposes the session's input subscriptions
func (e *GameEngine) Dispatcher() *Dispatcher {
	return e.dispatcher
}

// Phase returns the session phase
func (e *GameEngine) Phase() Phase {
	return e.phase
}

// IsWon returns whether every tile was placed in order
func (e *GameEngine) IsWon() bool {
	return e.phase == PhaseWon
}

// IsTimedOut returns whether the countdown ran out
func (e *GameEngine) IsTimedOut() bool {
	return e.phase == PhaseTimedOut
}

// PendingChecks returns the number of validations waiting on the settle delay
func (e *GameEngine) PendingChecks() int {
	return e.pendingChecks
}

// HandlePointer feeds a host pointer event to the session. A session whose
// time ran out since the last tick times out first and rejects the event.
func (e *GameEngine) HandlePointer(ev PointerEvent) (*DropResult, error) {
	e.expire()
	if err := e.dispatcher.Dispatch(ev); err != nil {
		return nil, err
	}
	if ev.Type == PointerDragEnd {
		return e.controller.LastDrop(), nil
	}
	return nil, nil
}

// DragStart picks up a tile
func (e *GameEngine) DragStart(tileID int) error {
	_, err := e.HandlePointer(PointerEvent{Type: PointerDragStart, TileID: tileID})
	return err
}

// Drag moves a picked-up tile without committing it
func (e *GameEngine) Drag(tileID int, x, y float64) error {
	_, err := e.HandlePointer(PointerEvent{Type: PointerDrag, TileID: tileID, X: x, Y: y})
	return err
}

// DragEnd drops a tile at its current position
func (e *GameEngine) DragEnd(tileID int) (*DropResult, error) {
	return e.HandlePointer(PointerEvent{Type: PointerDragEnd, TileID: tileID})
}

// Swap exchanges two tiles directly, as if one had been dropped on the other
func (e *GameEngine) Swap(a, b int) (*DropResult, error) {
	e.expire()
	return e.controller.SwapTiles(a, b)
}

func (e *GameEngine) onDragStart(t *Tile) {
	if e.phase != PhaseIdle {
		return
	}
	now := e.clock.Now()
	if e.countdown.Start(now) {
		e.phase = PhaseRunning
		e.remaining = e.countdown.Remaining(now)
		e.emit(Event{Type: EventTimerStarted, Message: e.timerText(e.remaining)})
	}
}

func (e *GameEngine) onCommit(t, target *Tile, from Cell) {
	e.totalSwaps++
	entry := SwapHistoryEntry{
		TileID:       t.ID,
		TargetID:     target.ID,
		Symbol:       t.Symbol,
		TargetSymbol: target.Symbol,
		FromCell:     from,
		ToCell:       t.Cell,
		Timestamp:    e.clock.Now().Unix(),
		SwapNumber:   e.totalSwaps,
	}
	// Append to cumulative history (never cleared by reset) and to the current segment
	e.history = append(e.history, entry)
	e.currentSwaps = append(e.currentSwaps, entry)

	id := t.ID
	e.emit(Event{
		Type:    EventSwap,
		Message: fmt.Sprintf("Swapped %s and %s", t.Symbol, target.Symbol),
		Cue:     e.config.Sounds.Swap,
		TileID:  &id,
	})
	e.scheduleValidation()
}

func (e *GameEngine) onRevert(t *Tile) {
	id := t.ID
	e.emit(Event{Type: EventRevert, Message: fmt.Sprintf("%s returned to its place", t.Symbol), TileID: &id})
}

// scheduleValidation runs Validate after the settle delay. Callbacks that
// outlive a reset are ignored.
func (e *GameEngine) scheduleValidation() {
	delay := e.config.SettleDelay()
	if delay <= 0 || e.scheduler == nil {
		e.Validate()
		return
	}
	gen := e.generation
	e.pendingChecks++
	e.scheduler.AfterFunc(delay, func() {
		if gen != e.generation {
			return
		}
		e.pendingChecks--
		e.Validate()
	})
}

// Validate recomputes per-tile correctness and declares the win once
func (e *GameEngine) Validate() ValidationResult {
	res := e.grid.Validate()
	e.emit(Event{
		Type:    EventValidation,
		Message: fmt.Sprintf("%d of %d in place", res.CorrectCount, res.Total),
	})
	e.expire()
	if res.Complete() && !e.phase.Terminal() {
		e.win()
	}
	return res
}

func (e *GameEngine) win() {
	now := e.clock.Now()
	e.phase = PhaseWon
	e.endedAt = now
	e.remaining = e.countdown.Remaining(now)
	e.controller.SetInteractive(false)
	e.controller.Detach()
	e.message = e.config.Messages.Win
	e.emit(Event{
		Type:    EventWin,
		Message: fmt.Sprintf("%s Time: %s", e.config.Messages.Win, e.finalTime()),
		Cue:     e.config.Sounds.Win,
	})
}

func (e *GameEngine) timeout(now time.Time) {
	e.phase = PhaseTimedOut
	e.endedAt = now
	e.remaining = 0
	e.controller.SetInteractive(false)
	e.controller.Detach()
	e.message = e.config.Messages.Timeout
	e.emit(Event{
		Type:    EventTimeout,
		Message: fmt.Sprintf("%s %s", e.config.Messages.Timeout, e.config.Messages.Encourage),
		Cue:     e.config.Sounds.Timeout,
	})
}

// expire times out a running session whose limit has passed between ticks.
// Input and delayed validations call it so a win never lands past the deadline.
func (e *GameEngine) expire() bool {
	if e.phase != PhaseRunning || !e.countdown.Started() {
		return false
	}
	now := e.clock.Now()
	if e.countdown.Remaining(now) > 0 {
		return false
	}
	e.timeout(now)
	return true
}

// Tick advances the countdown. Ticks before the first drag and after a
// terminal transition change nothing.
func (e *GameEngine) Tick(now time.Time) TickResult {
	if e.phase != PhaseRunning || !e.countdown.Started() {
		return TickResult{Phase: e.phase, Remaining: e.remaining, Text: e.timerText(e.remaining)}
	}

	prev := e.remaining
	rem := e.countdown.Remaining(now)
	res := TickResult{}
	if rem <= 0 {
		e.timeout(now)
		res.TimedOut = true
		rem = 0
	} else {
		e.remaining = rem
	}
	res.Phase = e.phase
	res.Remaining = rem
	res.Text = e.timerText(rem)
	res.Changed = res.TimedOut || rem != prev
	return res
}

// Reset returns the session to Idle with interaction re-enabled. Tiles are
// dealt again unless the config keeps the arrangement.
func (e *GameEngine) Reset() *GameState {
	if e.config.ReshufflesOnReset() {
		e.grid = NewGrid(e.symbols, e.config.Columns, e.shuffler)
		e.controller.SetGrid(e.grid)
	}
	e.begin()
	e.emit(Event{Type: EventReset, Message: "Game reset to initial state", StopSounds: true})
	return e.GetState()
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and starts over
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}
	e.controller.Detach()
	return e.load(config)
}

// GetSwapHistory returns the complete swap history
func (e *GameEngine) GetSwapHistory() []SwapHistoryEntry {
	return e.history
}

// GetLastSwap returns the last swap made, or nil if no swaps
func (e *GameEngine) GetLastSwap() *SwapHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// DrainEvents returns and clears the queued host notifications
func (e *GameEngine) DrainEvents() []Event {
	out := e.events
	e.events = nil
	return out
}

func (e *GameEngine) emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.clock.Now()
	}
	e.events = append(e.events, ev)
}

func (e *GameEngine) timerText(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf(e.config.Messages.TimerFormat, seconds/60, seconds%60)
}

// finalTime is the elapsed play time of a finished session
func (e *GameEngine) finalTime() string {
	start, ok := e.countdown.StartedAt()
	if !ok || e.endedAt.IsZero() {
		return FormatClock(0)
	}
	return FormatClock(Elapsed(start, e.endedAt))
}
