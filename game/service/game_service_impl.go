package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wricardo/adventure-games/game/engine"
	"github.com/wricardo/adventure-games/game/home"
)

// Option customizes the game service
type Option func(*gameServiceImpl)

// WithScheduler sets the scheduler that runs settle-delay validations
func WithScheduler(s engine.Scheduler) Option {
	return func(svc *gameServiceImpl) { svc.scheduler = s }
}

// WithClock sets the clock used for timer ticks
func WithClock(c engine.Clock) Option {
	return func(svc *gameServiceImpl) { svc.clock = c }
}

// WithNotifier sets the receiver of out-of-band state changes
func WithNotifier(n Notifier) Option {
	return func(svc *gameServiceImpl) { svc.notifier = n }
}

// WithMenu replaces the default home menu
func WithMenu(m *home.Menu) Option {
	return func(svc *gameServiceImpl) { svc.menu = m }
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	menu      *home.Menu
	scheduler engine.Scheduler
	clock     engine.Clock
	notifier  Notifier
	mu        sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:  sessions,
		configs:   configs,
		menu:      home.DefaultMenu(),
		scheduler: engine.RealScheduler,
		clock:     engine.SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// session looks up a session. Callers hold s.mu.
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, err)
		}
		return nil, fmt.Errorf("session %s: %w: %v", sessionID, ErrSessionNotFound, err)
	}
	return sess, nil
}

// writable looks up a session about to change and routes its settle-delay
// callbacks through the service lock. Callers hold s.mu for writing.
func (s *gameServiceImpl) writable(sessionID string) (*Session, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Engine.SetScheduler(lockedScheduler{svc: s, sessionID: sess.ID})
	return sess, nil
}

func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess.Config.Name),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

func (s *gameServiceImpl) save(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after %s: %v", sessionID, after, err)
	}
}

func (s *gameServiceImpl) notify(sessionID string, state *engine.GameState, events []GameEvent) {
	if s.notifier == nil || state == nil {
		return
	}
	s.notifier.NotifySession(sessionID, state, events)
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.Engine.SetScheduler(lockedScheduler{svc: s, sessionID: sess.ID})
	sess.Engine.DrainEvents()

	info := s.info(sess)
	if configName != "" {
		info.ConfigName = configName
	}
	return info, nil
}

// GetSession retrieves session information. It takes the write lock since
// touching the access time writes to the session.
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}
		return err
	}
	return nil
}

func pointerResult(sess *Session, tileID int, events []GameEvent) (*PointerResult, error) {
	tile, err := sess.Engine.Grid().Tile(tileID)
	if err != nil {
		return nil, err
	}
	state := sess.Engine.GetState()
	return &PointerResult{
		Success:   true,
		TileID:    tileID,
		Tile:      *tile,
		Phase:     state.Phase,
		TimerText: state.TimerText,
		Events:    events,
	}, nil
}

// DragStart picks up a tile. The first drag of a session starts its timer.
func (s *gameServiceImpl) DragStart(ctx context.Context, sessionID string, tileID int) (*PointerResult, error) {
	s.mu.Lock()
	sess, err := s.writable(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	if err := sess.Engine.DragStart(tileID); err != nil {
		return nil, s.rejected(sess, err)
	}
	events := toGameEvents(sess.Engine.DrainEvents())
	res, err := pointerResult(sess, tileID, events)
	state := sess.Engine.GetState()
	s.mu.Unlock()

	if len(events) > 0 {
		s.notify(sessionID, state, events)
	}
	return res, err
}

// Drag moves a picked-up tile. Nothing is committed or persisted.
func (s *gameServiceImpl) Drag(ctx context.Context, sessionID string, tileID int, x, y float64) (*PointerResult, error) {
	s.mu.Lock()
	sess, err := s.writable(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := sess.Engine.Drag(tileID, x, y); err != nil {
		return nil, s.rejected(sess, err)
	}
	res, err := pointerResult(sess, tileID, nil)
	s.mu.Unlock()
	return res, err
}

// DragEnd drops a tile, at pos when given, and swaps or reverts it
func (s *gameServiceImpl) DragEnd(ctx context.Context, sessionID string, tileID int, pos *engine.Point) (*DropResult, error) {
	s.mu.Lock()
	sess, err := s.writable(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	ev := engine.PointerEvent{Type: engine.PointerDragEnd, TileID: tileID}
	if pos != nil {
		ev.X, ev.Y, ev.HasPos = pos.X, pos.Y, true
	}
	drop, err := sess.Engine.HandlePointer(ev)
	if err != nil {
		return nil, s.rejected(sess, err)
	}
	result := s.dropResult(sess, drop)
	s.save(sessionID, "drop")
	s.mu.Unlock()

	s.notify(sessionID, result.GameState, result.Events)
	return result, nil
}

// Swap exchanges two tiles directly, as if tileID had been dropped on targetID
func (s *gameServiceImpl) Swap(ctx context.Context, sessionID string, tileID, targetID int) (*DropResult, error) {
	s.mu.Lock()
	sess, err := s.writable(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	drop, err := sess.Engine.Swap(tileID, targetID)
	if err != nil {
		return nil, s.rejected(sess, err)
	}
	result := s.dropResult(sess, drop)
	s.save(sessionID, "swap")
	s.mu.Unlock()

	s.notify(sessionID, result.GameState, result.Events)
	return result, nil
}

// rejected releases s.mu after the engine turned an input away, publishing
// anything it did first, such as a timeout noticed on a late move
func (s *gameServiceImpl) rejected(sess *Session, err error) error {
	events := toGameEvents(sess.Engine.DrainEvents())
	if len(events) == 0 {
		s.mu.Unlock()
		return err
	}
	state := sess.Engine.GetState()
	s.save(sess.ID, "rejected input")
	s.mu.Unlock()

	s.notify(sess.ID, state, events)
	return err
}

func (s *gameServiceImpl) dropResult(sess *Session, drop *engine.DropResult) *DropResult {
	events := toGameEvents(sess.Engine.DrainEvents())
	state := sess.Engine.GetState()
	result := &DropResult{
		Success:   true,
		GameState: state,
		Message:   state.Message,
		Events:    events,
	}
	if drop == nil {
		return result
	}
	result.Swapped = drop.Swapped
	result.TileID = drop.TileID
	result.TargetID = drop.TargetID
	result.FromCell = drop.FromCell
	result.ToCell = drop.ToCell
	if drop.Swapped {
		result.Swap = sess.Engine.GetLastSwap()
	}
	if len(events) > 0 {
		result.Message = events[len(events)-1].Message
	}
	return result
}

// Tick advances the countdown of one session
func (s *gameServiceImpl) Tick(ctx context.Context, sessionID string) (*TickResult, error) {
	s.mu.Lock()
	sess, err := s.writable(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	result, state := s.tick(sess)
	s.mu.Unlock()

	if result.Tick.Changed {
		s.notify(sessionID, state, result.Events)
	}
	return result, nil
}

// TickAll advances every running session and returns those whose timer
// display changed
func (s *gameServiceImpl) TickAll(ctx context.Context) ([]*TickResult, error) {
	type change struct {
		result *TickResult
		state  *engine.GameState
	}

	s.mu.Lock()
	var changes []change
	for _, sess := range s.sessions.List() {
		if err := ctx.Err(); err != nil {
			break
		}
		if sess.Engine.Phase() != engine.PhaseRunning {
			continue
		}
		sess.Engine.SetScheduler(lockedScheduler{svc: s, sessionID: sess.ID})
		result, state := s.tick(sess)
		if result.Tick.Changed {
			changes = append(changes, change{result, state})
		}
	}
	s.mu.Unlock()

	results := make([]*TickResult, 0, len(changes))
	for _, c := range changes {
		s.notify(c.result.SessionID, c.state, c.result.Events)
		results = append(results, c.result)
	}
	return results, ctx.Err()
}

// tick runs one timer tick. Callers hold s.mu.
func (s *gameServiceImpl) tick(sess *Session) (*TickResult, *engine.GameState) {
	res := sess.Engine.Tick(s.clock.Now())
	result := &TickResult{
		SessionID: sess.ID,
		Tick:      res,
		Events:    toGameEvents(sess.Engine.DrainEvents()),
	}
	if res.TimedOut {
		s.save(sess.ID, "timeout")
	}
	return result, sess.Engine.GetState()
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	sess, err := s.writable(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)

	state := sess.Engine.Reset()
	events := toGameEvents(sess.Engine.DrainEvents())
	s.save(sessionID, "reset")
	s.mu.Unlock()

	s.notify(sessionID, state, events)
	return state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetState(), nil
}

// GetSwapHistory returns paginated swap history
func (s *gameServiceImpl) GetSwapHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetSwapHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > engine.MaxHistoryPageSize {
		opts.Limit = engine.MaxHistoryPageSize
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var swaps []engine.SwapHistoryEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			swaps = append(swaps, history[i])
		}
	} else if start < total {
		swaps = append(swaps, history[start:end]...)
	}

	if swaps == nil {
		swaps = []engine.SwapHistoryEntry{}
	}

	return &HistoryResponse{
		Swaps:       swaps,
		TotalSwaps:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// HomeMenu returns the game cards, each with the config it starts
func (s *gameServiceImpl) HomeMenu(ctx context.Context) (*HomeMenu, error) {
	configs, err := s.configs.ListConfigs()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*ConfigInfo, len(configs))
	for _, c := range configs {
		byID[c.ConfigID] = c
	}

	menu := &HomeMenu{
		Title:    s.menu.Title,
		Subtitle: s.menu.Subtitle,
		Games:    make([]HomeMenuEntry, 0, len(s.menu.Buttons)),
	}
	for _, b := range s.menu.Buttons {
		entry := HomeMenuEntry{GameButton: b, ColorHex: b.ColorHex(), ConfigInfo: byID[b.ConfigID]}
		// a card without a loadable config cannot start a session
		if entry.ConfigInfo == nil {
			entry.Available = false
		}
		menu.Games = append(menu.Games, entry)
	}
	return menu, nil
}

// lockedScheduler runs settle-delay callbacks under the service lock and
// publishes whatever they changed
type lockedScheduler struct {
	svc       *gameServiceImpl
	sessionID string
}

func (l lockedScheduler) AfterFunc(d time.Duration, f func()) engine.Timer {
	return l.svc.scheduler.AfterFunc(d, func() {
		var state *engine.GameState
		var events []GameEvent

		l.svc.mu.Lock()
		f()
		if sess, err := l.svc.sessions.Get(l.sessionID); err == nil {
			events = toGameEvents(sess.Engine.DrainEvents())
			state = sess.Engine.GetState()
			if state.Phase.Terminal() {
				l.svc.save(l.sessionID, string(state.Phase))
			}
		}
		l.svc.mu.Unlock()

		l.svc.notify(l.sessionID, state, events)
	})
}
