package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/wricardo/adventure-games/game/config"
	"github.com/wricardo/adventure-games/game/engine"
	"github.com/wricardo/adventure-games/game/service"
	"github.com/wricardo/adventure-games/game/session"
	"github.com/wricardo/adventure-games/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateSessionFunc  func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc     func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc   func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc  func(ctx context.Context, sessionID string) error
	DragStartFunc      func(ctx context.Context, sessionID string, tileID int) (*service.PointerResult, error)
	DragFunc           func(ctx context.Context, sessionID string, tileID int, x, y float64) (*service.PointerResult, error)
	DragEndFunc        func(ctx context.Context, sessionID string, tileID int, pos *engine.Point) (*service.DropResult, error)
	SwapFunc           func(ctx context.Context, sessionID string, tileID, targetID int) (*service.DropResult, error)
	TickFunc           func(ctx context.Context, sessionID string) (*service.TickResult, error)
	ResetFunc          func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetGameStateFunc   func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetSwapHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	ListConfigsFunc    func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc     func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc     func(ctx context.Context, configName string, config *engine.GameConfig) error
}

func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "alphabet", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) DragStart(ctx context.Context, sessionID string, tileID int) (*service.PointerResult, error) {
	if m.DragStartFunc != nil {
		return m.DragStartFunc(ctx, sessionID, tileID)
	}
	return &service.PointerResult{Success: true, TileID: tileID}, nil
}

func (m *MockGameService) Drag(ctx context.Context, sessionID string, tileID int, x, y float64) (*service.PointerResult, error) {
	if m.DragFunc != nil {
		return m.DragFunc(ctx, sessionID, tileID, x, y)
	}
	return &service.PointerResult{Success: true, TileID: tileID}, nil
}

func (m *MockGameService) DragEnd(ctx context.Context, sessionID string, tileID int, pos *engine.Point) (*service.DropResult, error) {
	if m.DragEndFunc != nil {
		return m.DragEndFunc(ctx, sessionID, tileID, pos)
	}
	return &service.DropResult{Success: true, TileID: tileID, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Swap(ctx context.Context, sessionID string, tileID, targetID int) (*service.DropResult, error) {
	if m.SwapFunc != nil {
		return m.SwapFunc(ctx, sessionID, tileID, targetID)
	}
	return &service.DropResult{Success: true, Swapped: true, TileID: tileID, TargetID: &targetID, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Tick(ctx context.Context, sessionID string) (*service.TickResult, error) {
	if m.TickFunc != nil {
		return m.TickFunc(ctx, sessionID)
	}
	return &service.TickResult{SessionID: sessionID}, nil
}

func (m *MockGameService) TickAll(ctx context.Context) ([]*service.TickResult, error) {
	return nil, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetSwapHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetSwapHistoryFunc != nil {
		return m.GetSwapHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Swaps: []engine.SwapHistoryEntry{}, Page: opts.Page, PageSize: opts.Limit}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return engine.DefaultAlphabetConfig(), nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

func (m *MockGameService) HomeMenu(ctx context.Context) (*service.HomeMenu, error) {
	return &service.HomeMenu{Title: "Adventure Games"}, nil
}

func makeRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(s http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
}

func TestCreateSession(t *testing.T) {
	var got string
	server := NewServer(&MockGameService{
		CreateSessionFunc: func(ctx context.Context, configName string) (*service.SessionInfo, error) {
			got = configName
			if configName == "missing" {
				return nil, fmt.Errorf("%w: 'missing'", service.ErrConfigNotFound)
			}
			return &service.SessionInfo{ID: "ab12", ConfigName: configName}, nil
		},
	}, nil)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantConfig string
	}{
		{"config_id", map[string]string{"config_id": "numbers"}, http.StatusCreated, "numbers"},
		{"legacy config_name", map[string]string{"config_name": "alphabet"}, http.StatusCreated, "alphabet"},
		{"empty body uses default", nil, http.StatusCreated, ""},
		{"unknown config", map[string]string{"config_id": "missing"}, http.StatusNotFound, "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, makeRequest("POST", "/api/sessions", tt.body))
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if got != tt.wantConfig {
				t.Errorf("Expected config %q passed to service, got %q", tt.wantConfig, got)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	server := NewServer(&MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "a", ConfigName: "alphabet", CreatedAt: now.Add(-3 * time.Minute), LastAccessedAt: now.Add(-1 * time.Minute)},
				{ID: "b", ConfigName: "numbers", CreatedAt: now.Add(-2 * time.Minute), LastAccessedAt: now.Add(-3 * time.Minute)},
				{ID: "c", ConfigName: "alphabet", CreatedAt: now.Add(-1 * time.Minute), LastAccessedAt: now.Add(-2 * time.Minute)},
			}, nil
		},
	}, nil)

	type listResponse struct {
		Count    int                    `json:"count"`
		Total    int                    `json:"total"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	ids := func(r listResponse) string {
		var parts []string
		for _, s := range r.Sessions {
			parts = append(parts, s.ID)
		}
		return strings.Join(parts, ",")
	}

	tests := []struct {
		query string
		want  string
		total int
	}{
		{"", "a,c,b", 3},
		{"?sort=created&order=asc", "a,b,c", 3},
		{"?limit=2", "a,c", 3},
		{"?config=alphabet", "a,c", 2},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := serve(server, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			var resp listResponse
			parseResponse(t, w, &resp)
			if ids(resp) != tt.want {
				t.Errorf("Expected order %s, got %s", tt.want, ids(resp))
			}
			if resp.Total != tt.total {
				t.Errorf("Expected total %d, got %d", tt.total, resp.Total)
			}
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("session x: %w", service.ErrSessionNotFound), http.StatusNotFound},
		{service.ErrConfigNotFound, http.StatusNotFound},
		{engine.ErrInputDetached, http.StatusConflict},
		{engine.ErrTileNotInteractive, http.StatusConflict},
		{engine.ErrTileNotDragging, http.StatusConflict},
		{engine.ErrTileNotFound, http.StatusBadRequest},
		{engine.ErrSameTile, http.StatusBadRequest},
		{service.ErrInvalidConfig, http.StatusBadRequest},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPointerEndpoints(t *testing.T) {
	var dragX, dragY float64
	var endPos *engine.Point
	server := NewServer(&MockGameService{
		DragFunc: func(ctx context.Context, sessionID string, tileID int, x, y float64) (*service.PointerResult, error) {
			dragX, dragY = x, y
			return &service.PointerResult{Success: true, TileID: tileID}, nil
		},
		DragEndFunc: func(ctx context.Context, sessionID string, tileID int, pos *engine.Point) (*service.DropResult, error) {
			endPos = pos
			return &service.DropResult{Success: true, TileID: tileID, GameState: &engine.GameState{}}, nil
		},
		DragStartFunc: func(ctx context.Context, sessionID string, tileID int) (*service.PointerResult, error) {
			if tileID == 99 {
				return nil, engine.ErrTileNotFound
			}
			return nil, engine.ErrInputDetached
		},
	}, nil)

	t.Run("drag forwards position", func(t *testing.T) {
		w := serve(server, makeRequest("POST", "/api/sessions/ab12/drag", map[string]any{"tile_id": 3, "x": 120.5, "y": 88}))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if dragX != 120.5 || dragY != 88 {
			t.Errorf("Expected (120.5, 88), got (%v, %v)", dragX, dragY)
		}
	})

	t.Run("drag without position", func(t *testing.T) {
		w := serve(server, makeRequest("POST", "/api/sessions/ab12/drag", map[string]any{"tile_id": 3}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("tile_id is required", func(t *testing.T) {
		w := serve(server, makeRequest("POST", "/api/sessions/ab12/drag-end", map[string]any{}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("drag end without position", func(t *testing.T) {
		w := serve(server, makeRequest("POST", "/api/sessions/ab12/drag-end", map[string]any{"tile_id": 0}))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if endPos != nil {
			t.Errorf("Expected nil drop position, got %+v", endPos)
		}
	})

	t.Run("drag end with position", func(t *testing.T) {
		serve(server, makeRequest("POST", "/api/sessions/ab12/drag-end", map[string]any{"tile_id": 0, "x": 10, "y": 20}))
		if endPos == nil || endPos.X != 10 || endPos.Y != 20 {
			t.Errorf("Expected drop position (10, 20), got %+v", endPos)
		}
	})

	t.Run("detached input is a conflict", func(t *testing.T) {
		w := serve(server, makeRequest("POST", "/api/sessions/ab12/drag-start", map[string]any{"tile_id": 1}))
		if w.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d", w.Code)
		}
	})

	t.Run("unknown tile is a bad request", func(t *testing.T) {
		w := serve(server, makeRequest("POST", "/api/sessions/ab12/drag-start", map[string]any{"tile_id": 99}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions/ab12/swap", strings.NewReader("{"))
		w := serve(server, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestGetHistoryParams(t *testing.T) {
	var got service.HistoryOptions
	server := NewServer(&MockGameService{
		GetSwapHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
			got = opts
			return &service.HistoryResponse{}, nil
		},
	}, nil)

	serve(server, makeRequest("GET", "/api/sessions/ab12/history", nil))
	if got.Page != 1 || got.Limit != 20 || got.Order != "desc" {
		t.Errorf("Unexpected defaults: %+v", got)
	}

	serve(server, makeRequest("GET", "/api/sessions/ab12/history?page=3&limit=5&order=asc", nil))
	if got.Page != 3 || got.Limit != 5 || got.Order != "asc" {
		t.Errorf("Unexpected parsed options: %+v", got)
	}

	serve(server, makeRequest("GET", "/api/sessions/ab12/history?page=-1&order=sideways", nil))
	if got.Page != 1 || got.Order != "desc" {
		t.Errorf("Invalid params should fall back to defaults: %+v", got)
	}
}

func TestCreateConfig(t *testing.T) {
	server := NewServer(&MockGameService{
		SaveConfigFunc: func(ctx context.Context, name string, config *engine.GameConfig) error {
			if config.Columns == 0 {
				return fmt.Errorf("%w: columns", service.ErrInvalidConfig)
			}
			return nil
		},
	}, nil)

	w := serve(server, makeRequest("POST", "/api/configs", engine.DefaultNumbersConfig()))
	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	bad := engine.DefaultNumbersConfig()
	bad.Columns = 0
	w = serve(server, makeRequest("POST", "/api/configs", bad))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}

	w = serve(server, makeRequest("POST", "/api/configs", map[string]string{"description": "no name"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing name, got %d", w.Code)
	}
}

// stack wires the real service over in-memory sessions and built-in configs
type stack struct {
	server    *Server
	hub       *websocket.Hub
	scheduler *engine.ManualScheduler
}

type sortedShuffler struct{}

func (sortedShuffler) Shuffle(n int, swap func(i, j int)) {}

func newStack(t *testing.T) *stack {
	t.Helper()
	configs, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	scheduler := &engine.ManualScheduler{}
	sessions := session.NewManager(engine.WithShuffler(sortedShuffler{}))
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	svc := service.NewGameService(sessions, configs,
		service.WithScheduler(scheduler),
		service.WithNotifier(hub))
	return &stack{server: NewServer(svc, hub, WithStaticDir(t.TempDir())), hub: hub, scheduler: scheduler}
}

func (s *stack) createSession(t *testing.T, configID string) *service.SessionInfo {
	t.Helper()
	w := serve(s.server, makeRequest("POST", "/api/sessions", map[string]string{"config_id": configID}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create session: %d %s", w.Code, w.Body.String())
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)
	return &info
}

func TestGameFlowEndToEnd(t *testing.T) {
	st := newStack(t)
	info := st.createSession(t, "numbers")

	if info.GameState.Phase != engine.PhaseIdle || info.GameState.TotalTiles != 20 {
		t.Fatalf("Unexpected initial state: %+v", info.GameState)
	}
	base := "/api/sessions/" + info.ID

	// tile 0 onto tile 1 and back leaves the board sorted
	for i := 0; i < 2; i++ {
		w := serve(st.server, makeRequest("POST", base+"/swap", map[string]int{"tile_id": 0, "target_id": 1}))
		if w.Code != http.StatusOK {
			t.Fatalf("Swap failed: %d %s", w.Code, w.Body.String())
		}
	}

	var state engine.GameState
	parseResponse(t, serve(st.server, makeRequest("GET", base+"/state", nil)), &state)
	if state.Phase != engine.PhaseRunning {
		t.Fatalf("Expected running before validation settles, got %s", state.Phase)
	}

	st.scheduler.Advance(time.Second)

	parseResponse(t, serve(st.server, makeRequest("GET", base+"/state", nil)), &state)
	if state.Phase != engine.PhaseWon || state.Overlay != engine.OverlayWin {
		t.Fatalf("Expected won with overlay, got %s %q", state.Phase, state.Overlay)
	}
	if state.Interactive {
		t.Error("Won board should not accept input")
	}

	w := serve(st.server, makeRequest("POST", base+"/drag-start", map[string]int{"tile_id": 2}))
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for input after win, got %d", w.Code)
	}

	var history service.HistoryResponse
	parseResponse(t, serve(st.server, makeRequest("GET", base+"/history?order=asc", nil)), &history)
	if history.TotalSwaps != 2 || history.Swaps[0].SwapNumber != 1 {
		t.Errorf("Unexpected history: %+v", history)
	}

	w = serve(st.server, makeRequest("POST", base+"/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Reset failed: %d", w.Code)
	}
	parseResponse(t, serve(st.server, makeRequest("GET", base+"/state", nil)), &state)
	if state.Phase != engine.PhaseIdle || !state.Interactive {
		t.Errorf("Expected interactive idle board after reset, got %s interactive=%v", state.Phase, state.Interactive)
	}
}

func TestSessionNotFound(t *testing.T) {
	st := newStack(t)
	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/sessions/zzzz"},
		{"GET", "/api/sessions/zzzz/state"},
		{"POST", "/api/sessions/zzzz/tick"},
		{"POST", "/api/sessions/zzzz/reset"},
		{"DELETE", "/api/sessions/zzzz"},
	} {
		w := serve(st.server, makeRequest(tc.method, tc.path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestHomeAndConfigs(t *testing.T) {
	st := newStack(t)

	var menu service.HomeMenu
	w := serve(st.server, makeRequest("GET", "/api/home", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	parseResponse(t, w, &menu)
	if len(menu.Games) == 0 {
		t.Fatal("Expected games on the home menu")
	}
	for _, g := range menu.Games {
		if g.Available && g.ConfigInfo == nil {
			t.Errorf("Available game %q has no config", g.Title)
		}
	}

	var configs []service.ConfigInfo
	parseResponse(t, serve(st.server, makeRequest("GET", "/api/configs", nil)), &configs)
	if len(configs) != 2 {
		t.Errorf("Expected the two built-in configs, got %d", len(configs))
	}

	w = serve(st.server, makeRequest("GET", "/api/configs/numbers.json", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for numbers.json, got %d", w.Code)
	}
	w = serve(st.server, makeRequest("GET", "/api/configs/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown config, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	st := newStack(t)
	st.createSession(t, "alphabet")

	var resp struct {
		Status   string         `json:"status"`
		Sessions int            `json:"sessions"`
		Phases   map[string]int `json:"phases"`
	}
	parseResponse(t, serve(st.server, makeRequest("GET", "/health", nil)), &resp)
	if resp.Status != "healthy" || resp.Sessions != 1 || resp.Phases["idle"] != 1 {
		t.Errorf("Unexpected health response: %+v", resp)
	}
}

func TestWebSocket(t *testing.T) {
	st := newStack(t)
	info := st.createSession(t, "numbers")

	ts := httptest.NewServer(st.server)
	defer ts.Close()
	wsBase := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	t.Run("missing session parameter", func(t *testing.T) {
		_, resp, err := gorillaws.DefaultDialer.Dial(wsBase, nil)
		if err == nil {
			t.Fatal("Expected dial to fail")
		}
		if resp == nil || resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %v", resp)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		_, resp, err := gorillaws.DefaultDialer.Dial(wsBase+"?session=zzzz", nil)
		if err == nil {
			t.Fatal("Expected dial to fail")
		}
		if resp == nil || resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected 404, got %v", resp)
		}
	})

	t.Run("snapshot then swap update", func(t *testing.T) {
		conn, _, err := gorillaws.DefaultDialer.Dial(wsBase+"?session="+info.ID, nil)
		if err != nil {
			t.Fatalf("Failed to connect: %v", err)
		}
		defer conn.Close()

		read := func() websocket.Message {
			conn.SetReadDeadline(time.Now().Add(time.Second))
			var m websocket.Message
			if err := conn.ReadJSON(&m); err != nil {
				t.Fatalf("Failed to read message: %v", err)
			}
			return m
		}

		if m := read(); m.Event != websocket.EventSnapshot {
			t.Fatalf("Expected snapshot, got %q", m.Event)
		}

		deadline := time.Now().Add(time.Second)
		for st.hub.ClientCount(info.ID) == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		serve(st.server, makeRequest("POST", "/api/sessions/"+info.ID+"/swap", map[string]int{"tile_id": 4, "target_id": 9}))

		m := read()
		if m.Event != websocket.EventStateUpdate || m.GameState == nil || m.GameState.TotalSwaps != 1 {
			t.Fatalf("Expected state update after swap, got %+v", m)
		}
		var sawSwap bool
		for _, ev := range m.Events {
			if ev.Type == "swap" && ev.Cue == "ding" {
				sawSwap = true
			}
		}
		if !sawSwap {
			t.Errorf("Expected swap event with ding cue, got %+v", m.Events)
		}
	})
}

func TestSwapLog_RequiresStore(t *testing.T) {
	st := newStack(t)
	info := st.createSession(t, "numbers")

	w := serve(st.server, makeRequest("GET", "/api/sessions/"+info.ID+"/swap-log", nil))
	if w.Code != http.StatusNotImplemented {
		t.Errorf("Expected 501 without a swap log, got %d", w.Code)
	}
}

func TestSwapLog_SQLiteStore(t *testing.T) {
	configs, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	store, err := session.NewSQLitePersistence(filepath.Join(t.TempDir(), "sessions.db"), configs,
		engine.WithShuffler(sortedShuffler{}))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sessions := session.NewManagerWithPersistence(store, engine.WithShuffler(sortedShuffler{}))
	svc := service.NewGameService(sessions, configs, service.WithScheduler(&engine.ManualScheduler{}))
	st := &stack{server: NewServer(svc, nil, WithStaticDir(t.TempDir()), WithSwapLog(store))}

	info := st.createSession(t, "numbers")
	base := "/api/sessions/" + info.ID
	for _, step := range []struct {
		path string
		body any
	}{
		{"/swap", map[string]int{"tile_id": 0, "target_id": 1}},
		{"/reset", nil},
		{"/swap", map[string]int{"tile_id": 2, "target_id": 3}},
	} {
		if w := serve(st.server, makeRequest("POST", base+step.path, step.body)); w.Code != http.StatusOK {
			t.Fatalf("POST %s failed: %d %s", step.path, w.Code, w.Body.String())
		}
	}

	var log struct {
		SessionID string              `json:"session_id"`
		Count     int                 `json:"count"`
		Swaps     []session.SwapEvent `json:"swaps"`
	}
	parseResponse(t, serve(st.server, makeRequest("GET", base+"/swap-log", nil)), &log)
	if log.SessionID != info.ID || log.Count != 2 || len(log.Swaps) != 2 {
		t.Fatalf("Unexpected swap log: %+v", log)
	}
	// the log keeps swaps from before the reset
	if log.Swaps[0].TileID != 0 || log.Swaps[0].TargetID != 1 || log.Swaps[0].SwapNumber != 1 {
		t.Errorf("Unexpected first swap: %+v", log.Swaps[0])
	}
	if log.Swaps[1].TileID != 2 || log.Swaps[1].SwapNumber != 2 {
		t.Errorf("Unexpected second swap: %+v", log.Swaps[1])
	}

	if w := serve(st.server, makeRequest("GET", "/api/sessions/zzzz/swap-log", nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", w.Code)
	}

	var health struct {
		Status       string         `json:"status"`
		StoredPhases map[string]int `json:"stored_phases"`
	}
	parseResponse(t, serve(st.server, makeRequest("GET", "/health", nil)), &health)
	if health.Status != "healthy" || health.StoredPhases["running"] != 1 {
		t.Errorf("Unexpected health response: %+v", health)
	}
}
