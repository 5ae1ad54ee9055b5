package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/adventure-games/game/engine"
	"github.com/wricardo/adventure-games/game/service"
)

// ErrNoSession is returned by session calls before CreateSession or Resume
var ErrNoSession = errors.New("no session selected")

// APIError is a non-2xx reply from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Client plays one session over the REST API
type Client struct {
	baseURL   string
	sessionID string
	layout    engine.Layout
	http      *http.Client
}

// New creates a client for the server at baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client is attached to
func (c *Client) SessionID() string { return c.sessionID }

// Layout returns the screen layout of the attached session
func (c *Client) Layout() engine.Layout { return c.layout }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) sessionPath(suffix string) (string, error) {
	if c.sessionID == "" {
		return "", ErrNoSession
	}
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix, nil
}

func (c *Client) sessionCall(ctx context.Context, method, suffix string, body, out any) error {
	path, err := c.sessionPath(suffix)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, body, out)
}

func (c *Client) adopt(session *service.SessionInfo) {
	c.sessionID = session.ID
	if session.GameConfig != nil {
		c.layout = session.GameConfig.Layout
	}
}

// CreateSession starts a new game and attaches the client to it. An empty
// configID picks the server default.
func (c *Client) CreateSession(ctx context.Context, configID string) (*service.SessionInfo, error) {
	var body map[string]string
	if configID != "" {
		body = map[string]string{"config_id": configID}
	}

	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.adopt(&session)
	return &session, nil
}

// Resume attaches the client to an existing session
func (c *Client) Resume(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	var session service.SessionInfo
	path := "/api/sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	c.adopt(&session)
	return &session, nil
}

// ListSessions returns every session on the server
func (c *Client) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	var resp struct {
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &resp); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return resp.Sessions, nil
}

// HomeMenu returns the game selection screen
func (c *Client) HomeMenu(ctx context.Context) (*service.HomeMenu, error) {
	var menu service.HomeMenu
	if err := c.do(ctx, http.MethodGet, "/api/home", nil, &menu); err != nil {
		return nil, fmt.Errorf("home menu: %w", err)
	}
	return &menu, nil
}

func (c *Client) GetState(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.sessionCall(ctx, http.MethodGet, "/state", nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

// Reset reshuffles the board and restores the timer
func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.sessionCall(ctx, http.MethodPost, "/reset", nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

// Tick advances the countdown
func (c *Client) Tick(ctx context.Context) (*service.TickResult, error) {
	var result service.TickResult
	if err := c.sessionCall(ctx, http.MethodPost, "/tick", nil, &result); err != nil {
		return nil, fmt.Errorf("tick: %w", err)
	}
	return &result, nil
}

// Swap trades two tiles with a single request
func (c *Client) Swap(ctx context.Context, tileID, targetID int) (*service.DropResult, error) {
	var result service.DropResult
	body := map[string]int{"tile_id": tileID, "target_id": targetID}
	if err := c.sessionCall(ctx, http.MethodPost, "/swap", body, &result); err != nil {
		return nil, fmt.Errorf("swap %d with %d: %w", tileID, targetID, err)
	}
	return &result, nil
}

// DragStart picks up a tile
func (c *Client) DragStart(ctx context.Context, tileID int) (*service.PointerResult, error) {
	var result service.PointerResult
	if err := c.sessionCall(ctx, http.MethodPost, "/drag-start", map[string]int{"tile_id": tileID}, &result); err != nil {
		return nil, fmt.Errorf("drag start %d: %w", tileID, err)
	}
	return &result, nil
}

// DragMove moves a held tile so its top-left corner sits at p
func (c *Client) DragMove(ctx context.Context, tileID int, p engine.Point) (*service.PointerResult, error) {
	var result service.PointerResult
	body := map[string]any{"tile_id": tileID, "x": p.X, "y": p.Y}
	if err := c.sessionCall(ctx, http.MethodPost, "/drag", body, &result); err != nil {
		return nil, fmt.Errorf("drag %d: %w", tileID, err)
	}
	return &result, nil
}

// DragEnd drops a held tile where it was last moved
func (c *Client) DragEnd(ctx context.Context, tileID int) (*service.DropResult, error) {
	var result service.DropResult
	if err := c.sessionCall(ctx, http.MethodPost, "/drag-end", map[string]int{"tile_id": tileID}, &result); err != nil {
		return nil, fmt.Errorf("drag end %d: %w", tileID, err)
	}
	return &result, nil
}

// Drag plays a whole gesture: pick up tileID, move it onto the resting spot
// of cell, drop it
func (c *Client) Drag(ctx context.Context, tileID int, cell engine.Cell) (*service.DropResult, error) {
	if _, err := c.DragStart(ctx, tileID); err != nil {
		return nil, err
	}
	if _, err := c.DragMove(ctx, tileID, c.layout.CellOrigin(cell)); err != nil {
		return nil, err
	}
	return c.DragEnd(ctx, tileID)
}

// WaitSettled polls until no validation is pending or the game is over
func (c *Client) WaitSettled(ctx context.Context, interval time.Duration) (*engine.GameState, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		state, err := c.GetState(ctx)
		if err != nil {
			return nil, err
		}
		if state.PendingChecks == 0 || state.Phase == engine.PhaseWon || state.Phase == engine.PhaseTimedOut {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, fmt.Errorf("validation still pending: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
