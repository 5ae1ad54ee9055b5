package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/adventure-games/game/engine"
	"github.com/wricardo/adventure-games/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Adventure Games",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Adventure Games - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Put every tile in natural order (A to Z, or 1 to 20), reading left to right
and top to bottom, before the countdown reaches zero. The timer starts with
the first tile you pick up.

AVAILABLE TOOLS:
- home_menu: The games on the home screen
- list_configs: List available game configurations
- create_session: Start a new game (config_id "alphabet" or "numbers")
- get_session / list_sessions: Session details
- game_state: Board, timer and status
- swap_tiles: Swap two tiles directly
- drag_tile: Drag a tile onto a grid cell, exactly as a player would
- tick: Advance the countdown now
- reset_game: New shuffle, full timer
- swap_history: Past swaps
- game_instructions: Rules and tips`),
	)

	c.registerTools()
}

func sessionArg() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session, optionally choosing the game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config_id": map[string]any{
					"type":        "string",
					"description": "Config ID such as 'alphabet' or 'numbers' (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionArg()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the board, timer and status of a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionArg()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "swap_tiles",
		Description: "Swap the cells of two tiles. Starts the timer if it is not running.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionArg(),
				"tile_id": map[string]any{
					"type":        "integer",
					"description": "ID of the tile to move",
				},
				"target_id": map[string]any{
					"type":        "integer",
					"description": "ID of the tile to trade places with",
				},
			},
			Required: []string{"session_id", "tile_id", "target_id"},
		},
	}, c.handleSwapTiles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "drag_tile",
		Description: "Pick up a tile, drag it over a grid cell and drop it. Dropping on an occupied cell swaps the two tiles.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionArg(),
				"tile_id": map[string]any{
					"type":        "integer",
					"description": "ID of the tile to drag",
				},
				"row": map[string]any{
					"type":        "integer",
					"description": "Target row (0-based)",
				},
				"col": map[string]any{
					"type":        "integer",
					"description": "Target column (0-based)",
				},
			},
			Required: []string{"session_id", "tile_id", "row", "col"},
		},
	}, c.handleDragTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Advance the countdown to the current time",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionArg()},
			Required:   []string{"session_id"},
		},
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reshuffle the board and restore the full timer",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionArg()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "swap_history",
		Description: "Get committed swaps with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionArg(),
				"page": map[string]any{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Swaps per page (default 20, max 100)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleSwapHistory)

	// Configuration and menu
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "home_menu",
		Description: "Show the games on the home screen",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleHomeMenu)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the ordering games",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return map[string]any{}
	}
	return args
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads a JSON number argument
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := stringArg(arguments(request), "config_id"); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s",
		session.ID, session.ConfigName, formatGameState(session.GameState))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                    `json:"count"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No active sessions"), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Active sessions (%d):\n", response.Count)
	for _, s := range response.Sessions {
		phase, timer := "unknown", ""
		if s.GameState != nil {
			phase, timer = string(s.GameState.Phase), s.GameState.TimerText
		}
		fmt.Fprintf(&b, "- %s [%s] %s %s\n", s.ID, s.ConfigName, phase, timer)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleSwapTiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	tileID, ok1 := intArg(args, "tile_id")
	targetID, ok2 := intArg(args, "target_id")
	if !ok1 || !ok2 {
		return mcp.NewToolResultError("tile_id and target_id are required integers"), nil
	}

	var result service.DropResult
	body := map[string]int{"tile_id": tileID, "target_id": targetID}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/swap"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatDropResult(&result)), nil
}

// handleDragTile replays a full gesture: pick up, move over the target
// cell, release
func (c *Client) handleDragTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	tileID, ok := intArg(args, "tile_id")
	row, okRow := intArg(args, "row")
	col, okCol := intArg(args, "col")
	if !ok || !okRow || !okCol {
		return mcp.NewToolResultError("tile_id, row and col are required integers"), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if session.GameConfig == nil || session.GameState == nil {
		return mcp.NewToolResultError("session has no board"), nil
	}
	rows := (session.GameState.TotalTiles + session.GameState.Columns - 1) / session.GameState.Columns
	if row < 0 || row >= rows || col < 0 || col >= session.GameState.Columns {
		return mcp.NewToolResultError(fmt.Sprintf("cell (%d, %d) is off the board; rows 0-%d, columns 0-%d",
			row, col, rows-1, session.GameState.Columns-1)), nil
	}

	target := session.GameConfig.Layout.CellOrigin(engine.Cell{Row: row, Col: col})

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drag-start"), map[string]int{"tile_id": tileID}, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	move := map[string]any{"tile_id": tileID, "x": target.X, "y": target.Y}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drag"), move, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var result service.DropResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drag-end"), map[string]int{"tile_id": tileID}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatDropResult(&result)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var result service.TickResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/tick"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("%s (phase: %s)", result.Tick.Text, result.Tick.Phase)
	if result.Tick.TimedOut {
		text += "\nTime is up!"
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message + "\n\n" + formatGameState(response.State)), nil
}

func (c *Client) handleSwapHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	path := sessionPath(sessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatHistory(&history)
	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err == nil {
		result += "\n" + formatCurrentSegment(&state)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		rows := (config.TileCount + config.Columns - 1) / max(config.Columns, 1)
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  %d %s in %dx%d, %d seconds\n\n",
			config.Name, config.ConfigID, config.Description,
			config.TileCount, config.Symbols, rows, config.Columns, config.TimeLimitSeconds)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleHomeMenu(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var menu service.HomeMenu
	if err := c.apiCall(ctx, "GET", "/api/home", nil, &menu); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", menu.Title, menu.Subtitle)
	for _, g := range menu.Games {
		status := "available"
		if !g.Available {
			status = "coming soon"
		}
		fmt.Fprintf(&b, "%s %s [%s] - %s\n", g.Emoji, g.Title, status, g.Description)
		if g.Available && g.ConfigID != "" {
			fmt.Fprintf(&b, "   create_session config_id=%s\n", g.ConfigID)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `ADVENTURE GAMES - ORDERING RULES

GOAL
Arrange the tiles in natural order before time runs out.
  - Alphabet: A to Z on a 13-column grid (2 rows), 3 minutes
  - Numbers: 1 to 20 on a 10-column grid (2 rows), 2 minutes
Order is read left to right, top to bottom: the tile of rank k belongs in
row k / columns, column k % columns.

MOVES
A tile moves by being dropped onto another tile. The two tiles trade
cells. Dropping onto empty space or outside the grid puts the tile back.
  - swap_tiles: trade two tiles directly
  - drag_tile: drag a tile over a cell and drop it there

TIMER
The countdown starts with the first tile picked up. When it reaches 0:00
the board locks and the game is lost.

WINNING
Shortly after each swap the board is checked. When every tile is in its
cell the board locks, the timer stops and the finish time is shown.

RESET
reset_game reshuffles the tiles, restores the full timer and unlocks the
board. Swap history keeps counting across resets.

STRATEGY
Fill cells in order. For rank k, find the tile that belongs there and swap
it with whatever occupies that cell. At most n-1 swaps solve any board.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

// formatBoard prints one row per grid row; tiles already in place are
// bracketed
func formatBoard(state *engine.GameState) string {
	if state.Columns <= 0 || len(state.Tiles) == 0 {
		return ""
	}
	rows := (len(state.Tiles) + state.Columns - 1) / state.Columns
	grid := make([][]string, rows)
	for r := range grid {
		grid[r] = make([]string, state.Columns)
		for c := range grid[r] {
			grid[r][c] = "  .  "
		}
	}
	for _, t := range state.Tiles {
		if t.Cell.Row >= rows || t.Cell.Col >= state.Columns {
			continue
		}
		label := fmt.Sprintf("%d:%s", t.ID, t.Symbol)
		if t.Correct {
			label = "[" + label + "]"
		}
		grid[t.Cell.Row][t.Cell.Col] = fmt.Sprintf("%-7s", label)
	}

	var b strings.Builder
	for _, row := range grid {
		b.WriteString(strings.TrimRight(strings.Join(row, " "), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s | %s | In place: %d/%d | Swaps: %d\n",
		state.Phase, state.TimerText, state.CorrectCount, state.TotalTiles, state.CurrentSwapsCount)
	if state.Message != "" {
		fmt.Fprintf(&b, "%s\n", state.Message)
	}
	b.WriteString("\nBoard (id:symbol, [..] = in place):\n")
	b.WriteString(formatBoard(state))

	switch state.Phase {
	case engine.PhaseWon:
		fmt.Fprintf(&b, "\n🎉 Solved! Time: %s\n", state.FinalTime)
	case engine.PhaseTimedOut:
		b.WriteString("\n⏰ Time's up! Use reset_game to try again.\n")
	}
	if state.PendingChecks > 0 {
		b.WriteString("\n(validation pending, check game_state again shortly)\n")
	}
	return b.String()
}

func formatDropResult(result *service.DropResult) string {
	var b strings.Builder
	switch {
	case result.Swapped && result.Swap != nil:
		fmt.Fprintf(&b, "Swapped %s and %s: (%d,%d) <-> (%d,%d)\n",
			result.Swap.Symbol, result.Swap.TargetSymbol,
			result.FromCell.Row, result.FromCell.Col, result.ToCell.Row, result.ToCell.Col)
	case result.Swapped:
		fmt.Fprintf(&b, "Tile %d swapped\n", result.TileID)
	default:
		fmt.Fprintf(&b, "Tile %d returned to (%d,%d)\n", result.TileID, result.FromCell.Row, result.FromCell.Col)
	}
	for _, ev := range result.Events {
		if ev.Type == string(engine.EventWin) || ev.Type == string(engine.EventTimeout) {
			fmt.Fprintf(&b, "%s\n", ev.Message)
		}
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatSwapLine(num int, swap engine.SwapHistoryEntry) string {
	return fmt.Sprintf("%d. #%d %s (%d,%d) <-> %s (%d,%d)\n", num, swap.SwapNumber,
		swap.Symbol, swap.FromCell.Row, swap.FromCell.Col,
		swap.TargetSymbol, swap.ToCell.Row, swap.ToCell.Col)
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Swap History (Page %d/%d), total (cumulative): %d\n\n",
		history.Page, history.TotalPages, history.TotalSwaps)
	for i, swap := range history.Swaps {
		b.WriteString(formatSwapLine((history.Page-1)*history.PageSize+i+1, swap))
	}
	return b.String()
}

func formatCurrentSegment(state *engine.GameState) string {
	if state == nil {
		return "Current Segment: unavailable"
	}
	header := fmt.Sprintf("Current Segment (since last reset), swaps: %d\n\n", state.CurrentSwapsCount)
	if len(state.CurrentSwaps) == 0 {
		return header + "(no swaps in current segment)"
	}
	var b strings.Builder
	b.WriteString(header)
	for i, swap := range state.CurrentSwaps {
		b.WriteString(formatSwapLine(i+1, swap))
	}
	return b.String()
}
