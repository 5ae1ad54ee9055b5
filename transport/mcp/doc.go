// Package mcp exposes the ordering games to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool is answered by calling the REST API,
// so an agent sees exactly what a browser or the desktop client sees.
//
// Tools:
//   - home_menu, list_configs: What can be played
//   - create_session, get_session, list_sessions: Session management
//   - game_state: Board grid, timer and status
//   - swap_tiles: Trade two tiles directly
//   - drag_tile: Full drag gesture (start, move over a cell, drop)
//   - tick: Advance the countdown
//   - reset_game: Reshuffle and restore the timer
//   - swap_history: Paginated swaps plus the current segment
//   - game_instructions: Rules
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
