// Package service provides the business logic layer for the ordering games.
//
// The service package implements:
//   - Multi-session game management
//   - Pointer events, direct swaps and timer ticks per session
//   - Settle-delay validation under the service lock
//   - Swap history pagination
//   - Configuration listing and the home menu
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
// Notifier receives state changes that happen between requests.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its engine; the service serializes
// access to all of them, including validations that fire after the settle
// delay and timeouts found by TickAll.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithNotifier(notifier))
//
//	sessionInfo, err := gameService.CreateSession(ctx, "alphabet")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Drop tile 0 on tile 3
//	result, err := gameService.Swap(ctx, sessionInfo.ID, 0, 3)
package service
