// Package websocket pushes live session updates to browsers and the
// desktop client.
//
// A Hub keeps the clients of each session and runs all bookkeeping on a
// single goroutine started with Run. Clients connect with ?session=<id>,
// receive a snapshot frame, then a state_update frame whenever the session
// changes. Frames are single JSON documents:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}, "events": [...]}
//
// Hub implements service.Notifier, so timer ticks and delayed validations
// reach clients without a request in flight.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//	svc := service.NewGameService(sessions, configs, service.WithNotifier(hub))
package websocket
