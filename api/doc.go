// Package api serves the ordering games over HTTP.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                 create ({"config_id": "numbers"}, empty body for the default)
//   - GET    /api/sessions                 list (?sort=created|accessed&order=asc|desc&limit=N&config=ID)
//   - GET    /api/sessions/{id}            session info with state and config
//   - DELETE /api/sessions/{id}            delete
//
// Play:
//   - GET  /api/sessions/{id}/state       board, timer and overlay
//   - POST /api/sessions/{id}/drag-start  {"tile_id": 3}
//   - POST /api/sessions/{id}/drag        {"tile_id": 3, "x": 210, "y": 180}
//   - POST /api/sessions/{id}/drag-end    {"tile_id": 3} or with x/y for the drop point
//   - POST /api/sessions/{id}/swap        {"tile_id": 3, "target_id": 8}
//   - POST /api/sessions/{id}/tick        advance the countdown now
//   - POST /api/sessions/{id}/reset       new shuffle, timer back to full
//   - GET  /api/sessions/{id}/history     swaps (?page=&limit=&order=)
//
// Configs and menu:
//   - GET  /api/configs, GET /api/configs/{name}, POST /api/configs
//   - GET  /api/home
//
// Other:
//   - GET /health
//   - GET /ws?session={id}                 live updates, see package websocket
//
// Errors are JSON bodies {"error": "...", "code": N}. Unknown sessions and
// configs are 404. Input the board cannot take right now (a finished game,
// a locked tile, a drag that never started) is 409. Malformed requests and
// unknown tiles are 400.
package api
