// Package client talks to the game server the way a player's host does:
// REST calls for session and pointer actions, and a websocket subscription
// for state pushed by the server.
//
// The solver and the desktop app are both built on it. BoardView keeps the
// local picture of the board between server updates so a UI can hit-test
// and draw a tile under the cursor before the server has answered.
package client
