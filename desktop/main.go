// Command desktop is a drag-and-drop client for the ordering games. It shows
// the home menu, lets the player drag tiles with the mouse, and follows the
// server over a websocket so the timer and results stay live.
package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
)

const (
	screenWidth  = 1024
	screenHeight = 576
)

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	sessionID := flag.String("session", "", "Join an existing session instead of showing the menu")
	flag.Parse()

	game, err := NewGame(*serverURL, *sessionID)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer game.Close()

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Adventure Games")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
