// Package home provides the game selection menu and the scene history used
// for back navigation.
//
// The menu lists one card per game. Selecting an available card pushes its
// scene onto the History and yields the config to start a session with.
// Going back pops the history; an empty history lands on HomeScene.
//
// Usage:
//
//	nav := home.NewNavigator(home.DefaultMenu())
//	button, err := nav.Select("NumberAdventure")
//	if err != nil {
//		log.Fatal(err)
//	}
//	sessionConfig := button.ConfigID
//
//	// later, from the back button
//	scene := nav.Back()
package home
