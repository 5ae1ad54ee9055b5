package home

import "fmt"

// Navigator moves between the home menu and the game scenes
type Navigator struct {
	menu    *Menu
	history *History
}

// NewNavigator starts on HomeScene
func NewNavigator(menu *Menu) *Navigator {
	if menu == nil {
		menu = DefaultMenu()
	}
	h := NewHistory()
	h.Replace(HomeScene)
	return &Navigator{menu: menu, history: h}
}

// Menu returns the cards shown on the home scene
func (n *Navigator) Menu() *Menu {
	return n.menu
}

// Current returns the active scene key
func (n *Navigator) Current() string {
	return n.history.Current()
}

// Select enters the scene of an available card
func (n *Navigator) Select(scene string) (GameButton, error) {
	b, err := n.menu.Find(scene)
	if err != nil {
		return GameButton{}, err
	}
	if !b.Available {
		return GameButton{}, fmt.Errorf("%w: %s", ErrSceneUnavailable, scene)
	}
	n.history.Push(b.Scene)
	return b, nil
}

// Back leaves the current scene
func (n *Navigator) Back() string {
	scene := n.history.Back()
	if scene == HomeScene && n.history.Len() == 0 {
		n.history.Replace(HomeScene)
	}
	return scene
}

// Home returns to the menu, discarding the history
func (n *Navigator) Home() {
	n.history = NewHistory()
	n.history.Replace(HomeScene)
}
