package home

import "sync"

// History is a browser-style stack of scene keys
type History struct {
	mu     sync.Mutex
	scenes []string
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{}
}

// Push records a newly entered scene
func (h *History) Push(scene string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scenes = append(h.scenes, scene)
}

// Replace overwrites the current entry, or records the first one
func (h *History) Replace(scene string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.scenes) == 0 {
		h.scenes = append(h.scenes, scene)
		return
	}
	h.scenes[len(h.scenes)-1] = scene
}

// Back drops the current entry and returns the one below it. An exhausted
// history falls back to HomeScene.
func (h *History) Back() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.scenes) > 0 {
		h.scenes = h.scenes[:len(h.scenes)-1]
	}
	if len(h.scenes) == 0 {
		return HomeScene
	}
	return h.scenes[len(h.scenes)-1]
}

// Current returns the scene on top, or HomeScene
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.scenes) == 0 {
		return HomeScene
	}
	return h.scenes[len(h.scenes)-1]
}

// Len returns the number of entries
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.scenes)
}
