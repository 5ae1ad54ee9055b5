package engine

import (
	"errors"
	"sort"
)

var ErrInputDetached = errors.New("input is detached for this session")

// PointerEventType identifies a pointer gesture delivered by the host
type PointerEventType string

const (
	PointerDragStart PointerEventType = "dragstart"
	PointerDrag      PointerEventType = "drag"
	PointerDragEnd   PointerEventType = "dragend"
)

// PointerEvent is a drag gesture on one tile. X and Y are only meaningful
// for drag and dragend; HasPos marks a dragend that carries a final position.
type PointerEvent struct {
	Type   PointerEventType `json:"type"`
	TileID int              `json:"tile_id"`
	X      float64          `json:"x"`
	Y      float64          `json:"y"`
	HasPos bool             `json:"has_pos,omitempty"`
}

// PointerHandler consumes one pointer event
type PointerHandler func(ev PointerEvent) error

// Dispatcher routes pointer events to the handlers subscribed to them.
// Each session owns its own dispatcher, so handlers never leak between
// sessions.
type Dispatcher struct {
	handlers map[PointerEventType]map[int]PointerHandler
	nextID   int
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[PointerEventType]map[int]PointerHandler),
	}
}

// Subscription is a handle to one registered handler
type Subscription struct {
	d   *Dispatcher
	typ PointerEventType
	id  int
}

// On registers h for events of type t
func (d *Dispatcher) On(t PointerEventType, h PointerHandler) *Subscription {
	if d.handlers[t] == nil {
		d.handlers[t] = make(map[int]PointerHandler)
	}
	d.nextID++
	d.handlers[t][d.nextID] = h
	return &Subscription{d: d, typ: t, id: d.nextID}
}

// Cancel removes the handler. Cancelling twice is a no-op.
func (s *Subscription) Cancel() {
	if s == nil || s.d == nil {
		return
	}
	if hs, ok := s.d.handlers[s.typ]; ok {
		delete(hs, s.id)
		if len(hs) == 0 {
			delete(s.d.handlers, s.typ)
		}
	}
	s.d = nil
}

// Len returns the number of live subscriptions
func (d *Dispatcher) Len() int {
	n := 0
	for _, hs := range d.handlers {
		n += len(hs)
	}
	return n
}

// Dispatch delivers ev to its handlers in subscription order. It returns
// ErrInputDetached when nothing is subscribed to the event type.
func (d *Dispatcher) Dispatch(ev PointerEvent) error {
	hs := d.handlers[ev.Type]
	if len(hs) == 0 {
		return ErrInputDetached
	}
	ids := make([]int, 0, len(hs))
	for id := range hs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		// an earlier handler may have detached input
		h, ok := hs[id]
		if !ok {
			continue
		}
		if err := h(ev); err != nil {
			return err
		}
	}
	return nil
}
