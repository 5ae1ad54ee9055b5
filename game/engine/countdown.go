package engine

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Clock reads wall-clock time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real wall clock
var SystemClock Clock = systemClock{}

// Timer is a pending one-shot callback
type Timer interface {
	Stop() bool
}

// Scheduler runs a callback once after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealScheduler schedules callbacks on the runtime timer heap
var RealScheduler Scheduler = realScheduler{}

// ManualScheduler is a Scheduler driven by its caller instead of the wall
// clock. Callbacks queue until Advance moves its clock past their deadline.
//
// Hosts that own their time source, such as a frame loop, a replay of a
// recorded swap log or a test, pass it to WithScheduler and call Advance
// with the elapsed time so settle delays stay in step with that source.
// It is safe for concurrent use.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// AfterFunc implements Scheduler
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, at: s.now + d, f: f}
	s.pending = append(s.pending, t)
	return t
}

// Advance moves time forward and runs every due callback in deadline order
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	var due, rest []*manualTimer
	for _, t := range s.pending {
		if t.at <= s.now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	s.pending = rest
	s.mu.Unlock()
	slices.SortStableFunc(due, func(a, b *manualTimer) int { return cmp.Compare(a.at, b.at) })

	ran := 0
	for _, t := range due {
		s.mu.Lock()
		stopped := t.stopped
		t.stopped = true
		s.mu.Unlock()
		if !stopped {
			t.f()
			ran++
		}
	}
	return ran
}

// Pending returns the number of callbacks waiting to run
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Countdown tracks the time left in a session. It only measures; the
// engine owns the phase transitions.
type Countdown struct {
	limit   int
	start   time.Time
	started bool
}

// NewCountdown creates a stopped countdown of limitSeconds
func NewCountdown(limitSeconds int) *Countdown {
	return &Countdown{limit: limitSeconds}
}

// Start records the start instant. Only the first call after a reset takes
// effect; it reports whether this call started the countdown.
func (c *Countdown) Start(now time.Time) bool {
	if c.started {
		return false
	}
	c.start = now
	c.started = true
	return true
}

// Started reports whether Start has taken effect
func (c *Countdown) Started() bool {
	return c.started
}

// StartedAt returns the recorded start instant
func (c *Countdown) StartedAt() (time.Time, bool) {
	return c.start, c.started
}

// Limit returns the time limit in seconds
func (c *Countdown) Limit() int {
	return c.limit
}

// Remaining computes limit - floor(elapsed seconds). A countdown that was
// never started always reports the full limit.
func (c *Countdown) Remaining(now time.Time) int {
	if !c.started {
		return c.limit
	}
	return c.limit - Elapsed(c.start, now)
}

// Reset clears the start instant
func (c *Countdown) Reset() {
	c.start = time.Time{}
	c.started = false
}

// Elapsed returns whole seconds between start and now, never negative
func Elapsed(start, now time.Time) int {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// FormatClock renders seconds as m:ss
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
