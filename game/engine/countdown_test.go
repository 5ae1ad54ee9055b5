package engine

import (
	"testing"
	"time"
)

func TestCountdown(t *testing.T) {
	c := NewCountdown(120)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if c.Remaining(t0.Add(time.Hour)) != 120 {
		t.Error("Unstarted countdown should report the full limit")
	}
	if !c.Start(t0) {
		t.Fatal("Expected first Start to take effect")
	}
	if c.Start(t0.Add(5 * time.Second)) {
		t.Error("Expected second Start to be ignored")
	}

	tests := []struct {
		after time.Duration
		want  int
	}{
		{0, 120},
		{999 * time.Millisecond, 120},
		{time.Second, 119},
		{61500 * time.Millisecond, 59},
		{120 * time.Second, 0},
		{130 * time.Second, -10},
	}
	for _, test := range tests {
		if got := c.Remaining(t0.Add(test.after)); got != test.want {
			t.Errorf("After %v: expected %d, got %d", test.after, test.want, got)
		}
	}

	c.Reset()
	if c.Started() {
		t.Error("Expected reset countdown to be stopped")
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{180, "3:00"},
		{119, "1:59"},
		{9, "0:09"},
		{0, "0:00"},
		{-4, "0:00"},
	}
	for _, test := range tests {
		if got := FormatClock(test.seconds); got != test.want {
			t.Errorf("FormatClock(%d): expected %q, got %q", test.seconds, test.want, got)
		}
	}
}

func TestElapsedClockSkew(t *testing.T) {
	t0 := time.Now()
	if Elapsed(t0, t0.Add(-time.Minute)) != 0 {
		t.Error("Expected negative elapsed time to clamp to zero")
	}
}

func TestManualScheduler(t *testing.T) {
	s := &ManualScheduler{}
	var ran []string

	s.AfterFunc(100*time.Millisecond, func() { ran = append(ran, "a") })
	stopped := s.AfterFunc(50*time.Millisecond, func() { ran = append(ran, "b") })
	s.AfterFunc(300*time.Millisecond, func() { ran = append(ran, "c") })

	if !stopped.Stop() {
		t.Error("Expected Stop to report a live timer")
	}
	if s.Pending() != 2 {
		t.Errorf("Expected 2 pending, got %d", s.Pending())
	}
	if n := s.Advance(100 * time.Millisecond); n != 1 {
		t.Errorf("Expected 1 callback, got %d", n)
	}
	if len(ran) != 1 || ran[0] != "a" {
		t.Errorf("Unexpected callbacks: %v", ran)
	}
	s.Advance(time.Second)
	if len(ran) != 2 || ran[1] != "c" {
		t.Errorf("Unexpected callbacks: %v", ran)
	}
}

func TestManualScheduler_RunsDueCallbacksInDeadlineOrder(t *testing.T) {
	s := &ManualScheduler{}
	var ran []string

	s.AfterFunc(300*time.Millisecond, func() { ran = append(ran, "late") })
	s.AfterFunc(100*time.Millisecond, func() { ran = append(ran, "early") })
	s.AfterFunc(200*time.Millisecond, func() { ran = append(ran, "middle") })
	s.AfterFunc(100*time.Millisecond, func() { ran = append(ran, "early2") })

	if n := s.Advance(time.Second); n != 4 {
		t.Fatalf("Expected 4 callbacks, got %d", n)
	}
	want := []string{"early", "early2", "middle", "late"}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, ran)
		}
	}
	if s.Pending() != 0 {
		t.Errorf("Expected nothing pending, got %d", s.Pending())
	}
}
