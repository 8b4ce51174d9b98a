// Package timer tracks elapsed time for a whole command and for its current stage.
package timer

import (
	"sync"
	"time"
)

// Timer measures total and per-stage durations of a command.
type Timer interface {
	// Start resets the timer and begins measuring.
	Start()
	// NewStage marks the beginning of a new stage.
	NewStage()
	// GetTiming returns the total elapsed time and the time spent in the current stage.
	GetTiming() (time.Duration, time.Duration)
}

type stopwatch struct {
	mu         sync.Mutex
	now        func() time.Time
	start      time.Time
	stageStart time.Time
}

// New returns a Timer backed by the wall clock.
func New() Timer {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *stopwatch {
	return &stopwatch{now: now}
}

func (s *stopwatch) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.start = s.now()
	s.stageStart = s.start
}

func (s *stopwatch) NewStage() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.start.IsZero() {
		s.start = s.now()
	}

	s.stageStart = s.now()
}

func (s *stopwatch) GetTiming() (time.Duration, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.start.IsZero() {
		return 0, 0
	}

	current := s.now()

	return current.Sub(s.start).Round(time.Millisecond), current.Sub(s.stageStart).Round(time.Millisecond)
}
