// internal/clock/clock.go
package clock

import (
	"sync"
	"time"
)

// Millis is a millisecond counter since boot.
// It wraps at 2^32 (~49.7 days); all arithmetic on it is modular.
type Millis uint32

// Sub returns the elapsed time from earlier to m.
// A wrap between the two readings is absorbed by unsigned subtraction.
func (m Millis) Sub(earlier Millis) time.Duration {
	return time.Duration(uint32(m-earlier)) * time.Millisecond
}

// Before reports whether m is numerically smaller than other (no wrap interpretation).
func (m Millis) Before(other Millis) bool { return m < other }

// Clock is the time source shared by the control loop.
type Clock interface {
	Now() Millis
	Sleep(d time.Duration)
}

// System is the process clock. Boot is taken at construction.
type System struct {
	boot time.Time
}

func NewSystem() *System {
	return &System{boot: time.Now()}
}

func (s *System) Now() Millis {
	return Millis(uint64(time.Since(s.boot).Milliseconds()))
}

func (s *System) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Manual is a hand-driven clock for tests.
// Sleep advances the counter instead of blocking.
type Manual struct {
	mu  sync.Mutex
	now Millis
}

func NewManual(start Millis) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() Millis {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(v Millis) {
	m.mu.Lock()
	m.now = v
	m.mu.Unlock()
}

// Advance moves the counter forward by d, wrapping like the hardware counter.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += Millis(uint32(d / time.Millisecond))
	m.mu.Unlock()
}

func (m *Manual) Sleep(d time.Duration) {
	if d > 0 {
		m.Advance(d)
	}
}
