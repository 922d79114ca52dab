// internal/command/router_test.go
package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/sensor-node/internal/clock"
	"github.com/tamzrod/sensor-node/internal/scheduler"
)

type nopSensor struct{}

func (nopSensor) PreAcquire(ctx context.Context) error  { return nil }
func (nopSensor) Acquire(ctx context.Context) error     { return nil }
func (nopSensor) PostAcquire(ctx context.Context) error { return nil }

func newTarget(t *testing.T) (*Router, *scheduler.Scheduler) {
	t.Helper()
	s, err := scheduler.New(scheduler.Config{
		Name:      "sensor1",
		Intervals: scheduler.Intervals{Pre: time.Second, Acquire: 60 * time.Second, Post: time.Second},
	}, clock.NewManual(0), nopSensor{})
	if err != nil {
		t.Fatalf("scheduler.New err=%v", err)
	}
	r := NewRouter(nil)
	if err := r.Register("sensor1", s); err != nil {
		t.Fatalf("Register err=%v", err)
	}
	return r, s
}

func TestApply_SetsAcquireInterval(t *testing.T) {
	r, s := newTarget(t)

	if err := r.Apply("sensor1 30"); err != nil {
		t.Fatalf("Apply err=%v", err)
	}
	if got := s.Intervals().Acquire; got != 30*time.Second {
		t.Fatalf("acquire=%s want 30s", got)
	}
}

func TestApply_NonNumericLeavesStateUnchanged(t *testing.T) {
	r, s := newTarget(t)
	before := s.Intervals()

	for _, cmd := range []string{"sensor1 abc", "sensor1 0", "sensor1 -5", "sensor1 pre x"} {
		if err := r.Apply(cmd); !errors.Is(err, ErrNotNumeric) {
			t.Fatalf("%q: expected ErrNotNumeric, got %v", cmd, err)
		}
	}
	if s.Intervals() != before {
		t.Fatalf("intervals changed: %+v -> %+v", before, s.Intervals())
	}
}

func TestApply_ExtendedSettings(t *testing.T) {
	r, s := newTarget(t)

	for _, cmd := range []string{"sensor1 pre 3", "sensor1 post 4", "sensor1 offset 5"} {
		if err := r.Apply(cmd); err != nil {
			t.Fatalf("%q: err=%v", cmd, err)
		}
	}
	got := s.Intervals()
	want := scheduler.Intervals{Pre: 3 * time.Second, Acquire: 60 * time.Second, Post: 4 * time.Second, Offset: 5 * time.Second}
	if got != want {
		t.Fatalf("intervals=%+v want %+v", got, want)
	}
}

func TestApply_UnknownTargetAndMalformed(t *testing.T) {
	r, _ := newTarget(t)

	if err := r.Apply("sensor2 30"); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
	for _, cmd := range []string{"", "sensor1", "sensor1 fast 3", "sensor1 \"30"} {
		if err := r.Apply(cmd); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", cmd, err)
		}
	}
}

func TestHandleCommand_CountsRejections(t *testing.T) {
	r, _ := newTarget(t)

	r.HandleCommand(context.Background(), "sensor1 abc")
	r.HandleCommand(context.Background(), "sensor1 10")
	if r.Rejected() != 1 {
		t.Fatalf("rejected=%d want 1", r.Rejected())
	}
}

func TestRegister_Duplicate(t *testing.T) {
	r, s := newTarget(t)
	if err := r.Register("sensor1", s); err == nil {
		t.Fatalf("expected duplicate error")
	}
}
