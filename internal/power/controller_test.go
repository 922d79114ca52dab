// internal/power/controller_test.go
package power

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/sensor-node/internal/clock"
)

type fakePlatform struct {
	durations  []time.Duration
	rfDisabled []bool
	err        error
}

func (p *fakePlatform) Suspend(d time.Duration, rf bool) error {
	p.durations = append(p.durations, d)
	p.rfDisabled = append(p.rfDisabled, rf)
	return p.err
}

type fakeFlusher struct {
	msgs []string
	err  error
}

func (f *fakeFlusher) Send(ctx context.Context, msg string) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

type fakeRadio struct{ offs int }

func (r *fakeRadio) Off() { r.offs++ }

func TestScheduleSleep_ReportsRunTimeThenSuspends(t *testing.T) {
	clk := clock.NewManual(0)
	clk.Advance(1234 * time.Millisecond)
	p := &fakePlatform{}
	f := &fakeFlusher{}
	r := &fakeRadio{}

	c, err := New(Config{}, clk, p, r)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	c.SetFlusher(f)

	if err := c.ScheduleSleep(30 * time.Second); err != nil {
		t.Fatalf("ScheduleSleep err=%v", err)
	}
	if len(f.msgs) != 1 || f.msgs[0] != "RunTime 1234" {
		t.Fatalf("flushed=%q", f.msgs)
	}
	if len(p.durations) != 1 || p.durations[0] != 30*time.Second || p.rfDisabled[0] {
		t.Fatalf("suspend calls=%v rf=%v", p.durations, p.rfDisabled)
	}
	if r.offs != 0 {
		t.Fatalf("mains node must keep the radio policy, offs=%d", r.offs)
	}
	if !c.Suspended() {
		t.Fatalf("expected suspended")
	}
}

func TestScheduleSleep_BatteryKeepsRadioOff(t *testing.T) {
	p := &fakePlatform{}
	r := &fakeRadio{}
	c, _ := New(Config{OnBattery: true}, clock.NewManual(0), p, r)

	if err := c.ScheduleSleep(time.Minute); err != nil {
		t.Fatalf("ScheduleSleep err=%v", err)
	}
	if r.offs != 1 || !p.rfDisabled[0] {
		t.Fatalf("offs=%d rf=%v", r.offs, p.rfDisabled)
	}
}

func TestScheduleSleep_FlushFailureDoesNotBlockSleep(t *testing.T) {
	p := &fakePlatform{}
	c, _ := New(Config{}, clock.NewManual(0), p, &fakeRadio{})
	c.SetFlusher(&fakeFlusher{err: errors.New("hub down")})

	if err := c.ScheduleSleep(time.Second); err != nil {
		t.Fatalf("ScheduleSleep err=%v", err)
	}
	if len(p.durations) != 1 {
		t.Fatalf("suspend calls=%d want 1", len(p.durations))
	}
}

func TestScheduleSleep_OncePerWake(t *testing.T) {
	p := &fakePlatform{}
	c, _ := New(Config{}, clock.NewManual(0), p, &fakeRadio{})

	_ = c.ScheduleSleep(time.Second)
	if err := c.ScheduleSleep(time.Second); !errors.Is(err, ErrSuspended) {
		t.Fatalf("expected ErrSuspended, got %v", err)
	}
	if c.Sleeps() != 1 || len(p.durations) != 1 {
		t.Fatalf("sleeps=%d suspend calls=%d", c.Sleeps(), len(p.durations))
	}
}

func TestScheduleSleep_PlatformError(t *testing.T) {
	p := &fakePlatform{err: errors.New("no")}
	c, _ := New(Config{}, clock.NewManual(0), p, &fakeRadio{})
	if err := c.ScheduleSleep(time.Second); err == nil {
		t.Fatalf("expected platform error")
	}
}
