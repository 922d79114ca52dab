// internal/connectivity/manager_test.go
package connectivity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/sensor-node/internal/clock"
	"github.com/tamzrod/sensor-node/internal/link"
	"github.com/tamzrod/sensor-node/internal/session"
	"github.com/tamzrod/sensor-node/internal/status"
)

// ---- fakes ----

type fakeRadio struct {
	failFirst int // fail this many attempts, then succeed; <0 fails forever
	identity  link.Identity

	attempts int
	hints    []*link.Hint
	resets   int
	offs     int
	wakes    int
	up       bool
}

func (r *fakeRadio) Connect(ctx context.Context, hint *link.Hint) error {
	r.attempts++
	r.hints = append(r.hints, hint)
	if r.failFirst < 0 || r.attempts <= r.failFirst {
		return errors.New("no ap")
	}
	r.up = true
	return nil
}

func (r *fakeRadio) Connected() bool         { return r.up }
func (r *fakeRadio) Identity() link.Identity { return r.identity }
func (r *fakeRadio) Reset()                  { r.resets++; r.up = false }
func (r *fakeRadio) Off()                    { r.offs++; r.up = false }
func (r *fakeRadio) Wake()                   { r.wakes++ }

type fakeSleeper struct {
	calls []time.Duration
}

func (s *fakeSleeper) ScheduleSleep(d time.Duration) error {
	s.calls = append(s.calls, d)
	return nil
}

// ---- helpers ----

var liveIdentity = link.Identity{
	Channel: 6,
	Peer:    [6]byte{192, 168, 1, 2, 0x9a, 0x4c},
	Device:  [6]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01},
}

func testConfig() Config {
	return Config{
		PersistSession: true,
		RetryDelay:     50 * time.Millisecond,
		FallbackAfter:  5 * time.Second,
		GiveUpAfter:    6 * time.Second,
		GiveUpSleep:    30 * time.Second,
	}
}

func newManager(t *testing.T, cfg Config, r *fakeRadio, st session.Store) (*Manager, *fakeSleeper, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(0)
	sl := &fakeSleeper{}
	m, err := New(cfg, clk, r, st, sl)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	return m, sl, clk
}

func storeWith(t *testing.T, id link.Identity) *session.MemStore {
	t.Helper()
	st := session.NewMemStore()
	r := session.Record{Channel: id.Channel, Peer: id.Peer, Device: id.Device}
	r.Seal()
	if err := session.Write(st, r); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return st
}

// ---- tests ----

func TestNew_RejectsBadPolicy(t *testing.T) {
	r := &fakeRadio{}
	cfg := testConfig()
	cfg.GiveUpAfter = cfg.FallbackAfter
	if _, err := New(cfg, clock.NewManual(0), r, session.NewMemStore(), &fakeSleeper{}); err == nil {
		t.Fatalf("expected error when give-up does not exceed fallback")
	}
	cfg = testConfig()
	if _, err := New(cfg, clock.NewManual(0), r, nil, &fakeSleeper{}); err == nil {
		t.Fatalf("expected error for missing store")
	}
}

func TestEnsureConnected_FastReconnectUsesHint(t *testing.T) {
	r := &fakeRadio{identity: liveIdentity}
	st := storeWith(t, liveIdentity)
	m, _, _ := newManager(t, testConfig(), r, st)
	m.Init()

	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("EnsureConnected err=%v", err)
	}
	if len(r.hints) != 1 || r.hints[0] == nil {
		t.Fatalf("expected one hinted attempt, got %v", r.hints)
	}
	if r.hints[0].Channel != liveIdentity.Channel || r.hints[0].Peer != liveIdentity.Peer {
		t.Fatalf("hint mismatch: %+v", *r.hints[0])
	}
	if got := m.Snapshot(); got.Status != status.Connected || !got.UsedHint {
		t.Fatalf("snapshot=%+v", got)
	}
	if st.Writes() != 1 {
		t.Fatalf("unchanged session must not be rewritten, writes=%d", st.Writes())
	}
}

func TestEnsureConnected_CorruptRecordForcesFullConnect(t *testing.T) {
	good := storeWith(t, liveIdentity)
	block, _ := good.Load()

	for i := range block {
		bad := append([]byte(nil), block...)
		bad[i] ^= 0x01

		st := session.NewMemStore()
		if err := st.Save(bad); err != nil {
			t.Fatalf("save: %v", err)
		}

		r := &fakeRadio{identity: liveIdentity}
		m, _, _ := newManager(t, testConfig(), r, st)
		m.Init()

		if m.Hint() != nil {
			t.Fatalf("byte %d: corrupt record produced a hint", i)
		}
		if err := m.EnsureConnected(context.Background()); err != nil {
			t.Fatalf("byte %d: err=%v", i, err)
		}
		if r.hints[0] != nil {
			t.Fatalf("byte %d: corrupt record used for fast reconnect", i)
		}
		if st.Writes() != 2 {
			t.Fatalf("byte %d: expected repaired record to be written, writes=%d", i, st.Writes())
		}
	}
}

func TestEnsureConnected_PersistsOnlyOnChange(t *testing.T) {
	st := storeWith(t, liveIdentity)

	moved := liveIdentity
	moved.Channel = 11
	r := &fakeRadio{identity: moved}
	m, _, _ := newManager(t, testConfig(), r, st)
	m.Init()

	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("EnsureConnected err=%v", err)
	}
	if st.Writes() != 2 {
		t.Fatalf("changed channel must be persisted, writes=%d", st.Writes())
	}

	got, err := session.Read(st)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Channel != 11 || got.Device != liveIdentity.Device {
		t.Fatalf("stored record=%+v", got)
	}

	// link lost and regained on the same session: no new write
	r.up = false
	if m.Monitor() {
		t.Fatalf("Monitor must report the lost link")
	}
	if m.Snapshot().Status != status.Disconnected {
		t.Fatalf("status=%s want disconnected", m.Snapshot().Status)
	}
	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("reconnect err=%v", err)
	}
	if st.Writes() != 2 {
		t.Fatalf("same session must not be rewritten, writes=%d", st.Writes())
	}
}

func TestEnsureConnected_FallbackDropsHint(t *testing.T) {
	st := storeWith(t, liveIdentity)
	r := &fakeRadio{identity: liveIdentity, failFirst: 100}
	m, _, clk := newManager(t, testConfig(), r, st)
	m.Init()

	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("EnsureConnected err=%v", err)
	}
	if r.attempts != 101 {
		t.Fatalf("attempts=%d want 101", r.attempts)
	}
	if r.hints[99] == nil {
		t.Fatalf("attempts before the threshold must use the hint")
	}
	if r.hints[100] != nil {
		t.Fatalf("attempt after the threshold must be hint-free")
	}
	if r.resets != 1 {
		t.Fatalf("resets=%d want 1", r.resets)
	}
	if got := m.Snapshot(); got.RetryCount != 0 || got.UsedHint {
		t.Fatalf("snapshot after connect=%+v", got)
	}
	if clk.Now() != clock.Millis(100*50) {
		t.Fatalf("attempt spacing: clock=%d", clk.Now())
	}
}

func TestEnsureConnected_GiveUpSleepsOnce(t *testing.T) {
	r := &fakeRadio{identity: liveIdentity, failFirst: -1}
	m, sl, _ := newManager(t, testConfig(), r, session.NewMemStore())
	m.Init()

	err := m.EnsureConnected(context.Background())
	if !errors.Is(err, ErrConnectionImpossible) {
		t.Fatalf("expected ErrConnectionImpossible, got %v", err)
	}
	if r.attempts != 120 {
		t.Fatalf("attempts=%d want 120", r.attempts)
	}
	if len(sl.calls) != 1 || sl.calls[0] != 30*time.Second {
		t.Fatalf("sleep calls=%v", sl.calls)
	}
	if r.offs != 1 {
		t.Fatalf("radio must be switched off before sleeping, offs=%d", r.offs)
	}
	if m.Snapshot().Status != status.Degraded {
		t.Fatalf("status=%s want degraded", m.Snapshot().Status)
	}

	// degraded for the rest of the wake: no more attempts, no second sleep
	for i := 0; i < 3; i++ {
		if err := m.EnsureConnected(context.Background()); !errors.Is(err, ErrConnectionImpossible) {
			t.Fatalf("call %d: err=%v", i, err)
		}
	}
	if r.attempts != 120 || len(sl.calls) != 1 {
		t.Fatalf("after give-up: attempts=%d sleeps=%d", r.attempts, len(sl.calls))
	}
}

func TestEnsureConnected_ContextCancelStopsRetrying(t *testing.T) {
	r := &fakeRadio{failFirst: -1}
	m, sl, _ := newManager(t, testConfig(), r, session.NewMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.EnsureConnected(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if r.attempts != 1 || len(sl.calls) != 0 {
		t.Fatalf("attempts=%d sleeps=%d", r.attempts, len(sl.calls))
	}
	if got := m.Snapshot(); got.Status != status.Disconnected || got.RetryCount != 1 {
		t.Fatalf("snapshot=%+v", got)
	}
}

func TestInit_BatteryKeepsRadioOffUntilFirstAttempt(t *testing.T) {
	cfg := testConfig()
	cfg.OnBattery = true
	r := &fakeRadio{identity: liveIdentity}
	m, _, _ := newManager(t, cfg, r, session.NewMemStore())

	m.Init()
	if r.offs != 1 || r.wakes != 0 {
		t.Fatalf("after Init offs=%d wakes=%d", r.offs, r.wakes)
	}
	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("EnsureConnected err=%v", err)
	}
	if r.wakes != 1 {
		t.Fatalf("wakes=%d want 1", r.wakes)
	}
}
