// internal/connectivity/manager.go
package connectivity

import (
	"context"
	"errors"
	"time"

	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/clock"
	"github.com/tamzrod/sensor-node/internal/link"
	"github.com/tamzrod/sensor-node/internal/logutil"
	"github.com/tamzrod/sensor-node/internal/session"
	"github.com/tamzrod/sensor-node/internal/status"
)

// ErrConnectionImpossible is returned once retries are exhausted for this wake cycle.
// A sleep has already been requested when it is returned.
var ErrConnectionImpossible = errors.New("connectivity: connection impossible")

// Radio is the network attachment the manager drives.
type Radio interface {
	Connect(ctx context.Context, hint *link.Hint) error
	Connected() bool
	Identity() link.Identity
	Reset()
	Off()
	Wake()
}

// Sleeper suspends the node. Implemented by the power controller.
type Sleeper interface {
	ScheduleSleep(d time.Duration) error
}

// Config holds the retry policy. Durations are converted to attempt counts
// using RetryDelay as the spacing between attempts.
type Config struct {
	PersistSession bool
	OnBattery      bool

	RetryDelay    time.Duration
	FallbackAfter time.Duration
	GiveUpAfter   time.Duration
	GiveUpSleep   time.Duration

	LoggerFactory logging.LoggerFactory
}

// Manager owns the connection state and the persisted session record.
// It is driven by the control loop only.
type Manager struct {
	cfg     Config
	clock   clock.Clock
	radio   Radio
	store   session.Store
	sleeper Sleeper
	log     logging.LeveledLogger

	fallbackAt int
	giveUpAt   int

	record session.Record
	hint   *link.Hint
	state  status.Snapshot
}

func New(cfg Config, clk clock.Clock, radio Radio, store session.Store, sleeper Sleeper) (*Manager, error) {
	if clk == nil || radio == nil || sleeper == nil {
		return nil, errors.New("connectivity: clock, radio and sleeper required")
	}
	if cfg.PersistSession && store == nil {
		return nil, errors.New("connectivity: store required when persisting the session")
	}
	if cfg.RetryDelay <= 0 {
		return nil, errors.New("connectivity: retry delay must be > 0")
	}
	if cfg.FallbackAfter < cfg.RetryDelay {
		return nil, errors.New("connectivity: fallback_after must be >= retry_delay")
	}
	if cfg.GiveUpAfter <= cfg.FallbackAfter {
		return nil, errors.New("connectivity: give_up_after must be > fallback_after")
	}

	return &Manager{
		cfg:        cfg,
		clock:      clk,
		radio:      radio,
		store:      store,
		sleeper:    sleeper,
		log:        logutil.Scoped(cfg.LoggerFactory, "connectivity"),
		fallbackAt: int(cfg.FallbackAfter / cfg.RetryDelay),
		giveUpAt:   int(cfg.GiveUpAfter / cfg.RetryDelay),
		state:      status.Snapshot{Status: status.Disconnected},
	}, nil
}

// Init reads the persisted record once at boot.
// A missing or corrupt record leaves the manager without a hint.
func (m *Manager) Init() {
	if m.cfg.OnBattery {
		m.radio.Off()
	}
	if !m.cfg.PersistSession {
		return
	}

	r, err := session.Read(m.store)
	switch {
	case err == nil:
		m.record = r
		m.hint = &link.Hint{Channel: r.Channel, Peer: r.Peer}
		m.log.Debugf("session hint loaded (channel %d)", r.Channel)
	case errors.Is(err, session.ErrNoRecord):
		m.log.Debug("no session record")
	default:
		m.log.Warnf("session record ignored: %v", err)
	}
}

// EnsureConnected blocks until the link is up or retries are exhausted.
//
// Attempts are spaced by RetryDelay. Once FallbackAfter worth of attempts have
// failed the radio is reset and the hint dropped. Once GiveUpAfter worth have
// failed the radio is switched off, a sleep is scheduled and
// ErrConnectionImpossible is returned; every later call in this wake returns
// it without touching the radio.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	if m.state.Status == status.Degraded {
		return ErrConnectionImpossible
	}
	if m.state.Status == status.Connected && m.radio.Connected() {
		return nil
	}

	if m.cfg.OnBattery {
		m.radio.Wake()
	}

	m.state.Status = status.Connecting
	hint := m.hint
	m.state.UsedHint = hint != nil

	for {
		m.state.LastAttempt = m.clock.Now()
		err := m.radio.Connect(ctx, hint)
		if err == nil {
			break
		}

		m.state.RetryCount++
		m.log.Debugf("attempt %d failed (hint=%v): %v", m.state.RetryCount, hint != nil, err)

		if m.state.RetryCount == m.fallbackAt {
			m.log.Infof("no connection after %d attempts, falling back to full connect", m.state.RetryCount)
			m.radio.Reset()
			hint = nil
			m.hint = nil
			m.state.UsedHint = false
		}

		if m.state.RetryCount >= m.giveUpAt {
			return m.giveUp()
		}

		if err := ctx.Err(); err != nil {
			m.state.Status = status.Disconnected
			return err
		}
		m.clock.Sleep(m.cfg.RetryDelay)
	}

	m.log.Infof("connected after %d retries", m.state.RetryCount)
	m.state.RetryCount = 0
	m.state.Status = status.Connected
	m.remember()
	return nil
}

// Monitor is the health check run by the control loop.
// It reports whether the session is live and moves a lost link to Disconnected.
func (m *Manager) Monitor() bool {
	if m.state.Status != status.Connected {
		return false
	}
	if m.radio.Connected() {
		return true
	}
	m.log.Warn("link lost")
	m.state.Status = status.Disconnected
	return false
}

// Snapshot returns the connection state for diagnostics.
func (m *Manager) Snapshot() status.Snapshot { return m.state }

// Hint returns the hint the next attempt will use, or nil.
func (m *Manager) Hint() *link.Hint {
	if m.hint == nil {
		return nil
	}
	h := *m.hint
	return &h
}

// ---- internals ----

func (m *Manager) giveUp() error {
	m.state.Status = status.Degraded
	m.log.Errorf("no connection after %d attempts, sleeping %s", m.state.RetryCount, m.cfg.GiveUpSleep)
	m.radio.Off()
	if err := m.sleeper.ScheduleSleep(m.cfg.GiveUpSleep); err != nil {
		m.log.Errorf("sleep request failed: %v", err)
	}
	return ErrConnectionImpossible
}

// remember updates the hint from the live session and persists the record
// when its checksum changes.
func (m *Manager) remember() {
	id := m.radio.Identity()
	m.hint = &link.Hint{Channel: id.Channel, Peer: id.Peer}

	if !m.cfg.PersistSession {
		return
	}

	r := m.record
	if r.Channel != id.Channel || r.Peer != id.Peer || r.Device != id.Device {
		r.Channel = id.Channel
		r.Peer = id.Peer
		r.Device = id.Device
	}
	if !r.Seal() {
		m.log.Debug("session record unchanged")
		return
	}
	if err := session.Write(m.store, r); err != nil {
		m.log.Warnf("persist session: %v", err)
		return
	}
	m.record = r
	m.log.Debugf("session record saved (channel %d)", r.Channel)
}
