// internal/node/node.go
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/clock"
	"github.com/tamzrod/sensor-node/internal/logutil"
	"github.com/tamzrod/sensor-node/internal/ota"
	"github.com/tamzrod/sensor-node/internal/power"
	"github.com/tamzrod/sensor-node/internal/scheduler"
)

// ---- collaborators ----

type Connectivity interface {
	Init()
	EnsureConnected(ctx context.Context) error
	Monitor() bool
}

type Sender interface {
	Send(ctx context.Context, msg string) error
}

type Inbound interface {
	Poll(ctx context.Context) (bool, error)
}

type Power interface {
	ScheduleSleep(d time.Duration) error
	Suspended() bool
}

type Updater interface {
	Check(ctx context.Context, deviceID string) ota.Outcome
}

type Signal interface {
	SignalStrength() (int, bool)
}

// Deps are the components the control loop drives. In, OTA and Signal are optional.
type Deps struct {
	Clock    clock.Clock
	Conn     Connectivity
	Out      Sender
	In       Inbound
	Power    Power
	OTA      Updater
	Signal   Signal
	DeviceID func() string
}

type Options struct {
	Name       string
	LoopPeriod time.Duration

	// Signal reports start at RSSIStart and slow down by RSSIStep up to RSSIMax.
	RSSIStart time.Duration
	RSSIStep  time.Duration
	RSSIMax   time.Duration

	// SleepAfterCycle > 0 sleeps once every scheduler completed a cycle.
	SleepAfterCycle time.Duration

	LoggerFactory logging.LoggerFactory
}

// Node is the single-threaded control loop.
type Node struct {
	opts Options
	d    Deps
	log  logging.LeveledLogger

	schedulers []*scheduler.Scheduler

	rssiEvery time.Duration
	rssiLast  clock.Millis
}

func New(opts Options, d Deps) (*Node, error) {
	if d.Clock == nil || d.Conn == nil || d.Out == nil || d.Power == nil {
		return nil, errors.New("node: clock, connectivity, sender and power required")
	}
	if opts.LoopPeriod <= 0 {
		opts.LoopPeriod = 10 * time.Millisecond
	}
	if opts.RSSIStart <= 0 {
		opts.RSSIStart = 5 * time.Second
	}
	if opts.RSSIMax < opts.RSSIStart {
		opts.RSSIMax = opts.RSSIStart
	}
	if d.DeviceID == nil {
		d.DeviceID = func() string { return "" }
	}

	return &Node{
		opts:      opts,
		d:         d,
		log:       logutil.Scoped(opts.LoggerFactory, "node"),
		rssiEvery: opts.RSSIStart,
	}, nil
}

// Attach adds a scheduler to the loop.
func (n *Node) Attach(s *scheduler.Scheduler) {
	n.schedulers = append(n.schedulers, s)
}

func (n *Node) Schedulers() []*scheduler.Scheduler { return n.schedulers }

// Send is the outbound path used by sensors and the power controller.
// It guarantees a live session before handing the message to the transport.
func (n *Node) Send(ctx context.Context, msg string) error {
	if n.d.Power.Suspended() {
		return power.ErrSuspended
	}
	if err := n.d.Conn.EnsureConnected(ctx); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	return n.d.Out.Send(ctx, msg)
}

// Boot restores the session, connects and runs the update check.
// A failed connection is not an error: the power path already took over.
func (n *Node) Boot(ctx context.Context) error {
	n.log.Infof("%s booting", n.opts.Name)
	n.d.Conn.Init()

	if err := n.d.Conn.EnsureConnected(ctx); err != nil {
		n.log.Warnf("boot connect: %v", err)
		return nil
	}
	n.rssiLast = n.d.Clock.Now()

	if n.d.OTA != nil {
		out := n.d.OTA.Check(ctx, n.d.DeviceID())
		n.log.Infof("firmware check: %s", out.Result)
		if out.Result == ota.Updated {
			n.log.Infof("firmware %d staged, applied on next restart", out.Available)
		}
	}
	return nil
}

// Run loops until ctx ends or the node enters sleep.
func (n *Node) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n.d.Power.Suspended() {
			n.log.Info("suspended, leaving control loop")
			return nil
		}
		n.Step(ctx)
		n.d.Clock.Sleep(n.opts.LoopPeriod)
	}
}

// Step is one loop iteration.
func (n *Node) Step(ctx context.Context) {
	for _, s := range n.schedulers {
		s.Tick(ctx)
		if n.d.Power.Suspended() {
			return
		}
	}

	if n.d.In != nil {
		if _, err := n.d.In.Poll(ctx); err != nil {
			n.log.Warnf("inbound: %v", err)
		}
	}

	if n.d.Conn.Monitor() {
		n.reportSignal(ctx)
	}

	if n.opts.SleepAfterCycle > 0 && n.cycleDone() {
		if err := n.d.Power.ScheduleSleep(n.opts.SleepAfterCycle); err != nil {
			n.log.Errorf("sleep after cycle: %v", err)
		}
	}
}

func (n *Node) reportSignal(ctx context.Context) {
	if n.d.Signal == nil {
		return
	}
	now := n.d.Clock.Now()
	if now.Sub(n.rssiLast) < n.rssiEvery {
		return
	}
	n.rssiLast = now

	dbm, ok := n.d.Signal.SignalStrength()
	if !ok {
		return
	}
	if err := n.d.Out.Send(ctx, fmt.Sprintf("rssi %d", dbm)); err != nil {
		n.log.Debugf("rssi report: %v", err)
	}

	if n.rssiEvery < n.opts.RSSIMax {
		n.rssiEvery += n.opts.RSSIStep
		if n.rssiEvery > n.opts.RSSIMax {
			n.rssiEvery = n.opts.RSSIMax
		}
	}
}

func (n *Node) cycleDone() bool {
	if len(n.schedulers) == 0 {
		return false
	}
	for _, s := range n.schedulers {
		if s.Cycles() == 0 {
			return false
		}
	}
	return true
}
