// internal/power/controller.go
package power

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/clock"
	"github.com/tamzrod/sensor-node/internal/logutil"
)

// ErrSuspended is returned when a sleep was already entered in this wake.
var ErrSuspended = errors.New("power: already suspended")

// Platform enters deep sleep. RAM state does not survive a successful call.
type Platform interface {
	Suspend(d time.Duration, rfDisabled bool) error
}

// Flusher delivers the final message before sleeping.
type Flusher interface {
	Send(ctx context.Context, msg string) error
}

// RadioSwitch is the part of the radio the controller turns off.
type RadioSwitch interface {
	Off()
}

type Config struct {
	// OnBattery keeps the radio disabled across the sleep boundary.
	OnBattery bool

	// FlushTimeout bounds the run-time report.
	FlushTimeout time.Duration

	LoggerFactory logging.LoggerFactory
}

type Controller struct {
	cfg      Config
	clock    clock.Clock
	platform Platform
	flusher  Flusher
	radio    RadioSwitch
	log      logging.LeveledLogger

	suspended bool
	sleeps    int
}

// New builds a controller. flusher may be nil and is settable later
// because the sender usually depends on the controller.
func New(cfg Config, clk clock.Clock, p Platform, radio RadioSwitch) (*Controller, error) {
	if clk == nil || p == nil || radio == nil {
		return nil, errors.New("power: clock, platform and radio required")
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 5 * time.Second
	}
	return &Controller{
		cfg:      cfg,
		clock:    clk,
		platform: p,
		radio:    radio,
		log:      logutil.Scoped(cfg.LoggerFactory, "power"),
	}, nil
}

func (c *Controller) SetFlusher(f Flusher) { c.flusher = f }

// ScheduleSleep reports the run time, flushes it best-effort and suspends for d.
func (c *Controller) ScheduleSleep(d time.Duration) error {
	if c.suspended {
		return ErrSuspended
	}

	runTime := c.clock.Now().Sub(0)
	c.log.Infof("run time %d ms, sleeping %s", runTime.Milliseconds(), d)

	if c.flusher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FlushTimeout)
		if err := c.flusher.Send(ctx, fmt.Sprintf("RunTime %d", runTime.Milliseconds())); err != nil {
			c.log.Debugf("run time report not delivered: %v", err)
		}
		cancel()
	}

	if c.cfg.OnBattery {
		c.radio.Off()
	}

	c.suspended = true
	c.sleeps++
	if err := c.platform.Suspend(d, c.cfg.OnBattery); err != nil {
		return fmt.Errorf("power: suspend: %w", err)
	}
	return nil
}

// Suspended reports whether a sleep was entered. The control loop stops once it is set.
func (c *Controller) Suspended() bool { return c.suspended }

// Sleeps counts ScheduleSleep calls that reached the platform.
func (c *Controller) Sleeps() int { return c.sleeps }
