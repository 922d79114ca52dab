// internal/sensor/water.go
package sensor

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/logutil"
	"github.com/tamzrod/sensor-node/internal/scheduler"
)

// PowerSwitch energizes a probe.
type PowerSwitch interface {
	SetPower(ctx context.Context, on bool) error
}

// AnalogInput returns a raw reading.
type AnalogInput interface {
	Read(ctx context.Context) (int, error)
}

// Sender delivers one message to the hub.
type Sender interface {
	Send(ctx context.Context, msg string) error
}

type WaterConfig struct {
	Name  string
	Limit int

	// InvertLogic reports dry above the limit instead of below it.
	InvertLogic bool

	LoggerFactory logging.LoggerFactory
}

// Water is a resistive water/soil probe powered through a transistor only
// while it is being read, which keeps the probes from corroding.
type Water struct {
	name   string
	limit  int
	invert bool

	power PowerSwitch
	input AnalogInput
	out   Sender
	log   logging.LeveledLogger

	last int
}

var _ scheduler.Schedulable = (*Water)(nil)

func NewWater(cfg WaterConfig, power PowerSwitch, input AnalogInput, out Sender) (*Water, error) {
	if cfg.Name == "" {
		return nil, errors.New("sensor: name required")
	}
	if power == nil || input == nil || out == nil {
		return nil, errors.New("sensor: power, input and sender required")
	}
	return &Water{
		name:   cfg.Name,
		limit:  cfg.Limit,
		invert: cfg.InvertLogic,
		power:  power,
		input:  input,
		out:    out,
		log:    logutil.Scoped(cfg.LoggerFactory, "sensor"),
	}, nil
}

// WaterIntervals is the cadence of an NPN-powered probe. While powerOn is
// shorter than interval the probe is switched on when the cycle starts, stays
// on through the acquire window and is switched off on the tick after the
// reading.
func WaterIntervals(interval, powerOn, offset time.Duration) scheduler.Intervals {
	return scheduler.Intervals{Pre: powerOn, Acquire: interval, Post: powerOn, Offset: offset}
}

func (w *Water) Name() string { return w.name }

// Last returns the most recent raw reading.
func (w *Water) Last() int { return w.last }

func (w *Water) PreAcquire(ctx context.Context) error {
	w.log.Debugf("%s: probe power on", w.name)
	return w.power.SetPower(ctx, true)
}

func (w *Water) Acquire(ctx context.Context) error {
	raw, err := w.input.Read(ctx)
	if err != nil {
		return err
	}
	w.last = raw
	w.log.Debugf("%s: value %d vs limit %d", w.name, raw, w.limit)

	return errors.Join(
		w.out.Send(ctx, Reading(w.name, raw)),
		w.out.Send(ctx, State(w.name, w.dry(raw))),
	)
}

func (w *Water) PostAcquire(ctx context.Context) error {
	w.log.Debugf("%s: probe power off", w.name)
	return w.power.SetPower(ctx, false)
}

func (w *Water) dry(raw int) bool {
	if w.invert {
		return raw > w.limit
	}
	return raw < w.limit
}

// ---- messages ----

// Reading is "<name> <value>".
func Reading(name string, v int) string {
	return name + " " + strconv.Itoa(v)
}

// State is "<name> dry" or "<name> wet".
func State(name string, dry bool) string {
	if dry {
		return name + " dry"
	}
	return name + " wet"
}
