// internal/scheduler/types.go
package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Phase is one step of the acquisition cycle.
type Phase uint8

const (
	PreAcquire Phase = iota
	Acquire
	PostAcquire
)

func (p Phase) String() string {
	switch p {
	case PreAcquire:
		return "pre-acquire"
	case Acquire:
		return "acquire"
	case PostAcquire:
		return "post-acquire"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Schedulable is the capability a sensor supplies to the scheduler.
// PreAcquire typically energizes the sensor, Acquire reads and reports,
// PostAcquire powers it back down.
type Schedulable interface {
	PreAcquire(ctx context.Context) error
	Acquire(ctx context.Context) error
	PostAcquire(ctx context.Context) error
}

// Intervals is the cadence configuration of one scheduler.
type Intervals struct {
	Pre     time.Duration
	Acquire time.Duration
	Post    time.Duration

	// Offset delays the first cycle only; it is consumed on the first tick.
	Offset time.Duration
}
