// internal/command/router.go
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/shlex"
	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/logutil"
)

var (
	ErrNotNumeric    = errors.New("command: value is not a positive integer")
	ErrUnknownTarget = errors.New("command: unknown target")
	ErrMalformed     = errors.New("command: malformed")
)

// Target is the configuration surface of one scheduled sensor.
type Target interface {
	SetInterval(d time.Duration)
	SetPreInterval(d time.Duration)
	SetPostInterval(d time.Duration)
	SetOffset(d time.Duration)
}

// Router applies hub commands of the form
//
//	<name> <seconds>
//	<name> pre|post|offset <seconds>
//
// to registered targets.
type Router struct {
	targets map[string]Target
	log     logging.LeveledLogger

	rejected uint64
}

func NewRouter(lf logging.LoggerFactory) *Router {
	return &Router{
		targets: make(map[string]Target),
		log:     logutil.Scoped(lf, "command"),
	}
}

func (r *Router) Register(name string, t Target) error {
	if name == "" || t == nil {
		return errors.New("command: name and target required")
	}
	if _, dup := r.targets[name]; dup {
		return fmt.Errorf("command: duplicate target %q", name)
	}
	r.targets[name] = t
	return nil
}

// Rejected counts commands that were not applied.
func (r *Router) Rejected() uint64 { return r.rejected }

// HandleCommand applies cmd and logs the outcome. Failures leave every target unchanged.
func (r *Router) HandleCommand(ctx context.Context, cmd string) {
	if err := r.Apply(cmd); err != nil {
		r.rejected++
		r.log.Warnf("%q rejected: %v", cmd, err)
	}
}

// Apply parses and applies one command.
func (r *Router) Apply(cmd string) error {
	fields, err := shlex.Split(cmd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(fields) < 2 || len(fields) > 3 {
		return fmt.Errorf("%w: %q", ErrMalformed, cmd)
	}

	t, ok := r.targets[fields[0]]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, fields[0])
	}

	set, what := t.SetInterval, "interval"
	value := fields[1]
	if len(fields) == 3 {
		switch fields[1] {
		case "pre":
			set, what = t.SetPreInterval, "pre interval"
		case "post":
			set, what = t.SetPostInterval, "post interval"
		case "offset":
			set, what = t.SetOffset, "offset"
		default:
			return fmt.Errorf("%w: unknown setting %q", ErrMalformed, fields[1])
		}
		value = fields[2]
	}

	d, err := seconds(value)
	if err != nil {
		return err
	}
	set(d)
	r.log.Infof("%s %s set to %s", fields[0], what, d)
	return nil
}

func seconds(s string) (time.Duration, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: cannot convert %q", ErrNotNumeric, s)
	}
	return time.Duration(n) * time.Second, nil
}
