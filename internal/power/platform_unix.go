// internal/power/platform_unix.go

//go:build unix

package power

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// RFDisabledEnv marks a process started by a sleep that kept the radio off.
const RFDisabledEnv = "SENSORNODE_RF_DISABLED"

// Host suspends by sleeping and then re-executing the binary, which drops
// all in-memory state the way a deep-sleep reset does.
type Host struct{}

func (Host) Suspend(d time.Duration, rfDisabled bool) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("executable: %w", err)
	}

	time.Sleep(d)

	env := make([]string, 0, len(os.Environ())+1)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, RFDisabledEnv+"=") {
			env = append(env, kv)
		}
	}
	if rfDisabled {
		env = append(env, RFDisabledEnv+"=1")
	}
	return unix.Exec(exe, os.Args, env)
}

// WokeRFDisabled reports whether this boot follows a sleep with the radio kept off.
func WokeRFDisabled() bool { return os.Getenv(RFDisabledEnv) == "1" }
