// internal/power/platform_other.go

//go:build !unix

package power

import (
	"errors"
	"time"
)

const RFDisabledEnv = "SENSORNODE_RF_DISABLED"

type Host struct{}

func (Host) Suspend(d time.Duration, rfDisabled bool) error {
	time.Sleep(d)
	return errors.New("restart after sleep not supported on this platform")
}

func WokeRFDisabled() bool { return false }
