// internal/status/snapshot.go
package status

import "github.com/tamzrod/sensor-node/internal/clock"

// Snapshot is the connection state as last observed.
// RetryCount resets to zero on reaching Connected.
type Snapshot struct {
	Status      Status
	RetryCount  int
	LastAttempt clock.Millis

	// UsedHint is true when the current or last attempt used the persisted hint.
	UsedHint bool
}
