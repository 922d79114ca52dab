// internal/status/constants.go
package status

import "fmt"

// Status is the connection lifecycle state owned by the connectivity manager.
type Status uint8

// ---- LIFECYCLE ----

// Disconnected is the boot state and the state after a lost link.
const Disconnected Status = 0

// Connecting is set while attempts are in flight.
const Connecting Status = 1

// Connected means the link is up and the hub is reachable.
const Connected Status = 2

// Degraded is terminal for the current wake cycle: retries are exhausted
// and the node is going back to sleep.
const Degraded Status = 3

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}
