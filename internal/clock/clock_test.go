// internal/clock/clock_test.go
package clock

import (
	"math"
	"testing"
	"time"
)

func TestSubAcrossWrap(t *testing.T) {
	before := Millis(math.MaxUint32 - 99)
	after := Millis(400)

	if got := after.Sub(before); got != 500*time.Millisecond {
		t.Fatalf("elapsed across wrap: got=%v want=500ms", got)
	}
	if !after.Before(before) {
		t.Fatalf("wrapped reading should compare numerically smaller")
	}
}

func TestManualAdvanceWraps(t *testing.T) {
	c := NewManual(Millis(math.MaxUint32 - 9))
	c.Sleep(20 * time.Millisecond)

	if got := c.Now(); got != 10 {
		t.Fatalf("manual clock after wrap: got=%d want=10", got)
	}
}
