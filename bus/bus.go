// Package bus implements byte transfers over a bit-banged parallel interface
// to an FT245 style USB FIFO bridge. Two wirings are supported: SharedBus,
// a contiguous 8-bit data port gated by a 2-bit chip-select decode, and
// SplitBus, eight independently wired data pins with separate strobes.
//
// RD and WR are active low. Every call returns with both strobes high and,
// on a SharedBus, the chip select decoded away from the bridge.
package bus

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/fifolink/drivers"
)

const (
	// SharedBusSettle is the time the bridge gets to drive the data port
	// after RD goes low on a chip-select gated bus.
	SharedBusSettle = time.Microsecond
	// SplitBusSettle is the same for independently wired data pins.
	SplitBusSettle = 5 * time.Microsecond
)

var ErrInvalidPin = errors.New("invalid pin")

// ByteBus moves single bytes to and from the bridge. Implementations
// serialize calls; a call owns the bus until the strobes are idle again.
type ByteBus interface {
	io.ByteReader
	io.ByteWriter
	// Reset parks the strobes (and chip select) in the idle state.
	Reset() error
	String() string
}

// Delay busy-waits for at least d on the monotonic clock. It does not yield
// to the scheduler.
func Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}

func newLogger(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix: prefix,
		Level:  log.GetLevel(),
	})
}

func checkPins(pins ...drivers.Pin) error {
	seen := make(map[drivers.Pin]bool)
	for _, pin := range pins {
		if !pin.Valid() {
			return errors.Wrapf(ErrInvalidPin, "%s out of range", pin)
		}
		if seen[pin] {
			return errors.Wrapf(ErrInvalidPin, "%s wired twice", pin)
		}
		seen[pin] = true
	}
	return nil
}
