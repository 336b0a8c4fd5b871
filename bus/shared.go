package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/fifolink/drivers"
)

// SharedBusPins wires a bridge whose data lines sit on one port (bit n of the
// port is Dn) and whose register bank is addressed by a 2-bit decode on
// CS0 (bit 0) and CS1 (bit 1). RD and WR strobe the selected bank.
type SharedBusPins struct {
	Data drivers.Port
	RD   drivers.Pin
	WR   drivers.Pin
	CS0  drivers.Pin
	CS1  drivers.Pin

	// Select is the decode code addressing the bridge, Deselect the one
	// parked between transfers.
	Select   uint8
	Deselect uint8
}

func (p SharedBusPins) Validate() error {
	if p.Select > 3 || p.Deselect > 3 {
		return errors.Errorf("chip select codes out of range: %d/%d", p.Select, p.Deselect)
	}
	if p.Select == p.Deselect {
		return errors.Errorf("chip select code %d used for both select and deselect", p.Select)
	}
	pins := []drivers.Pin{p.RD, p.WR, p.CS0, p.CS1}
	for bit := uint8(0); bit < 8; bit++ {
		pins = append(pins, drivers.Pin{Port: p.Data, Bit: bit})
	}
	return checkPins(pins...)
}

// SharedBus transfers bytes over a contiguous data port gated by chip select.
type SharedBus struct {
	Pins   SharedBusPins
	Settle time.Duration

	ctrl   drivers.PinController
	logger *log.Logger
	mu     sync.Mutex
}

func NewSharedBus(ctrl drivers.PinController, pins SharedBusPins) (*SharedBus, error) {
	if err := pins.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shared bus wiring")
	}
	return &SharedBus{
		Pins:   pins,
		Settle: SharedBusSettle,
		ctrl:   ctrl,
		logger: newLogger("SharedBus: "),
	}, nil
}

func (b *SharedBus) String() string {
	return fmt.Sprintf("shared bus (data: port %s, ctrl: %s)", b.Pins.Data, b.ctrl)
}

func (b *SharedBus) chipSelect(s *sequence, code uint8) {
	s.output(b.Pins.CS0, drivers.Level(code&1 != 0))
	s.output(b.Pins.CS1, drivers.Level(code&2 != 0))
}

// idle puts the strobes and chip select back after a failed sequence.
func (b *SharedBus) idle() {
	s := &sequence{ctrl: b.ctrl}
	s.level(b.Pins.RD, drivers.High)
	s.level(b.Pins.WR, drivers.High)
	b.chipSelect(s, b.Pins.Deselect)
	if s.err != nil {
		b.logger.Error("failed to return bus to idle", "err", s.err)
	}
}

func (b *SharedBus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &sequence{ctrl: b.ctrl}
	s.output(b.Pins.RD, drivers.High)
	s.output(b.Pins.WR, drivers.High)
	b.chipSelect(s, b.Pins.Deselect)
	if s.err != nil {
		return errors.Wrap(s.err, "shared bus reset failed")
	}
	return nil
}

func (b *SharedBus) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &sequence{ctrl: b.ctrl}
	s.portDir(b.Pins.Data, drivers.Input)
	b.chipSelect(s, b.Pins.Select)

	s.output(b.Pins.RD, drivers.High)
	s.level(b.Pins.RD, drivers.Low)
	if s.err == nil {
		Delay(b.Settle)
	}
	value := s.readPort(b.Pins.Data)
	s.level(b.Pins.RD, drivers.High)

	b.chipSelect(s, b.Pins.Deselect)

	if s.err != nil {
		b.idle()
		return 0, errors.Wrap(s.err, "shared bus read failed")
	}
	b.logger.Debug("read", "value", value)
	return value, nil
}

func (b *SharedBus) WriteByte(value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &sequence{ctrl: b.ctrl}
	s.writePort(b.Pins.Data, value)
	s.portDir(b.Pins.Data, drivers.Output)
	b.chipSelect(s, b.Pins.Select)

	s.output(b.Pins.WR, drivers.High)
	s.level(b.Pins.WR, drivers.Low)
	s.level(b.Pins.WR, drivers.High)

	b.chipSelect(s, b.Pins.Deselect)

	if s.err != nil {
		b.idle()
		return errors.Wrapf(s.err, "shared bus write of %#02x failed", value)
	}
	b.logger.Debug("write", "value", value)
	return nil
}
