package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/fifolink/drivers"
)

// SplitBusPins wires a bridge with every data line on its own pin. Data[n]
// carries bit n.
type SplitBusPins struct {
	Data [8]drivers.Pin
	RD   drivers.Pin
	WR   drivers.Pin
}

func (p SplitBusPins) Validate() error {
	return checkPins(append(p.Data[:], p.RD, p.WR)...)
}

// SplitBus transfers bytes bit by bit over independently wired data pins.
// There is no chip select, so the opposite strobe is forced idle before
// every transfer.
type SplitBus struct {
	Pins   SplitBusPins
	Settle time.Duration

	ctrl   drivers.PinController
	logger *log.Logger
	mu     sync.Mutex
}

func NewSplitBus(ctrl drivers.PinController, pins SplitBusPins) (*SplitBus, error) {
	if err := pins.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid split bus wiring")
	}
	return &SplitBus{
		Pins:   pins,
		Settle: SplitBusSettle,
		ctrl:   ctrl,
		logger: newLogger("SplitBus: "),
	}, nil
}

func (b *SplitBus) String() string {
	return fmt.Sprintf("split bus (rd: %s, wr: %s, ctrl: %s)", b.Pins.RD, b.Pins.WR, b.ctrl)
}

func (b *SplitBus) idle() {
	s := &sequence{ctrl: b.ctrl}
	s.level(b.Pins.RD, drivers.High)
	s.level(b.Pins.WR, drivers.High)
	if s.err != nil {
		b.logger.Error("failed to return bus to idle", "err", s.err)
	}
}

func (b *SplitBus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &sequence{ctrl: b.ctrl}
	s.output(b.Pins.RD, drivers.High)
	s.output(b.Pins.WR, drivers.High)
	if s.err != nil {
		return errors.Wrap(s.err, "split bus reset failed")
	}
	return nil
}

func (b *SplitBus) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &sequence{ctrl: b.ctrl}
	for _, pin := range b.Pins.Data {
		s.dir(pin, drivers.Input)
	}

	s.output(b.Pins.WR, drivers.High)
	s.output(b.Pins.RD, drivers.Low)
	if s.err == nil {
		Delay(b.Settle)
	}

	var value byte
	for bit, pin := range b.Pins.Data {
		if s.get(pin) {
			value |= 1 << bit
		}
	}
	s.level(b.Pins.RD, drivers.High)

	if s.err != nil {
		b.idle()
		return 0, errors.Wrap(s.err, "split bus read failed")
	}
	b.logger.Debug("read", "value", value)
	return value, nil
}

func (b *SplitBus) WriteByte(value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &sequence{ctrl: b.ctrl}
	for bit, pin := range b.Pins.Data {
		s.level(pin, drivers.Level(value&(1<<bit) != 0))
	}
	for _, pin := range b.Pins.Data {
		s.dir(pin, drivers.Output)
	}

	s.output(b.Pins.RD, drivers.High)
	s.output(b.Pins.WR, drivers.Low)
	s.level(b.Pins.WR, drivers.High)

	if s.err != nil {
		b.idle()
		return errors.Wrapf(s.err, "split bus write of %#02x failed", value)
	}
	b.logger.Debug("write", "value", value)
	return nil
}
