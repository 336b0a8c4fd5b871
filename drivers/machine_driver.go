//go:build tinygo

package drivers

import (
	"context"
	"machine"

	"github.com/pkg/errors"
)

const machineDriverName = "machine"

// MachineIO drives the bus with the tinygo machine package. Every pin used
// by the bus must be listed in Pins.
type MachineIO struct {
	Pins map[Pin]machine.Pin

	pullups map[Pin]bool
	isReady bool
}

func (m *MachineIO) pin(pin Pin) (machine.Pin, error) {
	p, found := m.Pins[pin]
	if !found {
		return machine.NoPin, errors.Errorf("machine: pin %s not mapped", pin)
	}
	return p, nil
}

func (m *MachineIO) Setup(ctx context.Context) error {
	if len(m.Pins) == 0 {
		return errors.New("machine: empty pin map")
	}
	m.pullups = make(map[Pin]bool)
	m.isReady = true
	return nil
}

func (m *MachineIO) SetDirection(pin Pin, dir Direction) error {
	p, err := m.pin(pin)
	if err != nil {
		return err
	}
	switch {
	case dir == Output:
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	case m.pullups[pin]:
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	default:
		p.Configure(machine.PinConfig{Mode: machine.PinInput})
	}
	return nil
}

func (m *MachineIO) SetLevel(pin Pin, level Level) error {
	p, err := m.pin(pin)
	if err != nil {
		return err
	}
	p.Set(bool(level))
	return nil
}

func (m *MachineIO) GetLevel(pin Pin) (Level, error) {
	p, err := m.pin(pin)
	if err != nil {
		return Low, err
	}
	return Level(p.Get()), nil
}

func (m *MachineIO) SetPullUp(pin Pin, enable bool) error {
	p, err := m.pin(pin)
	if err != nil {
		return err
	}
	m.pullups[pin] = enable
	if enable {
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	return nil
}

func (m *MachineIO) String() string {
	return machineDriverName
}

func (m *MachineIO) IsReady() bool {
	return m.isReady
}

func (m *MachineIO) Close() error {
	m.isReady = false
	return nil
}
