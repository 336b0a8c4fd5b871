package drivers

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Port identifies an 8-bit i/o port. Each port owns a direction register,
// an output register and an input register.
type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
	PortD
	PortE
	PortF
	PortG
)

const portCount = 7

func (p Port) String() string {
	if p >= portCount {
		return fmt.Sprintf("port(%d)", uint8(p))
	}
	return string(rune('A' + p))
}

// Pin is a single bit of a port.
type Pin struct {
	Port Port
	Bit  uint8
}

func (p Pin) Valid() bool {
	return p.Port < portCount && p.Bit < 8
}

func (p Pin) mask() uint8 {
	return 1 << p.Bit
}

// String returns the register style name, e.g. "PB0".
func (p Pin) String() string {
	return fmt.Sprintf("P%s%d", p.Port, p.Bit)
}

func ParsePin(name string) (pin Pin, err error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if len(name) != 3 || name[0] != 'P' {
		err = errors.Errorf("invalid pin name: %q", name)
		return
	}
	pin = Pin{Port: Port(name[1] - 'A'), Bit: name[2] - '0'}
	if !pin.Valid() {
		err = errors.Errorf("pin %q out of range", name)
	}
	return
}

type Direction uint8

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "out"
	}
	return "in"
}

type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// PinController drives single register bits of the ports a bus is wired to.
type PinController interface {
	Setup(ctx context.Context) error
	Close() error
	String() string
	IsReady() bool

	SetDirection(pin Pin, dir Direction) error
	SetLevel(pin Pin, level Level) error
	GetLevel(pin Pin) (Level, error)
	SetPullUp(pin Pin, enable bool) error
}

// PortController is implemented by controllers able to access a whole port
// in one register operation.
type PortController interface {
	SetPortDirection(port Port, dir Direction) error
	WritePort(port Port, value uint8) error
	ReadPort(port Port) (uint8, error)
}

func MapAllPinControllers() map[string]PinController {
	controllers := []PinController{
		&GpIO{},
		&McpIO{},
		&SimIO{},
	}

	mapped := make(map[string]PinController)
	for _, ctrl := range controllers {
		mapped[ctrl.String()] = ctrl
	}
	return mapped
}

func portPin(port Port, bit uint8) Pin {
	return Pin{Port: port, Bit: bit}
}

// SetPortDirection sets the direction of all 8 bits of a port, in one write
// when the controller supports it.
func SetPortDirection(ctrl PinController, port Port, dir Direction) error {
	if pc, ok := ctrl.(PortController); ok {
		return pc.SetPortDirection(port, dir)
	}
	for bit := uint8(0); bit < 8; bit++ {
		if err := ctrl.SetDirection(portPin(port, bit), dir); err != nil {
			return err
		}
	}
	return nil
}

// WritePort sets the output register of a port, bit 0 first when the
// controller has no port access.
func WritePort(ctrl PinController, port Port, value uint8) error {
	if pc, ok := ctrl.(PortController); ok {
		return pc.WritePort(port, value)
	}
	for bit := uint8(0); bit < 8; bit++ {
		if err := ctrl.SetLevel(portPin(port, bit), Level(value&(1<<bit) != 0)); err != nil {
			return err
		}
	}
	return nil
}

// ReadPort returns the input register of a port.
func ReadPort(ctrl PinController, port Port) (value uint8, err error) {
	if pc, ok := ctrl.(PortController); ok {
		return pc.ReadPort(port)
	}
	for bit := uint8(0); bit < 8; bit++ {
		var level Level
		level, err = ctrl.GetLevel(portPin(port, bit))
		if err != nil {
			return
		}
		if level {
			value |= 1 << bit
		}
	}
	return
}
