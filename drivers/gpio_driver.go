package drivers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

const gpioDriverName = "gpio"
const gpioMaxPin = 53

// GpIO drives the bus through the memory mapped gpio registers of a
// Raspberry Pi. Port/bit pairs are mapped to BCM numbers with PinMap (keyed
// by pin name, e.g. "PB0"); unmapped pins use port*8+bit.
type GpIO struct {
	PinMap map[string]uint8

	isReady bool
}

func (gp *GpIO) bcm(pin Pin) (rpio.Pin, error) {
	if !pin.Valid() {
		return 0, errors.Errorf("gpio: invalid pin %s", pin)
	}
	no, mapped := gp.PinMap[pin.String()]
	if !mapped {
		no = uint8(pin.Port)*8 + pin.Bit
	}
	if no > gpioMaxPin {
		return 0, errors.Errorf("gpio: pin %s maps to %d, out of range", pin, no)
	}
	return rpio.Pin(no), nil
}

func (gp *GpIO) Setup(ctx context.Context) error {
	for name := range gp.PinMap {
		if _, err := ParsePin(name); err != nil {
			return errors.Wrap(err, "failed to Setup gpio driver")
		}
	}
	err := rpio.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to Setup gpio driver (pin map: %v)", gp.PinMap)
	}

	gp.isReady = true
	return nil
}

func (gp *GpIO) SetDirection(pin Pin, dir Direction) error {
	p, err := gp.bcm(pin)
	if err != nil {
		return err
	}
	if dir == Output {
		p.Output()
	} else {
		p.Input()
	}
	return nil
}

func (gp *GpIO) SetLevel(pin Pin, level Level) error {
	p, err := gp.bcm(pin)
	if err != nil {
		return err
	}
	if level {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (gp *GpIO) GetLevel(pin Pin) (level Level, err error) {
	p, err := gp.bcm(pin)
	if err != nil {
		return
	}
	level = p.Read() == rpio.High
	return
}

func (gp *GpIO) SetPullUp(pin Pin, enable bool) error {
	p, err := gp.bcm(pin)
	if err != nil {
		return err
	}
	if enable {
		p.PullUp()
	} else {
		p.PullOff()
	}
	return nil
}

func (gp *GpIO) String() string {
	return gpioDriverName
}

func (gp *GpIO) IsReady() bool {
	return gp.isReady
}

func (gp *GpIO) Close() error {
	if !gp.isReady {
		return nil
	}
	gp.isReady = false
	return rpio.Close()
}
