//go:build tinygo

package main

import (
	"context"
	"fmt"
	"machine"
	"time"

	"github.com/hubertat/fifolink/drivers"
	"github.com/hubertat/fifolink/platform"
)

// picoPins are handed out in wiring order: D0..D7, RD, WR, RXF, TXE, then
// the chip select lines.
var picoPins = []machine.Pin{
	machine.GP2, machine.GP3, machine.GP4, machine.GP5,
	machine.GP6, machine.GP7, machine.GP8, machine.GP9,
	machine.GP10, machine.GP11, machine.GP12, machine.GP13,
	machine.GP14, machine.GP15,
}

func pinMap(wiring platform.Wiring) map[drivers.Pin]machine.Pin {
	bw := wiring.BridgeWiring()
	pins := append(bw.Data[:], bw.RD, bw.WR, bw.RXF, bw.TXE)
	pins = append(pins, bw.CS...)

	mapped := make(map[drivers.Pin]machine.Pin)
	for i, pin := range pins {
		mapped[pin] = picoPins[i]
	}
	return mapped
}

func setup(ctrl drivers.PinController, wiring platform.Wiring) error {
	for _, pin := range []drivers.Pin{wiring.RXF, wiring.TXE} {
		if err := ctrl.SetPullUp(pin, true); err != nil {
			return err
		}
		if err := ctrl.SetDirection(pin, drivers.Input); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	wiring := platform.SelectedWiring()
	ctrl := &drivers.MachineIO{Pins: pinMap(wiring)}

	err := ctrl.Setup(context.Background())
	if err != nil {
		fmt.Println("setup failed: ", err.Error())
		panic(err)
	}

	b, err := platform.NewBus(ctrl)
	if err != nil {
		panic(err)
	}
	if err = b.Reset(); err != nil {
		panic(err)
	}
	if err = setup(ctrl, wiring); err != nil {
		panic(err)
	}

	fmt.Println("setup OK! echoing on", platform.Selected)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	for {
		rxf, _ := ctrl.GetLevel(wiring.RXF)
		if rxf == drivers.High {
			time.Sleep(time.Millisecond)
			continue
		}

		c, err := b.ReadByte()
		if err != nil {
			fmt.Println("read failed: ", err.Error())
			continue
		}
		led.Set(!led.Get())

		for txe, _ := ctrl.GetLevel(wiring.TXE); txe == drivers.High; txe, _ = ctrl.GetLevel(wiring.TXE) {
			time.Sleep(time.Millisecond)
		}
		if err = b.WriteByte(c); err != nil {
			fmt.Println("write failed: ", err.Error())
		}
	}
}
