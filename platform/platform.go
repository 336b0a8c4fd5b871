// Package platform holds the board wirings of the bridge and selects one at
// build time. Boards built without tags use the deRFnode wiring; build with
// -tags sensterm for the sensor terminal board and with -tags rev01 for the
// REV01 deRFnode strobe wiring.
package platform

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/hubertat/fifolink/bus"
	"github.com/hubertat/fifolink/drivers"
)

type Platform int

const (
	SensTermBoard Platform = 1
	DeRFNode      Platform = 2
)

func (p Platform) String() string {
	switch p {
	case SensTermBoard:
		return "sensor terminal board"
	case DeRFNode:
		return "deRFnode"
	}
	return fmt.Sprintf("platform(%d)", int(p))
}

// Wiring is the complete pin assignment of a board: the two ready lines
// signalled by the bridge (both active low) and exactly one bus table.
type Wiring struct {
	Name string
	RXF  drivers.Pin
	TXE  drivers.Pin

	Shared *bus.SharedBusPins
	Split  *bus.SplitBusPins
}

func pin(port drivers.Port, bit uint8) drivers.Pin {
	return drivers.Pin{Port: port, Bit: bit}
}

var SensTermWiring = Wiring{
	Name: "sensterm",
	RXF:  pin(drivers.PortE, 2),
	TXE:  pin(drivers.PortB, 5),
	Shared: &bus.SharedBusPins{
		Data:     drivers.PortF,
		RD:       pin(drivers.PortD, 2),
		WR:       pin(drivers.PortD, 3),
		CS0:      pin(drivers.PortD, 6),
		CS1:      pin(drivers.PortD, 7),
		Select:   0,
		Deselect: 3,
	},
}

var deRFNodeData = [8]drivers.Pin{
	pin(drivers.PortB, 0),
	pin(drivers.PortF, 2),
	pin(drivers.PortD, 5),
	pin(drivers.PortG, 2),
	pin(drivers.PortE, 6),
	pin(drivers.PortB, 4),
	pin(drivers.PortE, 7),
	pin(drivers.PortB, 6),
}

var DeRFNodeWiring = Wiring{
	Name: "derfnode",
	RXF:  pin(drivers.PortE, 2),
	TXE:  pin(drivers.PortB, 5),
	Split: &bus.SplitBusPins{
		Data: deRFNodeData,
		RD:   pin(drivers.PortD, 2),
		WR:   pin(drivers.PortD, 3),
	},
}

var DeRFNodeRev01Wiring = Wiring{
	Name: "derfnode-rev01",
	RXF:  pin(drivers.PortE, 2),
	TXE:  pin(drivers.PortB, 5),
	Split: &bus.SplitBusPins{
		Data: deRFNodeData,
		RD:   pin(drivers.PortD, 4),
		WR:   pin(drivers.PortG, 1),
	},
}

// SelectedWiring returns the wiring compiled into this build.
func SelectedWiring() Wiring {
	return selectedWiring
}

func (w Wiring) Validate() error {
	if (w.Shared == nil) == (w.Split == nil) {
		return errors.Errorf("%s: exactly one bus table required", w.Name)
	}
	if !w.RXF.Valid() || !w.TXE.Valid() || w.RXF == w.TXE {
		return errors.Errorf("%s: invalid ready lines %s/%s", w.Name, w.RXF, w.TXE)
	}

	var busPins []drivers.Pin
	if w.Shared != nil {
		if err := w.Shared.Validate(); err != nil {
			return errors.Wrap(err, w.Name)
		}
		bw := w.BridgeWiring()
		busPins = append(bw.Data[:], bw.RD, bw.WR)
		busPins = append(busPins, bw.CS...)
	} else {
		if err := w.Split.Validate(); err != nil {
			return errors.Wrap(err, w.Name)
		}
		busPins = append(w.Split.Data[:], w.Split.RD, w.Split.WR)
	}
	for _, p := range busPins {
		if p == w.RXF || p == w.TXE {
			return errors.Errorf("%s: ready line %s shared with the bus", w.Name, p)
		}
	}
	return nil
}

// BridgeWiring describes the same board from the bridge side, for
// simulation.
func (w Wiring) BridgeWiring() (bw drivers.BridgeWiring) {
	bw.RXF = w.RXF
	bw.TXE = w.TXE
	if w.Shared != nil {
		for bit := uint8(0); bit < 8; bit++ {
			bw.Data[bit] = pin(w.Shared.Data, bit)
		}
		bw.RD = w.Shared.RD
		bw.WR = w.Shared.WR
		bw.CS = []drivers.Pin{w.Shared.CS0, w.Shared.CS1}
		bw.Select = w.Shared.Select
	}
	if w.Split != nil {
		bw.Data = w.Split.Data
		bw.RD = w.Split.RD
		bw.WR = w.Split.WR
	}
	return
}
