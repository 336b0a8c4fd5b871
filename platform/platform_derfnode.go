//go:build !sensterm

package platform

import (
	"github.com/hubertat/fifolink/bus"
	"github.com/hubertat/fifolink/drivers"
)

const Selected = DeRFNode

// NewBus builds the byte transfer engine of the selected board.
func NewBus(ctrl drivers.PinController) (bus.ByteBus, error) {
	b, err := bus.NewSplitBus(ctrl, *selectedWiring.Split)
	if err != nil {
		return nil, err
	}
	return b, nil
}
