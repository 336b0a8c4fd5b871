//go:build sensterm

package platform

import (
	"github.com/hubertat/fifolink/bus"
	"github.com/hubertat/fifolink/drivers"
)

const Selected = SensTermBoard

var selectedWiring = SensTermWiring

// NewBus builds the byte transfer engine of the selected board.
func NewBus(ctrl drivers.PinController) (bus.ByteBus, error) {
	b, err := bus.NewSharedBus(ctrl, *selectedWiring.Shared)
	if err != nil {
		return nil, err
	}
	return b, nil
}
