package drivers

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/racerxdl/go-mcp23017"
)

const mcpioDriverName = "mcpio"

// McpIO drives the bus through an MCP23017 i2c port expander. Its GPA bank
// is exposed as PortA and GPB as PortB.
type McpIO struct {
	device *mcp23017.Device

	isReady bool

	BusNo uint8
	DevNo uint8
}

func (mcp *McpIO) mcpPin(pin Pin) (uint8, error) {
	if !pin.Valid() || pin.Port > PortB {
		return 0, fmt.Errorf("mcpio: pin %s not available on expander", pin)
	}
	return uint8(pin.Port)*8 + pin.Bit, nil
}

func (mcp *McpIO) String() string {
	return mcpioDriverName
}

func (mcp *McpIO) IsReady() bool {
	return mcp.isReady
}

func (mcp *McpIO) Setup(ctx context.Context) (err error) {
	mcp.device, err = mcp23017.Open(mcp.BusNo, mcp.DevNo)
	if err != nil {
		err = errors.Wrapf(err, "failed to open mcp23017 (bus: %d, dev: %d)", mcp.BusNo, mcp.DevNo)
		return
	}

	mcp.isReady = true
	return
}

func (mcp *McpIO) SetDirection(pin Pin, dir Direction) error {
	no, err := mcp.mcpPin(pin)
	if err != nil {
		return err
	}
	mode := mcp23017.INPUT
	if dir == Output {
		mode = mcp23017.OUTPUT
	}
	return mcp.device.PinMode(no, mode)
}

func (mcp *McpIO) SetLevel(pin Pin, level Level) error {
	no, err := mcp.mcpPin(pin)
	if err != nil {
		return err
	}
	return mcp.device.DigitalWrite(no, mcp23017.PinLevel(level))
}

func (mcp *McpIO) GetLevel(pin Pin) (level Level, err error) {
	no, err := mcp.mcpPin(pin)
	if err != nil {
		return
	}
	raw, err := mcp.device.DigitalRead(no)
	if err != nil {
		return
	}
	level = Level(raw)
	return
}

func (mcp *McpIO) SetPullUp(pin Pin, enable bool) error {
	no, err := mcp.mcpPin(pin)
	if err != nil {
		return err
	}
	return mcp.device.SetPullUp(no, enable)
}

func (mcp *McpIO) Close() error {
	if mcp.device == nil {
		return nil
	}
	mcp.isReady = false
	return mcp.device.Close()
}
