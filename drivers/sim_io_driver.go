package drivers

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const simDriverName = "sim"

// SimOp names a register access recorded by SimIO.
type SimOp int

const (
	OpDirection SimOp = iota
	OpLevel
	OpPullUp
	OpRead
	OpPortDirection
	OpPortWrite
	OpPortRead
)

func (op SimOp) String() string {
	switch op {
	case OpDirection:
		return "dir"
	case OpLevel:
		return "level"
	case OpPullUp:
		return "pullup"
	case OpRead:
		return "read"
	case OpPortDirection:
		return "port-dir"
	case OpPortWrite:
		return "port-write"
	case OpPortRead:
		return "port-read"
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// SimEvent is one recorded register access. Pin is set for bit operations,
// Port for port operations. Value carries the written or read value (0/1 for
// bit operations, Direction for direction changes).
type SimEvent struct {
	At    time.Time
	Op    SimOp
	Pin   Pin
	Port  Port
	Value uint8
}

func (ev SimEvent) String() string {
	switch ev.Op {
	case OpPortDirection, OpPortWrite, OpPortRead:
		return fmt.Sprintf("%s %s=%#02x", ev.Op, ev.Port, ev.Value)
	}
	return fmt.Sprintf("%s %s=%d", ev.Op, ev.Pin, ev.Value)
}

// SimListener is notified after a pin's direction or output level was
// written. It is called without SimIO's lock held.
type SimListener interface {
	PinChanged(sim *SimIO, pin Pin)
}

type simPort struct {
	ddr    uint8
	out    uint8
	ext    uint8
	driven uint8
	pullup uint8
}

func (sp *simPort) input(mask uint8) bool {
	switch {
	case sp.ddr&mask != 0:
		return sp.out&mask != 0
	case sp.driven&mask != 0:
		return sp.ext&mask != 0
	}
	return sp.pullup&mask != 0
}

// SimIO is an in-memory register bank. Pins configured as inputs read the
// level driven by a peer (see Drive), or high when pulled up and undriven.
type SimIO struct {
	mu          sync.Mutex
	ports       [portCount]simPort
	trace       []SimEvent
	recording   bool
	contentions int
	listeners   []SimListener

	writeTo          io.Writer
	writeStateChange bool

	ready bool
}

func (sim *SimIO) Setup(ctx context.Context) error {
	sim.mu.Lock()
	sim.ready = true
	sim.mu.Unlock()
	return nil
}

func (sim *SimIO) Close() error {
	sim.mu.Lock()
	sim.ready = false
	sim.mu.Unlock()
	return nil
}

func (sim *SimIO) String() string {
	return simDriverName
}

func (sim *SimIO) IsReady() bool {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.ready
}

// Attach registers a listener for output changes.
func (sim *SimIO) Attach(listener SimListener) {
	sim.mu.Lock()
	sim.listeners = append(sim.listeners, listener)
	sim.mu.Unlock()
}

// Record starts recording register accesses, discarding earlier ones.
func (sim *SimIO) Record() {
	sim.mu.Lock()
	sim.recording = true
	sim.trace = nil
	sim.mu.Unlock()
}

// Trace returns the accesses recorded since Record.
func (sim *SimIO) Trace() []SimEvent {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return append([]SimEvent(nil), sim.trace...)
}

// Contentions counts writes and drives that left a pin driven by both sides.
func (sim *SimIO) Contentions() int {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.contentions
}

func (sim *SimIO) MonitorStateChanges(writer io.Writer) {
	sim.mu.Lock()
	sim.writeTo = writer
	sim.writeStateChange = true
	sim.mu.Unlock()
}

func (sim *SimIO) record(ev SimEvent) {
	if sim.recording {
		ev.At = time.Now()
		sim.trace = append(sim.trace, ev)
	}
}

func (sim *SimIO) checkContention(sp *simPort, mask uint8) {
	if sp.ddr&sp.driven&mask != 0 {
		sim.contentions++
	}
}

func (sim *SimIO) notify(pins ...Pin) {
	sim.mu.Lock()
	listeners := append([]SimListener(nil), sim.listeners...)
	sim.mu.Unlock()
	for _, pin := range pins {
		for _, l := range listeners {
			l.PinChanged(sim, pin)
		}
	}
}

func (sim *SimIO) port(pin Pin) (*simPort, error) {
	if !pin.Valid() {
		return nil, errors.Errorf("sim: invalid pin %s", pin)
	}
	return &sim.ports[pin.Port], nil
}

func (sim *SimIO) SetDirection(pin Pin, dir Direction) error {
	sim.mu.Lock()
	sp, err := sim.port(pin)
	if err != nil {
		sim.mu.Unlock()
		return err
	}
	if dir == Output {
		sp.ddr |= pin.mask()
	} else {
		sp.ddr &^= pin.mask()
	}
	sim.checkContention(sp, pin.mask())
	sim.record(SimEvent{Op: OpDirection, Pin: pin, Value: uint8(dir)})
	sim.mu.Unlock()

	sim.notify(pin)
	return nil
}

func (sim *SimIO) SetLevel(pin Pin, level Level) error {
	sim.mu.Lock()
	sp, err := sim.port(pin)
	if err != nil {
		sim.mu.Unlock()
		return err
	}
	changed := (sp.out&pin.mask() != 0) != bool(level)
	if level {
		sp.out |= pin.mask()
	} else {
		sp.out &^= pin.mask()
	}
	sim.record(SimEvent{Op: OpLevel, Pin: pin, Value: levelBit(level)})
	if changed && sim.writeStateChange {
		fmt.Fprintf(sim.writeTo, "[pin %s] level changed to %v\n", pin, level)
	}
	sim.mu.Unlock()

	sim.notify(pin)
	return nil
}

func (sim *SimIO) GetLevel(pin Pin) (Level, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sp, err := sim.port(pin)
	if err != nil {
		return Low, err
	}
	level := Level(sp.input(pin.mask()))
	sim.record(SimEvent{Op: OpRead, Pin: pin, Value: levelBit(level)})
	return level, nil
}

func (sim *SimIO) SetPullUp(pin Pin, enable bool) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sp, err := sim.port(pin)
	if err != nil {
		return err
	}
	if enable {
		sp.pullup |= pin.mask()
	} else {
		sp.pullup &^= pin.mask()
	}
	sim.record(SimEvent{Op: OpPullUp, Pin: pin, Value: levelBit(Level(enable))})
	return nil
}

func (sim *SimIO) SetPortDirection(port Port, dir Direction) error {
	if port >= portCount {
		return errors.Errorf("sim: invalid port %s", port)
	}
	sim.mu.Lock()
	sp := &sim.ports[port]
	prev := sp.ddr
	if dir == Output {
		sp.ddr = 0xff
	} else {
		sp.ddr = 0x00
	}
	sim.checkContention(sp, 0xff)
	sim.record(SimEvent{Op: OpPortDirection, Port: port, Value: uint8(dir)})
	changed := changedPins(port, prev^sp.ddr)
	sim.mu.Unlock()

	sim.notify(changed...)
	return nil
}

func (sim *SimIO) WritePort(port Port, value uint8) error {
	if port >= portCount {
		return errors.Errorf("sim: invalid port %s", port)
	}
	sim.mu.Lock()
	sp := &sim.ports[port]
	prev := sp.out
	sp.out = value
	sim.record(SimEvent{Op: OpPortWrite, Port: port, Value: value})
	changed := changedPins(port, prev^value)
	sim.mu.Unlock()

	sim.notify(changed...)
	return nil
}

func (sim *SimIO) ReadPort(port Port) (uint8, error) {
	if port >= portCount {
		return 0, errors.Errorf("sim: invalid port %s", port)
	}
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sp := &sim.ports[port]
	var value uint8
	for bit := uint8(0); bit < 8; bit++ {
		if sp.input(1 << bit) {
			value |= 1 << bit
		}
	}
	sim.record(SimEvent{Op: OpPortRead, Port: port, Value: value})
	return value, nil
}

// Drive makes the peer drive an input pin to the given level.
func (sim *SimIO) Drive(pin Pin, level Level) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sp, err := sim.port(pin)
	if err != nil {
		return
	}
	sp.driven |= pin.mask()
	if level {
		sp.ext |= pin.mask()
	} else {
		sp.ext &^= pin.mask()
	}
	sim.checkContention(sp, pin.mask())
}

// Release stops the peer driving a pin.
func (sim *SimIO) Release(pin Pin) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	if sp, err := sim.port(pin); err == nil {
		sp.driven &^= pin.mask()
	}
}

// Output returns what the host side drives on a pin; driven is false when
// the pin is configured as input.
func (sim *SimIO) Output(pin Pin) (level Level, driven bool) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sp, err := sim.port(pin)
	if err != nil {
		return
	}
	return Level(sp.out&pin.mask() != 0), sp.ddr&pin.mask() != 0
}

// Wire returns the level seen on a pin from either side.
func (sim *SimIO) Wire(pin Pin) Level {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sp, err := sim.port(pin)
	if err != nil {
		return Low
	}
	return Level(sp.input(pin.mask()))
}

// Registers returns the direction and output registers of a port.
func (sim *SimIO) Registers(port Port) (ddr uint8, out uint8) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	if port >= portCount {
		return
	}
	return sim.ports[port].ddr, sim.ports[port].out
}

func levelBit(level Level) uint8 {
	if level {
		return 1
	}
	return 0
}

func changedPins(port Port, mask uint8) (pins []Pin) {
	for bit := uint8(0); bit < 8; bit++ {
		if mask&(1<<bit) != 0 {
			pins = append(pins, portPin(port, bit))
		}
	}
	return
}
