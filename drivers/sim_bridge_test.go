package drivers

import (
	"testing"
)

func testWiring() BridgeWiring {
	w := BridgeWiring{RD: testRD, WR: testWR, RXF: testRXF, TXE: testTXE}
	for bit := uint8(0); bit < 8; bit++ {
		w.Data[bit] = Pin{Port: PortF, Bit: bit}
	}
	return w
}

func parkStrobes(sim *SimIO) {
	for _, pin := range []Pin{testRD, testWR} {
		sim.SetLevel(pin, High)
		sim.SetDirection(pin, Output)
	}
}

func TestSimBridgeFlags(t *testing.T) {
	sim := &SimIO{}
	bridge := NewSimBridge(sim, testWiring())

	assertBools(t, bool(sim.Wire(testRXF)), true)
	assertBools(t, bool(sim.Wire(testTXE)), false)

	bridge.Feed(0x42)
	assertBools(t, bool(sim.Wire(testRXF)), false)
	if bridge.Pending() != 1 {
		t.Errorf("got %d pending want 1", bridge.Pending())
	}
}

func TestSimBridgePresentsOnRead(t *testing.T) {
	sim := &SimIO{}
	bridge := NewSimBridge(sim, testWiring())
	parkStrobes(sim)
	bridge.Feed(0x3c, 0x01)

	sim.SetLevel(testRD, Low)
	got, _ := sim.ReadPort(PortF)
	assertBytes(t, got, 0x3c)

	sim.SetLevel(testRD, High)
	if bridge.Pending() != 1 {
		t.Errorf("got %d pending want 1", bridge.Pending())
	}
	if _, driven := sim.Output(Pin{Port: PortF, Bit: 2}); driven {
		t.Error("data pin driven by host")
	}
	got, _ = sim.ReadPort(PortF)
	assertBytes(t, got, 0x00)
}

func TestSimBridgeLatchesOnWriteFallingEdge(t *testing.T) {
	sim := &SimIO{}
	bridge := NewSimBridge(sim, testWiring())
	parkStrobes(sim)

	sim.WritePort(PortF, 0xc3)
	sim.SetPortDirection(PortF, Output)
	sim.SetLevel(testWR, Low)
	sim.SetLevel(testWR, High)

	got := bridge.Drain()
	if len(got) != 1 || got[0] != 0xc3 {
		t.Errorf("got %x want [c3]", got)
	}
}

func TestSimBridgeTxFull(t *testing.T) {
	sim := &SimIO{}
	bridge := NewSimBridge(sim, testWiring())
	bridge.BufferSize = 1
	parkStrobes(sim)

	sim.SetPortDirection(PortF, Output)
	sim.SetLevel(testWR, Low)
	sim.SetLevel(testWR, High)
	assertBools(t, bool(sim.Wire(testTXE)), true)

	bridge.Drain()
	assertBools(t, bool(sim.Wire(testTXE)), false)
}

func TestSimBridgeChipSelect(t *testing.T) {
	cs0 := Pin{Port: PortD, Bit: 6}
	cs1 := Pin{Port: PortD, Bit: 7}
	w := testWiring()
	w.CS = []Pin{cs0, cs1}

	sim := &SimIO{}
	bridge := NewSimBridge(sim, w)
	bridge.Loopback = true
	parkStrobes(sim)

	sim.WritePort(PortF, 0x99)
	sim.SetPortDirection(PortF, Output)
	sim.SetLevel(testWR, Low)
	sim.SetLevel(testWR, High)
	if bridge.Pending() != 0 {
		t.Fatal("bridge latched while deselected")
	}

	for _, cs := range w.CS {
		sim.SetLevel(cs, Low)
		sim.SetDirection(cs, Output)
	}
	sim.SetLevel(testWR, Low)
	sim.SetLevel(testWR, High)
	if bridge.Pending() != 1 {
		t.Fatal("bridge did not latch while selected")
	}
}
