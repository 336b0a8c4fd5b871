package drivers

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
)

var (
	testRD  = Pin{Port: PortD, Bit: 2}
	testWR  = Pin{Port: PortD, Bit: 3}
	testRXF = Pin{Port: PortE, Bit: 2}
	testTXE = Pin{Port: PortB, Bit: 5}
)

func TestSimIOSetup(t *testing.T) {
	sim := SimIO{}

	assertBools(t, sim.IsReady(), false)

	sim.Setup(context.Background())
	assertBools(t, sim.IsReady(), true)

	sim.Close()
	assertBools(t, sim.IsReady(), false)
}

func TestSimIOOutputReadsBack(t *testing.T) {
	sim := &SimIO{}

	sim.SetLevel(testRD, High)
	sim.SetDirection(testRD, Output)
	got, _ := sim.GetLevel(testRD)
	assertBools(t, bool(got), true)

	sim.SetLevel(testRD, Low)
	got, _ = sim.GetLevel(testRD)
	assertBools(t, bool(got), false)

	level, driven := sim.Output(testRD)
	assertBools(t, bool(level), false)
	assertBools(t, driven, true)
}

func TestSimIOInputLevels(t *testing.T) {
	sim := &SimIO{}

	got, _ := sim.GetLevel(testRXF)
	assertBools(t, bool(got), false)

	sim.SetPullUp(testRXF, true)
	got, _ = sim.GetLevel(testRXF)
	assertBools(t, bool(got), true)

	sim.Drive(testRXF, Low)
	got, _ = sim.GetLevel(testRXF)
	assertBools(t, bool(got), false)

	sim.Release(testRXF)
	got, _ = sim.GetLevel(testRXF)
	assertBools(t, bool(got), true)

	_, driven := sim.Output(testRXF)
	assertBools(t, driven, false)
}

func TestSimIOPortAccess(t *testing.T) {
	sim := &SimIO{}

	sim.WritePort(PortF, 0xa5)
	sim.SetPortDirection(PortF, Output)
	got, _ := sim.ReadPort(PortF)
	assertBytes(t, got, 0xa5)

	sim.SetPortDirection(PortF, Input)
	for bit := uint8(0); bit < 8; bit++ {
		sim.Drive(Pin{Port: PortF, Bit: bit}, Level(bit%2 == 0))
	}
	got, _ = sim.ReadPort(PortF)
	assertBytes(t, got, 0x55)

	if _, err := sim.ReadPort(Port(12)); err == nil {
		t.Error("expected error for invalid port")
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func TestSimIOInvalidAccessErrors(t *testing.T) {
	sim := &SimIO{}
	bad := Pin{Port: Port(9), Bit: 1}

	errs := []error{
		sim.SetDirection(bad, Output),
		sim.SetLevel(bad, High),
		sim.SetPullUp(bad, true),
		sim.SetPortDirection(Port(9), Output),
		sim.WritePort(Port(9), 0xff),
	}
	_, err := sim.GetLevel(bad)
	errs = append(errs, err)
	_, err = sim.ReadPort(Port(9))
	errs = append(errs, err)

	for i, err := range errs {
		if err == nil {
			t.Errorf("access %d: got nil error", i)
			continue
		}
		if _, ok := err.(stackTracer); !ok {
			t.Errorf("access %d: error %q carries no stack trace", i, err)
		}
	}
}

func TestSimIOContention(t *testing.T) {
	sim := &SimIO{}

	sim.Drive(testTXE, Low)
	if sim.Contentions() != 0 {
		t.Fatalf("contention reported on input pin")
	}

	sim.SetDirection(testTXE, Output)
	if got := sim.Contentions(); got != 1 {
		t.Errorf("got %d contentions want 1", got)
	}
}

func TestSimIOTrace(t *testing.T) {
	sim := &SimIO{}

	sim.SetLevel(testWR, High)
	sim.Record()
	sim.SetDirection(testWR, Output)
	sim.SetLevel(testWR, Low)
	sim.GetLevel(testWR)

	trace := sim.Trace()
	if len(trace) != 3 {
		t.Fatalf("got %d events want 3", len(trace))
	}
	want := []string{"dir PD3=1", "level PD3=0", "read PD3=0"}
	for i, ev := range trace {
		if ev.String() != want[i] {
			t.Errorf("event %d: got %q want %q", i, ev, want[i])
		}
		if i > 0 && ev.At.Before(trace[i-1].At) {
			t.Errorf("event %d recorded before event %d", i, i-1)
		}
	}
}

func TestSimIOMonitorStateChanges(t *testing.T) {
	sim := &SimIO{}
	buf := &bytes.Buffer{}
	sim.MonitorStateChanges(buf)

	sim.SetLevel(testWR, High)
	sim.SetLevel(testWR, High)

	want := "[pin PD3] level changed to high\n"
	if buf.String() != want {
		t.Errorf("got %q want %q", buf.String(), want)
	}
}

type pinRecorder struct {
	pins []Pin
}

func (pr *pinRecorder) PinChanged(sim *SimIO, pin Pin) {
	pr.pins = append(pr.pins, pin)
}

func TestSimIOListeners(t *testing.T) {
	sim := &SimIO{}
	rec := &pinRecorder{}
	sim.Attach(rec)

	sim.WritePort(PortF, 0x81)
	sim.SetLevel(testRD, High)
	sim.Drive(testRXF, Low)

	want := []Pin{{Port: PortF, Bit: 0}, {Port: PortF, Bit: 7}, testRD}
	if len(rec.pins) != len(want) {
		t.Fatalf("got %v want %v", rec.pins, want)
	}
	for i := range want {
		if rec.pins[i] != want[i] {
			t.Errorf("got %v want %v", rec.pins, want)
		}
	}
}
