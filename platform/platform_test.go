package platform

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/hubertat/fifolink/drivers"
)

var allWirings = []Wiring{SensTermWiring, DeRFNodeWiring, DeRFNodeRev01Wiring}

func TestWiringsValidate(t *testing.T) {
	for _, w := range allWirings {
		t.Run(w.Name, func(t *testing.T) {
			if err := w.Validate(); err != nil {
				t.Errorf("Validate returned err: %v", err)
			}
		})
	}
}

func TestWiringRejectsBothTables(t *testing.T) {
	w := DeRFNodeWiring
	w.Shared = SensTermWiring.Shared
	if err := w.Validate(); err == nil {
		t.Error("expected error with two bus tables")
	}

	w = DeRFNodeWiring
	w.Split = nil
	if err := w.Validate(); err == nil {
		t.Error("expected error without bus table")
	}
}

func TestWiringRejectsReadyLineOnBus(t *testing.T) {
	w := DeRFNodeWiring
	w.RXF = w.Split.Data[4]
	if err := w.Validate(); err == nil {
		t.Error("expected error for RXF on a data line")
	}
}

func TestDeRFNodeDataOrder(t *testing.T) {
	want := []string{"PB0", "PF2", "PD5", "PG2", "PE6", "PB4", "PE7", "PB6"}
	var got []string
	for _, p := range DeRFNodeWiring.Split.Data {
		got = append(got, p.String())
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Error(diff)
	}
}

func TestRevisionStrobes(t *testing.T) {
	if DeRFNodeWiring.Split.RD.String() != "PD2" || DeRFNodeWiring.Split.WR.String() != "PD3" {
		t.Errorf("default strobes: %s/%s", DeRFNodeWiring.Split.RD, DeRFNodeWiring.Split.WR)
	}
	if DeRFNodeRev01Wiring.Split.RD.String() != "PD4" || DeRFNodeRev01Wiring.Split.WR.String() != "PG1" {
		t.Errorf("rev01 strobes: %s/%s", DeRFNodeRev01Wiring.Split.RD, DeRFNodeRev01Wiring.Split.WR)
	}
}

func TestSharedBridgeWiring(t *testing.T) {
	bw := SensTermWiring.BridgeWiring()

	for bit, p := range bw.Data {
		if diff := deep.Equal(p, drivers.Pin{Port: drivers.PortF, Bit: uint8(bit)}); diff != nil {
			t.Errorf("D%d: %v", bit, diff)
		}
	}
	if len(bw.CS) != 2 || bw.CS[0] != SensTermWiring.Shared.CS0 || bw.CS[1] != SensTermWiring.Shared.CS1 {
		t.Errorf("chip select lines: %v", bw.CS)
	}
	if bw.Select != 0 {
		t.Errorf("got select %d want 0", bw.Select)
	}
}

func TestPlatformString(t *testing.T) {
	if SensTermBoard.String() != "sensor terminal board" || DeRFNode.String() != "deRFnode" {
		t.Error("unexpected platform names")
	}
	if Platform(7).String() != "platform(7)" {
		t.Errorf("got %s", Platform(7))
	}
}
