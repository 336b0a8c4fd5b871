//go:build sensterm

package platform

import (
	"context"
	"testing"

	"github.com/hubertat/fifolink/bus"
	"github.com/hubertat/fifolink/drivers"
)

func TestSelectedIsSensTerm(t *testing.T) {
	if Selected != SensTermBoard {
		t.Errorf("got %s want %s", Selected, SensTermBoard)
	}
}

func TestNewBusLoopback(t *testing.T) {
	sim := &drivers.SimIO{}
	sim.Setup(context.Background())
	bridge := drivers.NewSimBridge(sim, SelectedWiring().BridgeWiring())
	bridge.Loopback = true

	b, err := NewBus(sim)
	if err != nil {
		t.Fatalf("NewBus returned err: %v", err)
	}
	if _, ok := b.(*bus.SharedBus); !ok {
		t.Fatalf("got %T want *bus.SharedBus", b)
	}
	b.Reset()

	for _, v := range []byte{0x00, 0x5a, 0xff} {
		b.WriteByte(v)
		got, err := b.ReadByte()
		if err != nil || got != v {
			t.Errorf("got %#02x (%v) want %#02x", got, err, v)
		}
	}
}
