package drivers

import (
	"sync"
)

const defaultBridgeBufferSize = 256

// BridgeWiring tells a SimBridge which host pins it is connected to.
// CS lists the chip-select decode lines (bit 0 first); the bridge only
// responds to strobes while they carry the Select code. Undriven strobe and
// select lines read as high.
type BridgeWiring struct {
	Data   [8]Pin
	RD     Pin
	WR     Pin
	RXF    Pin
	TXE    Pin
	CS     []Pin
	Select uint8
}

// SimBridge emulates an FT245 style FIFO bridge chip on a SimIO: it presents
// queued bytes on RD, latches bytes on the falling edge of WR and signals
// RXF/TXE (both active low).
type SimBridge struct {
	// Loopback feeds every byte the host writes back into the receive queue.
	Loopback bool
	// BufferSize bounds both queues; zero means 256.
	BufferSize int

	wiring BridgeWiring
	sim    *SimIO

	mu         sync.Mutex
	rx         []byte
	tx         []byte
	rd, wr     Level
	presenting bool
}

// NewSimBridge connects a bridge to sim and drives its ready lines.
func NewSimBridge(sim *SimIO, wiring BridgeWiring) *SimBridge {
	b := &SimBridge{wiring: wiring, sim: sim}
	b.rd = b.line(wiring.RD)
	b.wr = b.line(wiring.WR)
	sim.Attach(b)

	b.mu.Lock()
	b.updateFlags()
	b.mu.Unlock()
	return b
}

func (b *SimBridge) size() int {
	if b.BufferSize > 0 {
		return b.BufferSize
	}
	return defaultBridgeBufferSize
}

func (b *SimBridge) line(pin Pin) Level {
	level, driven := b.sim.Output(pin)
	if !driven {
		return High
	}
	return level
}

func (b *SimBridge) selected() bool {
	var code uint8
	for i, pin := range b.wiring.CS {
		if b.line(pin) {
			code |= 1 << i
		}
	}
	return code == b.wiring.Select
}

func (b *SimBridge) updateFlags() {
	b.sim.Drive(b.wiring.RXF, Level(len(b.rx) == 0))
	b.sim.Drive(b.wiring.TXE, Level(len(b.tx) >= b.size()))
}

// Feed queues bytes as if received from the usb host. Bytes beyond the
// buffer size are dropped; the number accepted is returned.
func (b *SimBridge) Feed(data ...byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.size() - len(b.rx)
	if n > len(data) {
		n = len(data)
	}
	if n < 0 {
		n = 0
	}
	b.rx = append(b.rx, data[:n]...)
	b.updateFlags()
	return n
}

// Drain returns and clears the bytes written by the host.
func (b *SimBridge) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.tx
	b.tx = nil
	b.updateFlags()
	return out
}

// Pending returns the number of bytes waiting to be read by the host.
func (b *SimBridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rx)
}

func (b *SimBridge) PinChanged(sim *SimIO, pin Pin) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch pin {
	case b.wiring.RD:
		level := b.line(pin)
		prev := b.rd
		b.rd = level
		if prev && !level {
			b.readStart()
		} else if !prev && level {
			b.readEnd()
		}
	case b.wiring.WR:
		level := b.line(pin)
		prev := b.wr
		b.wr = level
		if prev && !level {
			b.latch()
		}
	}
}

func (b *SimBridge) readStart() {
	if !b.selected() || len(b.rx) == 0 {
		return
	}
	value := b.rx[0]
	for i, pin := range b.wiring.Data {
		b.sim.Drive(pin, Level(value&(1<<i) != 0))
	}
	b.presenting = true
}

func (b *SimBridge) readEnd() {
	if !b.presenting {
		return
	}
	for _, pin := range b.wiring.Data {
		b.sim.Release(pin)
	}
	b.presenting = false
	b.rx = b.rx[1:]
	b.updateFlags()
}

func (b *SimBridge) latch() {
	if !b.selected() {
		return
	}
	var value uint8
	for i, pin := range b.wiring.Data {
		if b.sim.Wire(pin) {
			value |= 1 << i
		}
	}
	if b.Loopback {
		if len(b.rx) < b.size() {
			b.rx = append(b.rx, value)
		}
	} else if len(b.tx) < b.size() {
		b.tx = append(b.tx, value)
	}
	b.updateFlags()
}
