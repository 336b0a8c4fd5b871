package fifolink

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hubertat/fifolink/bus"
	"github.com/hubertat/fifolink/drivers"
	"github.com/hubertat/fifolink/platform"
)

// TransmitMode selects whether PutChar writes to the bridge.
type TransmitMode int

const (
	TransmitEnabled TransmitMode = iota
	// TransmitDisabled accepts characters without touching the bus.
	TransmitDisabled
)

func (tm TransmitMode) String() string {
	if tm == TransmitDisabled {
		return "disabled"
	}
	return "enabled"
}

func (tm TransmitMode) MarshalText() ([]byte, error) {
	return []byte(tm.String()), nil
}

func (tm *TransmitMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "enabled":
		*tm = TransmitEnabled
	case "disabled":
		*tm = TransmitDisabled
	default:
		return errors.Errorf("unknown transmit mode: %q", text)
	}
	return nil
}

// Stream is a character stream on top of a ByteBus. RXF low means the bridge
// holds received data, TXE low means it can accept a byte. Zero timeouts
// block until the line goes active or the context ends.
type Stream struct {
	Bus  bus.ByteBus
	Ctrl drivers.PinController
	RXF  drivers.Pin
	TXE  drivers.Pin

	Transmit     TransmitMode
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PollInterval is the pause between ready line polls; zero spins.
	PollInterval time.Duration

	Stats *Stats

	// rxMu spans the RXF check and the read strobe, txMu the TXE check and
	// the write strobe.
	rxMu sync.Mutex
	txMu sync.Mutex
}

func NewStream(b bus.ByteBus, ctrl drivers.PinController, wiring platform.Wiring) *Stream {
	return &Stream{
		Bus:   b,
		Ctrl:  ctrl,
		RXF:   wiring.RXF,
		TXE:   wiring.TXE,
		Stats: &Stats{},
	}
}

func (s *Stream) active(pin drivers.Pin) (bool, error) {
	level, err := s.Ctrl.GetLevel(pin)
	if err != nil {
		return false, errors.Wrapf(err, "failed polling %s", pin)
	}
	return level == drivers.Low, nil
}

func (s *Stream) wait(ctx context.Context, pin drivers.Pin, timeout time.Duration, timeoutErr error) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		ready, err := s.active(pin)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return timeoutErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if s.PollInterval > 0 {
			time.Sleep(s.PollInterval)
		} else {
			runtime.Gosched()
		}
	}
}

// KeyPressed reports whether the bridge holds a received byte. It only
// samples RXF.
func (s *Stream) KeyPressed() (bool, error) {
	return s.active(s.RXF)
}

// GetChar waits for RXF and reads one byte.
func (s *Stream) GetChar(ctx context.Context) (byte, error) {
	s.rxMu.Lock()
	defer s.rxMu.Unlock()
	return s.getChar(ctx)
}

func (s *Stream) getChar(ctx context.Context) (byte, error) {
	err := s.wait(ctx, s.RXF, s.ReadTimeout, ErrNoData)
	if err == ErrNoData {
		s.Stats.rxTimeouts.Add(1)
	}
	if err != nil {
		return 0, err
	}

	c, err := s.Bus.ReadByte()
	if err != nil {
		return 0, err
	}
	s.Stats.rxBytes.Add(1)
	return c, nil
}

// PutChar waits for TXE and writes one byte, returning it.
func (s *Stream) PutChar(ctx context.Context, c byte) (byte, error) {
	if s.Transmit == TransmitDisabled {
		s.Stats.txDiscarded.Add(1)
		return c, nil
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	err := s.wait(ctx, s.TXE, s.WriteTimeout, ErrTxFull)
	if err == ErrTxFull {
		s.Stats.txTimeouts.Add(1)
	}
	if err != nil {
		return 0, err
	}

	if err = s.Bus.WriteByte(c); err != nil {
		return 0, err
	}
	s.Stats.txBytes.Add(1)
	return c, nil
}

func (s *Stream) ReadByte() (byte, error) {
	return s.GetChar(context.Background())
}

func (s *Stream) WriteByte(c byte) error {
	_, err := s.PutChar(context.Background(), c)
	return err
}

// Read blocks for the first byte, then returns whatever else is already
// waiting in the bridge.
func (s *Stream) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return
	}

	s.rxMu.Lock()
	defer s.rxMu.Unlock()

	p[0], err = s.getChar(context.Background())
	if err != nil {
		return
	}
	n = 1

	rest, err := s.drain(p[1:])
	n += rest
	return
}

func (s *Stream) drain(p []byte) (n int, err error) {
	for n < len(p) {
		var pressed bool
		pressed, err = s.KeyPressed()
		if err != nil || !pressed {
			return
		}
		p[n], err = s.Bus.ReadByte()
		if err != nil {
			return
		}
		s.Stats.rxBytes.Add(1)
		n++
	}
	return
}

// Drain returns up to max bytes already waiting in the bridge without
// blocking.
func (s *Stream) Drain(max int) ([]byte, error) {
	s.rxMu.Lock()
	defer s.rxMu.Unlock()

	buf := make([]byte, max)
	n, err := s.drain(buf)
	return buf[:n], err
}

func (s *Stream) WriteContext(ctx context.Context, p []byte) (n int, err error) {
	for _, c := range p {
		if _, err = s.PutChar(ctx, c); err != nil {
			return
		}
		n++
	}
	return
}

func (s *Stream) Write(p []byte) (int, error) {
	return s.WriteContext(context.Background(), p)
}

func (s *Stream) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}
