package fifolink

import "github.com/pkg/errors"

var (
	// ErrNoData is returned when no byte arrived before the read timeout.
	ErrNoData = errors.New("no data received")
	// ErrTxFull is returned when the bridge did not accept a byte before the
	// write timeout.
	ErrTxFull = errors.New("transmit buffer full")
	// ErrNotInitialized is returned by operations needing a successful Init.
	ErrNotInitialized = errors.New("fifo link not initialized")
	// ErrNoController is returned by Init when no pin controller is configured.
	ErrNoController = errors.New("no pin controller configured")
)
