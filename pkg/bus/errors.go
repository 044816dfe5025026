package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress indicates a register address outside the 15-bit space.
	ErrInvalidAddress = errors.New("invalid register address")
	// ErrInvalidLength indicates a transfer length the caller context doesn't allow.
	ErrInvalidLength = errors.New("invalid transfer length")
	// ErrTransportFailure indicates the underlying exchange failed.
	// Errors returned from a failed exchange are *TransportError and match
	// this value with errors.Is.
	ErrTransportFailure = errors.New("transport failure")
	// ErrDeviceGone indicates the device is no longer backed by a live transport.
	ErrDeviceGone = errors.New("device gone")
)

// Op is the direction of a request.
type Op byte

// Request directions.
const (
	OpWrite Op = iota
	OpRead
)

// String implements fmt.Stringer.
func (o Op) String() string {
	if o == OpRead {
		return "read"
	}
	return "write"
}

// TransportError wraps an error from Transport.Exchange with the position
// of the failed transaction inside the logical request.
// Transactions before Chunk may already have been applied to the device.
type TransportError struct {
	Op     Op
	Addr   uint16
	Chunk  int
	Chunks int
	Err    error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s 0x%04x: transaction %d/%d: %v", e.Op, e.Addr, e.Chunk+1, e.Chunks, e.Err)
}

// Unwrap returns the transport driver error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes TransportError match ErrTransportFailure.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransportFailure
}
