// Package raw exposes the whole register space to diagnostic clients,
// locally in the layout of the board's raw ioctl surface and remotely
// through a request/reply bridge.
//
// Raw access isn't restricted to any segment: a client can change the
// state of every subsystem driver sharing the device.
package raw

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/robotalks/hub.go/pkg/bus"
)

// Op identifies a raw operation.
type Op uint32

// Raw operations, numbered as the ioctl requests of the board driver.
const (
	OpWrite Op = 1200 // WR_VALUE
	OpRead  Op = 1201 // RD_VALUE
)

// String implements fmt.Stringer.
func (o Op) String() string {
	switch o {
	case OpWrite:
		return "WR_VALUE"
	case OpRead:
		return "RD_VALUE"
	}
	return fmt.Sprintf("op(%d)", uint32(o))
}

const (
	// HeaderSize is the size of the address and length fields.
	HeaderSize = 8
	// RecordSize is the size of the record buffer of the ioctl surface.
	RecordSize = 12000 * 4
	// MaxPayload is the largest payload a record carries.
	MaxPayload = RecordSize - HeaderSize
)

// ErrUnknownOp indicates an operation other than OpWrite or OpRead.
var ErrUnknownOp = errors.New("unknown raw operation")

// Record is one raw request.
// On the wire it is {address int32, length int32, payload} in little-endian,
// the Op travels separately.
type Record struct {
	Op      Op
	Address int32
	Length  int32
	Payload []byte
}

// WriteRecord creates a record writing data at addr.
func WriteRecord(addr uint16, data []byte) *Record {
	return &Record{Op: OpWrite, Address: int32(addr), Length: int32(len(data)), Payload: data}
}

// ReadRecord creates a record reading n bytes at addr.
func ReadRecord(addr uint16, n int) *Record {
	return &Record{Op: OpRead, Address: int32(addr), Length: int32(n)}
}

// Validate checks address and length of the record.
func (r *Record) Validate() error {
	if r.Address < 0 || r.Address > int32(bus.MaxAddr) {
		return fmt.Errorf("address %d: %w", r.Address, bus.ErrInvalidAddress)
	}
	if r.Length < 0 || r.Length > MaxPayload {
		return fmt.Errorf("length %d: %w", r.Length, bus.ErrInvalidLength)
	}
	if r.Op == OpWrite && len(r.Payload) < int(r.Length) {
		return fmt.Errorf("payload %d shorter than length %d: %w", len(r.Payload), r.Length, bus.ErrInvalidLength)
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
// Only Length bytes of payload are encoded, nothing for reads.
func (r *Record) MarshalBinary() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	n := 0
	if r.Op == OpWrite {
		n = int(r.Length)
	}
	data := make([]byte, HeaderSize+n)
	binary.LittleEndian.PutUint32(data[0:], uint32(r.Address))
	binary.LittleEndian.PutUint32(data[4:], uint32(r.Length))
	copy(data[HeaderSize:], r.Payload[:n])
	return data, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// Op must be set before the call. Payload references data.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("record of %d bytes: %w", len(data), bus.ErrInvalidLength)
	}
	r.Address = int32(binary.LittleEndian.Uint32(data[0:]))
	r.Length = int32(binary.LittleEndian.Uint32(data[4:]))
	r.Payload = data[HeaderSize:]
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Op == OpWrite {
		r.Payload = r.Payload[:r.Length]
	}
	return nil
}

// Execute runs the record against acc. For OpRead, Payload is replaced
// with the bytes read (reusing its capacity).
func Execute(acc bus.Accessor, r *Record) error {
	if r.Op != OpWrite && r.Op != OpRead {
		return fmt.Errorf("%v: %w", r.Op, ErrUnknownOp)
	}
	if err := r.Validate(); err != nil {
		return err
	}
	addr := uint16(r.Address)
	if r.Op == OpWrite {
		return acc.Write(addr, r.Payload[:r.Length])
	}
	buf := r.Payload
	if cap(buf) < int(r.Length) {
		buf = make([]byte, r.Length)
	}
	buf = buf[:r.Length]
	if err := acc.ReadInto(addr, buf); err != nil {
		return err
	}
	r.Payload = buf
	return nil
}
