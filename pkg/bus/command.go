package bus

import "fmt"

// Command word layout.
const (
	// CommandSize is the size of the encoded command word.
	CommandSize = 2
	// MaxAddr is the highest addressable register.
	MaxAddr uint16 = 0x7fff

	cmdReadBit = 0x80
)

// Command is the header of a transaction.
type Command struct {
	// Read is the direction flag, false for write.
	Read bool
	// Addr is the 15-bit register address.
	Addr uint16
}

// ReadCommand creates a read command.
func ReadCommand(addr uint16) Command {
	return Command{Read: true, Addr: addr}
}

// WriteCommand creates a write command.
func WriteCommand(addr uint16) Command {
	return Command{Addr: addr}
}

// IsValid checks the address fits in 15 bits.
func (c Command) IsValid() bool {
	return c.Addr <= MaxAddr
}

// PutBytes encodes the command into the first CommandSize bytes of b.
func (c Command) PutBytes(b []byte) error {
	if !c.IsValid() {
		return ErrInvalidAddress
	}
	if len(b) < CommandSize {
		return ErrInvalidLength
	}
	b[0] = byte(c.Addr >> 8)
	b[1] = byte(c.Addr)
	if c.Read {
		b[0] |= cmdReadBit
	}
	return nil
}

// Encode returns the encoded command word.
func (c Command) Encode() (b [CommandSize]byte, err error) {
	err = c.PutBytes(b[:])
	return
}

// DecodeCommand parses a command word from the first CommandSize bytes of b.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) < CommandSize {
		return Command{}, ErrInvalidLength
	}
	return Command{
		Read: b[0]&cmdReadBit != 0,
		Addr: uint16(b[0]&^cmdReadBit)<<8 | uint16(b[1]),
	}, nil
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if c.Read {
		return fmt.Sprintf("RD 0x%04x", c.Addr)
	}
	return fmt.Sprintf("WR 0x%04x", c.Addr)
}
