// Package gpio drives the general-purpose pins of the hub.
package gpio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/robotalks/hub.go/pkg/bus"
)

// PinCount is the number of pins in the bank.
const PinCount = 16

// Register offsets in the gpio segment, each a little-endian pin bitmask.
const (
	RegDirection uint16 = 0x00
	RegValue     uint16 = 0x02
	RegFunction  uint16 = 0x04
)

// Mode is the direction of a pin.
type Mode uint8

// Pin modes.
const (
	Input Mode = iota
	Output
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == Output {
		return "out"
	}
	return "in"
}

// Function selects what drives a pin.
type Function uint8

// Pin functions.
const (
	Digital Function = iota
	PWM
)

// ErrInvalidPin indicates a pin number out of range.
var ErrInvalidPin = errors.New("invalid gpio pin")

// Bank is the set of pins. Updates of one pin are read-modify-write
// on a shared register, so they are serialized per bank.
type Bank struct {
	w    bus.Accessor
	lock sync.Mutex
}

// New creates a Bank over the gpio segment window.
func New(w bus.Accessor) *Bank {
	return &Bank{w: w}
}

// SetMode sets the direction of a pin.
func (b *Bank) SetMode(pin int, mode Mode) error {
	return b.update(RegDirection, pin, mode == Output)
}

// SetFunction sets the function of a pin.
func (b *Bank) SetFunction(pin int, fn Function) error {
	return b.update(RegFunction, pin, fn == PWM)
}

// Set sets the output level of a pin.
func (b *Bank) Set(pin int, high bool) error {
	return b.update(RegValue, pin, high)
}

// Get reads the level of a pin.
func (b *Bank) Get(pin int) (bool, error) {
	mask, err := pinMask(pin)
	if err != nil {
		return false, err
	}
	values, err := b.Values()
	return values&mask != 0, err
}

// Values reads the levels of all pins.
func (b *Bank) Values() (uint16, error) {
	return b.read(RegValue)
}

// Modes reads the direction bitmask, 1 for output.
func (b *Bank) Modes() (uint16, error) {
	return b.read(RegDirection)
}

func (b *Bank) update(reg uint16, pin int, set bool) error {
	mask, err := pinMask(pin)
	if err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	val, err := b.read(reg)
	if err != nil {
		return err
	}
	if set {
		val |= mask
	} else {
		val &^= mask
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], val)
	return b.w.Write(reg, buf[:])
}

func (b *Bank) read(reg uint16) (uint16, error) {
	var buf [2]byte
	if err := b.w.ReadInto(reg, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func pinMask(pin int) (uint16, error) {
	if pin < 0 || pin >= PinCount {
		return 0, fmt.Errorf("pin %d: %w", pin, ErrInvalidPin)
	}
	return 1 << uint(pin), nil
}
