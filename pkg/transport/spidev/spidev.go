// Package spidev is the transport over a Linux spidev node.
package spidev

import (
	"errors"
	"fmt"
)

// Defaults of the SPI link to the hub.
const (
	DefaultPath  = "/dev/spidev0.0"
	DefaultMode  = 3
	DefaultSpeed = 15000000
	DefaultBits  = 8
)

// ErrUnsupported is returned by Open on platforms without spidev.
var ErrUnsupported = errors.New("spidev is only available on linux")

// Options configures the SPI link.
type Options struct {
	Path  string
	Mode  uint8
	Speed uint32
	Bits  uint8
}

// DefaultOptions returns the Options the hub expects.
func DefaultOptions() Options {
	return Options{Path: DefaultPath, Mode: DefaultMode, Speed: DefaultSpeed, Bits: DefaultBits}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Path == "" {
		return errors.New("spidev: missing device path")
	}
	if o.Mode > 3 {
		return fmt.Errorf("spidev: invalid mode %d", o.Mode)
	}
	if o.Speed == 0 {
		return errors.New("spidev: speed must be positive")
	}
	if o.Bits == 0 || o.Bits > 32 {
		return fmt.Errorf("spidev: invalid bits per word %d", o.Bits)
	}
	return nil
}

// String implements fmt.Stringer.
func (o Options) String() string {
	return fmt.Sprintf("%s mode=%d speed=%dHz bits=%d", o.Path, o.Mode, o.Speed, o.Bits)
}

// iocTransfer mirrors struct spi_ioc_transfer.
type iocTransfer struct {
	TxBuf       uint64
	RxBuf       uint64
	Len         uint32
	SpeedHz     uint32
	DelayUsecs  uint16
	BitsPerWord uint8
	CSChange    uint8
	TxNbits     uint8
	RxNbits     uint8
	WordDelay   uint8
	Pad         uint8
}

const (
	iocWrMode        uint = 0x40016b01
	iocWrBitsPerWord uint = 0x40016b03
	iocWrMaxSpeedHz  uint = 0x40046b04
	iocMessage1      uint = 0x40206b00
)
