// Package comm defines packet links used to reach a hub remotely.
package comm

import "errors"

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// ErrPacketTooLarge indicates a packet exceeds the size a link accepts.
var ErrPacketTooLarge = errors.New("packet too large")
