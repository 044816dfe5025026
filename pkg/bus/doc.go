// Package bus provides the register access core of the hub board.
package bus

// The hub exposes all of its subsystems (LED ring, GPIO, UART bridge,
// MCU sensors) through one 15-bit register address space reached over a
// synchronous serial transport (SPI). Every transaction on the wire is
//
//	+--------+--------+---------------------------+
//	| cmd hi | cmd lo | payload (0..BounceSize-2) |
//	+--------+--------+---------------------------+
//
// where the command word carries the direction in bit 15 (1 = read) and
// the register address in bits 14..0, most significant byte first.
//
// A Device owns the transport and two staging buffers of BounceSize bytes.
// Requests longer than one buffer are split into several transactions,
// each addressed at the running offset, so the target registers must
// auto-increment. Only one request is on the wire at a time.
//
// Producer: host (this package)
// Consumer: hub FPGA
