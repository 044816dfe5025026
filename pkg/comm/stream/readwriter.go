// Package stream frames packets over byte streams (serial ports, sockets).
package stream

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/robotalks/hub.go/pkg/comm"
)

// DefaultMaxSize is the default limit of a single packet.
const DefaultMaxSize = 64 * 1024

// ReadWriter implements PacketReadWriter.
// Each packet is prefixed by 4-byte (little-endian) indicate the length.
type ReadWriter struct {
	io.ReadWriter
	// MaxSize limits the size of packets in both directions.
	MaxSize int

	head      [4]byte
	writeLock sync.Mutex
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s, MaxSize: DefaultMaxSize}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	return p.ReadPacketInto(nil)
}

// ReadPacketInto reads a packet reusing the capacity of buf.
func (p *ReadWriter) ReadPacketInto(buf []byte) ([]byte, error) {
	if _, err := io.ReadFull(p, p.head[:]); err != nil {
		return nil, err
	}
	size := int(binary.LittleEndian.Uint32(p.head[:]))
	if p.MaxSize > 0 && size > p.MaxSize {
		return nil, comm.ErrPacketTooLarge
	}
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]
	_, err := io.ReadFull(p, buf)
	return buf, err
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if p.MaxSize > 0 && len(pkt) > p.MaxSize {
		return comm.ErrPacketTooLarge
	}
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], uint32(len(pkt)))
	if _, err := p.Write(head[:]); err != nil {
		return err
	}
	_, err := p.Write(pkt)
	return err
}

// Close closes the underlying stream if it's closable.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
