// Package uart is the UART bridge of the hub.
package uart

import (
	"encoding/binary"
	"sync"

	"github.com/robotalks/hub.go/pkg/bus"
)

// Register offsets in the uart segment.
const (
	RegStatus  uint16 = 0x00
	RegRxCount uint16 = 0x02
	RegData    uint16 = 0x10
)

const statusTxBusy = 1 << 0

// Status is the state of the UART.
type Status struct {
	TxBusy  bool
	RxCount int
}

// Port implements io.ReadWriter on the data FIFO.
// The FIFO register doesn't auto-increment, so a transfer to it never
// spans more than one transaction.
type Port struct {
	w    bus.Accessor
	lock sync.Mutex
}

// New creates a Port over the uart segment window.
func New(w bus.Accessor) *Port {
	return &Port{w: w}
}

// Status reads the status registers.
func (p *Port) Status() (Status, error) {
	var buf [4]byte
	if err := p.w.ReadInto(RegStatus, buf[:]); err != nil {
		return Status{}, err
	}
	return Status{
		TxBusy:  binary.LittleEndian.Uint16(buf[0:])&statusTxBusy != 0,
		RxCount: int(binary.LittleEndian.Uint16(buf[2:])),
	}, nil
}

// Write implements io.Writer.
func (p *Port) Write(data []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	written := 0
	for written < len(data) {
		n := len(data) - written
		if n > bus.ChunkSize {
			n = bus.ChunkSize
		}
		if err := p.w.Write(RegData, data[written:written+n]); err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// Read implements io.Reader. It doesn't block: 0 is returned when
// nothing is received.
func (p *Port) Read(buf []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	st, err := p.Status()
	if err != nil {
		return 0, err
	}
	n := len(buf)
	if n > st.RxCount {
		n = st.RxCount
	}
	if n > bus.ChunkSize {
		n = bus.ChunkSize
	}
	if n == 0 {
		return 0, nil
	}
	if err := p.w.ReadInto(RegData, buf[:n]); err != nil {
		return 0, err
	}
	return n, nil
}
