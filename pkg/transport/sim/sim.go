// Package sim provides an in-memory hub for tests and bench setups.
package sim

import (
	"fmt"
	"sync"

	"github.com/robotalks/hub.go/pkg/bus"
)

// Exchange records one transaction seen by the simulator.
type Exchange struct {
	Command bus.Command
	Len     int
}

// Hub simulates the register file of a hub board.
// Registers auto-increment except the ones registered as FIFOs.
type Hub struct {
	regs      []byte
	fifos     map[uint16]*fifo
	exchanges []Exchange
	failAt    int
	failErr   error
	closed    bool
	lock      sync.Mutex
}

type fifo struct {
	written []byte
	pending []byte
}

// New creates a simulated hub with all registers zeroed.
func New() *Hub {
	return &Hub{
		regs:   make([]byte, int(bus.MaxAddr)+1+bus.BounceSize),
		fifos:  make(map[uint16]*fifo),
		failAt: -1,
	}
}

// Exchange implements bus.Transport.
func (h *Hub) Exchange(tx, rx []byte) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.closed {
		return bus.ErrDeviceGone
	}
	cmd, err := bus.DecodeCommand(tx)
	if err != nil {
		return err
	}
	if !cmd.Read && rx != nil {
		return fmt.Errorf("unexpected rx buffer for %v", cmd)
	}
	if cmd.Read && len(rx) != len(tx) {
		return fmt.Errorf("rx size %d mismatches tx size %d", len(rx), len(tx))
	}
	h.exchanges = append(h.exchanges, Exchange{Command: cmd, Len: len(tx)})
	if h.failAt >= 0 {
		if h.failAt == 0 {
			h.failAt = -1
			return h.failErr
		}
		h.failAt--
	}
	payload := tx[bus.CommandSize:]
	if f := h.fifos[cmd.Addr]; f != nil {
		if cmd.Read {
			n := copy(rx[bus.CommandSize:], f.pending)
			clear(rx[bus.CommandSize+n:])
			f.pending = f.pending[n:]
		} else {
			f.written = append(f.written, payload...)
		}
	} else if cmd.Read {
		copy(rx[bus.CommandSize:], h.regs[cmd.Addr:])
	} else {
		copy(h.regs[cmd.Addr:], payload)
	}
	if cmd.Read {
		copy(rx, tx[:bus.CommandSize])
	}
	return nil
}

// Close implements bus.Transport. Later exchanges fail with bus.ErrDeviceGone.
func (h *Hub) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.closed = true
	return nil
}

// Poke sets register contents directly.
func (h *Hub) Poke(addr uint16, data []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()
	copy(h.regs[addr:], data)
}

// Peek gets register contents directly.
func (h *Hub) Peek(addr uint16, n int) []byte {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]byte(nil), h.regs[int(addr):int(addr)+n]...)
}

// AddFIFO makes addr a non incrementing FIFO register.
func (h *Hub) AddFIFO(addr uint16) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.fifos[addr] == nil {
		h.fifos[addr] = &fifo{}
	}
}

// FeedFIFO queues data to be read from a FIFO register.
func (h *Hub) FeedFIFO(addr uint16, data []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if f := h.fifos[addr]; f != nil {
		f.pending = append(f.pending, data...)
	}
}

// PendingFIFO returns the number of bytes not yet read from a FIFO.
func (h *Hub) PendingFIFO(addr uint16) int {
	h.lock.Lock()
	defer h.lock.Unlock()
	if f := h.fifos[addr]; f != nil {
		return len(f.pending)
	}
	return 0
}

// DrainFIFO returns and clears the data written to a FIFO register.
func (h *Hub) DrainFIFO(addr uint16) []byte {
	h.lock.Lock()
	defer h.lock.Unlock()
	f := h.fifos[addr]
	if f == nil {
		return nil
	}
	data := f.written
	f.written = nil
	return data
}

// FailAfter makes the exchange after n more successful ones fail with err.
func (h *Hub) FailAfter(n int, err error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.failAt, h.failErr = n, err
}

// Exchanges returns the recorded transactions.
func (h *Hub) Exchanges() []Exchange {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]Exchange(nil), h.exchanges...)
}

// ResetExchanges clears the recorded transactions.
func (h *Hub) ResetExchanges() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.exchanges = nil
}
