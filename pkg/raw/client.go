package raw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/comm"
)

// DefaultExpiration is the default time waiting for a reply.
const DefaultExpiration = 2 * time.Second

// ErrLinkClosed indicates the packet link to the server is closed.
// It matches bus.ErrDeviceGone.
var ErrLinkClosed = fmt.Errorf("raw link closed: %w", bus.ErrDeviceGone)

// Client is a bus.Accessor reaching a remote Server over a packet link.
// Run must be running to receive replies.
type Client struct {
	Expiration time.Duration

	rw      comm.PacketReadWriter
	seq     uint32
	pending map[uint32]chan *Reply
	closed  bool
	lock    sync.Mutex
}

// NewClient creates a Client.
func NewClient(rw comm.PacketReadWriter) *Client {
	return &Client{
		Expiration: DefaultExpiration,
		rw:         rw,
		pending:    make(map[uint32]chan *Reply),
	}
}

// ReadInto implements bus.Accessor.
func (c *Client) ReadInto(reg uint16, buf []byte) error {
	rec := ReadRecord(reg, len(buf))
	reply, err := c.Do(rec)
	if err != nil {
		return err
	}
	if len(reply.Payload) != len(buf) {
		return &bus.TransportError{Op: bus.OpRead, Addr: reg, Chunks: 1,
			Err: fmt.Errorf("reply of %d bytes, expect %d", len(reply.Payload), len(buf))}
	}
	copy(buf, reply.Payload)
	return nil
}

// Write implements bus.Accessor.
func (c *Client) Write(reg uint16, data []byte) error {
	_, err := c.Do(WriteRecord(reg, data))
	return err
}

// Read reads n bytes at reg.
func (c *Client) Read(reg uint16, n int) ([]byte, error) {
	return bus.Read(c, reg, n)
}

// Do sends the record and waits for the reply.
// A reply with an error status is returned together with the error.
func (c *Client) Do(rec *Record) (*Reply, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	ch := make(chan *Reply, 1)
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return nil, ErrLinkClosed
	}
	c.seq++
	if c.seq == 0 {
		c.seq++
	}
	req := &Request{Seq: c.seq, Record: rec}
	c.pending[req.Seq] = ch
	c.lock.Unlock()

	pkt, err := req.Encode()
	if err == nil {
		err = c.rw.WritePacket(pkt)
	}
	if err != nil {
		c.forget(req.Seq)
		return nil, c.transportError(rec, err)
	}

	timer := time.NewTimer(c.Expiration)
	defer timer.Stop()
	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, ErrLinkClosed
		}
		return reply, reply.Err()
	case <-timer.C:
		c.forget(req.Seq)
		return nil, c.transportError(rec, context.DeadlineExceeded)
	}
}

// Run implements framework.Runnable, dispatching replies to waiting requests.
// Requests still waiting when the link closes fail with ErrLinkClosed.
func (c *Client) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-stop:
		}
	}()
	defer c.shutdown()
	for {
		pkt, err := c.rw.ReadPacket()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		reply, err := DecodeReply(pkt)
		if err != nil {
			glog.Warningf("raw client: drop reply: %v", err)
			continue
		}
		c.lock.Lock()
		ch := c.pending[reply.Seq]
		delete(c.pending, reply.Seq)
		c.lock.Unlock()
		if ch == nil {
			glog.V(2).Infof("raw client: reply #%d expired", reply.Seq)
			continue
		}
		ch <- reply
	}
}

// Close closes the packet link.
func (c *Client) Close() error {
	c.shutdown()
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) shutdown() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for seq, ch := range c.pending {
		close(ch)
		delete(c.pending, seq)
	}
}

func (c *Client) forget(seq uint32) {
	c.lock.Lock()
	delete(c.pending, seq)
	c.lock.Unlock()
}

func (c *Client) transportError(rec *Record, err error) error {
	op := bus.OpWrite
	if rec.Op == OpRead {
		op = bus.OpRead
	}
	return &bus.TransportError{Op: op, Addr: uint16(rec.Address), Chunks: 1, Err: err}
}
