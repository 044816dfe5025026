// Package serial is the transport through a USB-serial bridge MCU.
// Every transaction is sent as one length-prefixed frame and the bridge
// answers with a frame of the same length: the 2-byte command echoed back
// followed by the bytes clocked in.
package serial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/comm/stream"
)

// Defaults of the serial bridge.
const (
	DefaultBaudRate    = 921600
	DefaultReadTimeout = time.Second
)

// MaxStaleReplies limits the late replies of failed exchanges dropped
// while waiting for the reply of the current one.
const MaxStaleReplies = 4

// ErrReplyMismatch indicates the bridge kept answering other commands.
var ErrReplyMismatch = errors.New("serial: reply doesn't echo the command")

// Options configures the serial port.
type Options struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Transport implements bus.Transport over a framed byte stream.
type Transport struct {
	conn *stream.ReadWriter
	rbuf []byte
	lock sync.Mutex
}

// New creates a Transport over an opened stream.
func New(rwc io.ReadWriteCloser) *Transport {
	conn := stream.New(rwc)
	conn.MaxSize = bus.BounceSize
	return &Transport{conn: conn, rbuf: make([]byte, bus.BounceSize)}
}

// Open opens the serial port.
func Open(opts Options) (*Transport, error) {
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	port, err := serial.Open(opts.Port, &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("serial %s: %w", opts.Port, err)
	}
	if err = port.SetReadTimeout(opts.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("serial %s: %w", opts.Port, err)
	}
	glog.Infof("serial: opened %s at %d baud", opts.Port, opts.BaudRate)
	return New(&timeoutPort{Port: port}), nil
}

// Ports lists the serial ports present.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Exchange implements bus.Transport.
// After a failure the input buffer of the port is flushed, and replies not
// echoing the command are dropped, so a late reply is never taken as the
// reply of a later exchange.
func (t *Transport) Exchange(tx, rx []byte) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	err := t.exchange(tx, rx)
	if err != nil {
		t.resetInput()
	}
	return err
}

func (t *Transport) exchange(tx, rx []byte) error {
	if err := t.conn.WritePacket(tx); err != nil {
		return err
	}
	for stale := 0; stale <= MaxStaleReplies; stale++ {
		reply, err := t.conn.ReadPacketInto(t.rbuf)
		if err != nil {
			return err
		}
		if len(reply) >= bus.CommandSize && !bytes.Equal(reply[:bus.CommandSize], tx[:bus.CommandSize]) {
			glog.Warningf("serial: drop stale reply % x, expect % x", reply[:bus.CommandSize], tx[:bus.CommandSize])
			continue
		}
		if len(reply) != len(tx) {
			return fmt.Errorf("serial: reply of %d bytes, expect %d", len(reply), len(tx))
		}
		if rx != nil {
			copy(rx, reply)
		}
		return nil
	}
	return ErrReplyMismatch
}

type inputResetter interface {
	ResetInputBuffer() error
}

func (t *Transport) resetInput() {
	if r, ok := t.conn.ReadWriter.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			glog.Warningf("serial: reset input: %v", err)
		}
	}
}

// Close implements bus.Transport.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// timeoutPort turns the empty read of an expired timeout into an error,
// otherwise io.ReadFull keeps polling a silent bridge.
type timeoutPort struct {
	serial.Port
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, errTimeout
	}
	return n, err
}

var errTimeout = errors.New("serial: read timeout")
