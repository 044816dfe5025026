package bus

import (
	"sync"

	"github.com/golang/glog"
)

// Stats counts activity on a Device.
type Stats struct {
	Requests     uint64 `json:"requests"`
	Transactions uint64 `json:"transactions"`
	Failures     uint64 `json:"failures"`
}

// Device is the handle of one attached hub board.
// It owns the transport and the staging buffers, and is safe for
// concurrent use: requests are executed one at a time.
type Device struct {
	name      string
	transport Transport
	tx        []byte
	rx        []byte
	gone      bool
	stats     Stats
	lock      sync.Mutex
}

// NewDevice attaches a Device to a transport, taking ownership of it.
func NewDevice(name string, t Transport) *Device {
	glog.Infof("%s: attached", name)
	return &Device{
		name:      name,
		transport: t,
		tx:        make([]byte, BounceSize),
		rx:        make([]byte, BounceSize),
	}
}

// Name returns the name given at attach time.
func (d *Device) Name() string {
	return d.name
}

// Write implements Accessor.
func (d *Device) Write(reg uint16, data []byte) error {
	return d.do(OpWrite, reg, data)
}

// ReadInto implements Accessor.
func (d *Device) ReadInto(reg uint16, buf []byte) error {
	return d.do(OpRead, reg, buf)
}

// Read reads n bytes at reg.
func (d *Device) Read(reg uint16, n int) ([]byte, error) {
	return Read(d, reg, n)
}

func (d *Device) do(op Op, reg uint16, buf []byte) error {
	if err := checkSpan(reg, len(buf)); err != nil {
		return err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.gone {
		return ErrDeviceGone
	}
	if len(buf) == 0 {
		return nil
	}
	d.stats.Requests++
	if glog.V(2) {
		glog.Infof("%s: %s 0x%04x len=%d transactions=%d", d.name, op, reg, len(buf), Transactions(len(buf)))
	}
	return d.transfer(op, reg, buf)
}

// Stats returns a snapshot of the counters.
func (d *Device) Stats() Stats {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.stats
}

// Alive indicates the device hasn't been closed.
func (d *Device) Alive() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return !d.gone
}

// Close detaches the device and closes the transport.
// A request in flight completes first; later requests fail with ErrDeviceGone.
func (d *Device) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.gone {
		return nil
	}
	d.gone = true
	glog.Infof("%s: detached", d.name)
	return d.transport.Close()
}
