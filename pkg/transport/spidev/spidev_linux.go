//go:build linux

package spidev

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"unsafe"

	"github.com/golang/glog"
)

// Transport implements bus.Transport on a spidev node.
type Transport struct {
	opts Options
	file *os.File
	lock sync.Mutex
}

// Open opens and configures the spidev node.
func Open(opts Options) (*Transport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(opts.Path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	t := &Transport{opts: opts, file: f}
	errno := t.ioctl(iocWrMode, unsafe.Pointer(&opts.Mode))
	if errno == 0 {
		errno = t.ioctl(iocWrBitsPerWord, unsafe.Pointer(&opts.Bits))
	}
	if errno == 0 {
		errno = t.ioctl(iocWrMaxSpeedHz, unsafe.Pointer(&opts.Speed))
	}
	if errno != 0 {
		f.Close()
		return nil, fmt.Errorf("spidev %s: %w", opts.Path, errno)
	}
	glog.Infof("spidev: opened %s", opts)
	return t, nil
}

// Exchange implements bus.Transport.
func (t *Transport) Exchange(tx, rx []byte) error {
	if len(tx) == 0 {
		return nil
	}
	if rx != nil && len(rx) != len(tx) {
		return fmt.Errorf("spidev: rx size %d mismatches tx size %d", len(rx), len(tx))
	}
	xfer := iocTransfer{
		TxBuf:       uint64(uintptr(unsafe.Pointer(&tx[0]))),
		Len:         uint32(len(tx)),
		SpeedHz:     t.opts.Speed,
		BitsPerWord: t.opts.Bits,
	}
	if rx != nil {
		xfer.RxBuf = uint64(uintptr(unsafe.Pointer(&rx[0])))
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.file == nil {
		return os.ErrClosed
	}
	if errno := t.ioctl(iocMessage1, unsafe.Pointer(&xfer)); errno != 0 {
		return errno
	}
	return nil
}

// Close implements bus.Transport.
func (t *Transport) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

func (t *Transport) ioctl(req uint, ptr unsafe.Pointer) syscall.Errno {
	_, _, err := syscall.Syscall(syscall.SYS_IOCTL, t.file.Fd(), uintptr(req), uintptr(ptr))
	return err
}
