package regmap

import (
	"fmt"

	"github.com/robotalks/hub.go/pkg/bus"
)

// Window is a segment-relative view of an accessor.
// It implements bus.Accessor with offsets relative to the segment base
// and rejects accesses leaving the segment.
type Window struct {
	seg Segment
	acc bus.Accessor
}

// NewWindow creates a Window.
func NewWindow(seg Segment, acc bus.Accessor) *Window {
	return &Window{seg: seg, acc: acc}
}

// Segment returns the segment of the window.
func (w *Window) Segment() Segment {
	return w.seg
}

// Addr converts a segment offset to an absolute register address.
func (w *Window) Addr(off uint16) uint16 {
	return w.seg.Base + off
}

// ReadInto implements bus.Accessor.
func (w *Window) ReadInto(off uint16, buf []byte) error {
	if err := w.check(off, len(buf)); err != nil {
		return err
	}
	return w.acc.ReadInto(w.seg.Base+off, buf)
}

// Write implements bus.Accessor.
func (w *Window) Write(off uint16, data []byte) error {
	if err := w.check(off, len(data)); err != nil {
		return err
	}
	return w.acc.Write(w.seg.Base+off, data)
}

// Read reads n bytes at off.
func (w *Window) Read(off uint16, n int) ([]byte, error) {
	return bus.Read(w, off, n)
}

func (w *Window) check(off uint16, n int) error {
	if !w.seg.Contains(off, n) {
		return fmt.Errorf("%s: offset 0x%04x+%d: %w", w.seg, off, n, bus.ErrInvalidAddress)
	}
	return nil
}

// Raw is the unrestricted view of the whole register space used by
// diagnostics. It doesn't check segments, so writes through it can
// change the state of any subsystem.
type Raw struct {
	bus.Accessor
}

// NewRaw wraps an accessor as Raw.
func NewRaw(acc bus.Accessor) Raw {
	return Raw{Accessor: acc}
}
