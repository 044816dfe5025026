// Package regmap partitions the hub register space into subsystem segments.
package regmap

import (
	"fmt"
	"sort"

	"github.com/robotalks/hub.go/pkg/bus"
)

// Segment is a subsystem's sub-range of the register space.
type Segment struct {
	Name   string
	Base   uint16
	Length uint16
}

// End returns the first address past the segment.
func (s Segment) End() int {
	return int(s.Base) + int(s.Length)
}

// Contains checks [off, off+n) is inside the segment (relative offsets).
func (s Segment) Contains(off uint16, n int) bool {
	return n >= 0 && int(off)+n <= int(s.Length)
}

// Overlaps checks the two segments share any address.
func (s Segment) Overlaps(o Segment) bool {
	return int(s.Base) < o.End() && int(o.Base) < s.End()
}

// String implements fmt.Stringer.
func (s Segment) String() string {
	return fmt.Sprintf("%s[0x%04x-0x%04x)", s.Name, s.Base, s.End())
}

// Segment names.
const (
	Conf     = "conf"
	UART     = "uart"
	Mic      = "mic"
	Everloop = "everloop"
	MCU      = "mcu"
	GPIO     = "gpio"
)

// Segment bases, stable across versions.
const (
	ConfBase     uint16 = 0x0000
	UARTBase     uint16 = 0x1000
	MicBase      uint16 = 0x2000
	EverloopBase uint16 = 0x3000
	MCUBase      uint16 = 0x3800
	GPIOBase     uint16 = 0x4000
)

// DefaultSegments is the hub register layout.
var DefaultSegments = []Segment{
	{Name: Conf, Base: ConfBase, Length: 0x1000},
	{Name: UART, Base: UARTBase, Length: 0x1000},
	{Name: Mic, Base: MicBase, Length: 0x1000},
	{Name: Everloop, Base: EverloopBase, Length: 0x0800},
	{Name: MCU, Base: MCUBase, Length: 0x0800},
	{Name: GPIO, Base: GPIOBase, Length: 0x1000},
}

// ErrUnknownSegment indicates a segment name not in the map.
type ErrUnknownSegment struct {
	Name string
}

// Error implements error.
func (e *ErrUnknownSegment) Error() string {
	return fmt.Sprintf("unknown segment: %q", e.Name)
}

// Map is an immutable, validated set of segments.
type Map struct {
	segments []Segment
	byName   map[string]int
}

// New validates segments and builds a Map.
// Segments must have unique names, be non-empty, fit in the 15-bit space
// and not overlap each other.
func New(segments ...Segment) (*Map, error) {
	m := &Map{
		segments: append([]Segment(nil), segments...),
		byName:   make(map[string]int, len(segments)),
	}
	sort.Slice(m.segments, func(i, j int) bool { return m.segments[i].Base < m.segments[j].Base })
	for n, seg := range m.segments {
		if seg.Name == "" {
			return nil, fmt.Errorf("segment at 0x%04x has no name", seg.Base)
		}
		if _, exists := m.byName[seg.Name]; exists {
			return nil, fmt.Errorf("duplicated segment %q", seg.Name)
		}
		if seg.Length == 0 || seg.End() > int(bus.MaxAddr)+1 {
			return nil, fmt.Errorf("segment %s: %w", seg, bus.ErrInvalidAddress)
		}
		if n > 0 && m.segments[n-1].Overlaps(seg) {
			return nil, fmt.Errorf("segment %s overlaps %s", seg, m.segments[n-1])
		}
		m.byName[seg.Name] = n
	}
	return m, nil
}

// Default builds the Map of DefaultSegments.
func Default() *Map {
	m, err := New(DefaultSegments...)
	if err != nil {
		panic(err)
	}
	return m
}

// Segments returns segments ordered by base.
func (m *Map) Segments() []Segment {
	return append([]Segment(nil), m.segments...)
}

// Lookup finds a segment by name.
func (m *Map) Lookup(name string) (Segment, bool) {
	n, ok := m.byName[name]
	if !ok {
		return Segment{}, false
	}
	return m.segments[n], true
}

// Find returns the segment containing the absolute address.
func (m *Map) Find(addr uint16) (Segment, bool) {
	n := sort.Search(len(m.segments), func(i int) bool { return m.segments[i].End() > int(addr) })
	if n < len(m.segments) && m.segments[n].Base <= addr {
		return m.segments[n], true
	}
	return Segment{}, false
}

// Window binds a segment to an accessor.
func (m *Map) Window(name string, acc bus.Accessor) (*Window, error) {
	seg, ok := m.Lookup(name)
	if !ok {
		return nil, &ErrUnknownSegment{Name: name}
	}
	return NewWindow(seg, acc), nil
}

// MustWindow is Window which panics on unknown segment.
func (m *Map) MustWindow(name string, acc bus.Accessor) *Window {
	w, err := m.Window(name, acc)
	if err != nil {
		panic(err)
	}
	return w
}
