package regmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/hub.go/pkg/bus"
)

type access struct {
	read bool
	reg  uint16
	n    int
}

type recorder struct {
	accesses []access
}

func (r *recorder) ReadInto(reg uint16, buf []byte) error {
	r.accesses = append(r.accesses, access{read: true, reg: reg, n: len(buf)})
	return nil
}

func (r *recorder) Write(reg uint16, data []byte) error {
	r.accesses = append(r.accesses, access{reg: reg, n: len(data)})
	return nil
}

func TestDefaultSegmentsDisjoint(t *testing.T) {
	m := Default()
	segs := m.Segments()
	require.Len(t, segs, len(DefaultSegments))
	for i := range segs {
		for j := range segs {
			if i != j {
				assert.Falsef(t, segs[i].Overlaps(segs[j]), "%s overlaps %s", segs[i], segs[j])
			}
		}
		assert.LessOrEqual(t, segs[i].End(), int(bus.MaxAddr)+1)
	}
}

func TestSegmentBasesAreStable(t *testing.T) {
	m := Default()
	expected := map[string]uint16{
		Conf:     0x0000,
		UART:     0x1000,
		Mic:      0x2000,
		Everloop: 0x3000,
		MCU:      0x3800,
		GPIO:     0x4000,
	}
	for name, base := range expected {
		seg, ok := m.Lookup(name)
		require.Truef(t, ok, "segment %s", name)
		assert.Equalf(t, base, seg.Base, "segment %s", name)
	}
	_, ok := m.Lookup("zwave")
	assert.False(t, ok)
}

func TestNewRejectsBadSegments(t *testing.T) {
	testCases := []struct {
		name     string
		segments []Segment
	}{
		{"overlap", []Segment{{"a", 0x0000, 0x100}, {"b", 0x00ff, 0x10}}},
		{"duplicated", []Segment{{"a", 0x0000, 0x100}, {"a", 0x1000, 0x10}}},
		{"empty", []Segment{{"a", 0x0000, 0}}},
		{"no name", []Segment{{"", 0x0000, 1}}},
		{"beyond space", []Segment{{"a", 0x7f00, 0x101}}},
	}
	for _, tc := range testCases {
		_, err := New(tc.segments...)
		assert.Errorf(t, err, tc.name)
	}
	_, err := New(Segment{"a", 0x7f00, 0x100}, Segment{"b", 0x0000, 0x7f00})
	assert.NoError(t, err)
}

func TestFind(t *testing.T) {
	m := Default()
	testCases := []struct {
		addr uint16
		name string
	}{
		{0x0000, Conf},
		{0x0fff, Conf},
		{0x1000, UART},
		{0x37ff, Everloop},
		{0x3800, MCU},
		{0x4fff, GPIO},
		{0x5000, ""},
		{0x7fff, ""},
	}
	for _, tc := range testCases {
		seg, ok := m.Find(tc.addr)
		assert.Equalf(t, tc.name != "", ok, "0x%04x", tc.addr)
		assert.Equalf(t, tc.name, seg.Name, "0x%04x", tc.addr)
	}
}

func TestWindowTranslatesOffsets(t *testing.T) {
	rec := &recorder{}
	w := Default().MustWindow(Everloop, rec)
	require.NoError(t, w.Write(0, make([]byte, 140)))
	require.NoError(t, w.ReadInto(0x10, make([]byte, 4)))
	_, err := w.Read(0x7fc, 4)
	require.NoError(t, err)
	assert.Equal(t, []access{
		{reg: 0x3000, n: 140},
		{read: true, reg: 0x3010, n: 4},
		{read: true, reg: 0x37fc, n: 4},
	}, rec.accesses)
	assert.Equal(t, uint16(0x3004), w.Addr(4))
}

func TestWindowBounds(t *testing.T) {
	rec := &recorder{}
	w := Default().MustWindow(Everloop, rec)
	assert.ErrorIs(t, w.Write(0x7fd, make([]byte, 4)), bus.ErrInvalidAddress)
	assert.ErrorIs(t, w.ReadInto(0x800, make([]byte, 1)), bus.ErrInvalidAddress)
	assert.ErrorIs(t, w.Write(0xffff, make([]byte, 2)), bus.ErrInvalidAddress)
	assert.Empty(t, rec.accesses)
	require.NoError(t, w.Write(0x800, nil))
}

func TestUnknownWindow(t *testing.T) {
	_, err := Default().Window("zwave", &recorder{})
	var unknown *ErrUnknownSegment
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "zwave", unknown.Name)
	assert.Panics(t, func() { Default().MustWindow("zwave", &recorder{}) })
}

func TestRawCrossesSegments(t *testing.T) {
	rec := &recorder{}
	raw := NewRaw(rec)
	require.NoError(t, raw.Write(0x2ffe, make([]byte, 4)))
	assert.Equal(t, []access{{reg: 0x2ffe, n: 4}}, rec.accesses)
}
