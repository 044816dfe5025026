package raw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/transport/sim"
)

func TestRecordLayout(t *testing.T) {
	data, err := WriteRecord(0x3000, []byte{1, 2, 3}).MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x30, 0, 0, 3, 0, 0, 0, 1, 2, 3}, data)

	data, err = ReadRecord(0x7fff, 16).MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x7f, 0, 0, 16, 0, 0, 0}, data)

	rec := &Record{Op: OpWrite}
	require.NoError(t, rec.UnmarshalBinary([]byte{0x10, 0, 0, 0, 2, 0, 0, 0, 9, 8, 7}))
	assert.Equal(t, int32(0x10), rec.Address)
	assert.Equal(t, int32(2), rec.Length)
	assert.Equal(t, []byte{9, 8}, rec.Payload)
}

func TestRecordValidation(t *testing.T) {
	testCases := []struct {
		name string
		rec  Record
		err  error
	}{
		{"negative address", Record{Op: OpRead, Address: -1, Length: 1}, bus.ErrInvalidAddress},
		{"address beyond space", Record{Op: OpRead, Address: 0x8000, Length: 1}, bus.ErrInvalidAddress},
		{"negative length", Record{Op: OpRead, Length: -1}, bus.ErrInvalidLength},
		{"too long", Record{Op: OpRead, Length: MaxPayload + 1}, bus.ErrInvalidLength},
		{"short payload", Record{Op: OpWrite, Length: 4, Payload: []byte{1}}, bus.ErrInvalidLength},
	}
	for _, tc := range testCases {
		rec := tc.rec
		assert.ErrorIsf(t, rec.Validate(), tc.err, tc.name)
		_, err := rec.MarshalBinary()
		assert.ErrorIsf(t, err, tc.err, tc.name)
	}
	assert.ErrorIs(t, (&Record{Op: OpRead}).UnmarshalBinary([]byte{1, 2, 3}), bus.ErrInvalidLength)
	assert.Equal(t, 47992, MaxPayload)
}

func TestExecute(t *testing.T) {
	hub := sim.New()
	dev := bus.NewDevice("sim", hub)

	require.NoError(t, Execute(dev, WriteRecord(0x4000, []byte{0xaa, 0x55})))
	assert.Equal(t, []byte{0xaa, 0x55}, hub.Peek(0x4000, 2))

	rec := ReadRecord(0x4000, 2)
	require.NoError(t, Execute(dev, rec))
	assert.Equal(t, []byte{0xaa, 0x55}, rec.Payload)

	// raw access isn't confined to a segment.
	data := make([]byte, 3000)
	require.NoError(t, Execute(dev, WriteRecord(0x2fff, data)))

	err := Execute(dev, &Record{Op: 7, Length: 1})
	assert.ErrorIs(t, err, ErrUnknownOp)
	assert.ErrorIs(t, Execute(dev, ReadRecord(0x7f00, 4000)), bus.ErrInvalidAddress)
}
