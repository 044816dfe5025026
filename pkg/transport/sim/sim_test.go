package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/hub.go/pkg/bus"
)

func TestRegistersThroughDevice(t *testing.T) {
	hub := New()
	dev := bus.NewDevice("sim", hub)
	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, dev.Write(0x0100, data))
	assert.Equal(t, data, hub.Peek(0x0100, len(data)))

	hub.Poke(0x0200, []byte{1, 2, 3})
	got, err := dev.Read(0x0200, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	exchanges := hub.Exchanges()
	require.Len(t, exchanges, 4)
	assert.Equal(t, Exchange{Command: bus.WriteCommand(0x0100), Len: bus.BounceSize}, exchanges[0])
	assert.Equal(t, Exchange{Command: bus.ReadCommand(0x0200), Len: 5}, exchanges[3])
}

func TestFIFORegister(t *testing.T) {
	hub := New()
	hub.AddFIFO(0x1010)
	dev := bus.NewDevice("sim", hub)

	require.NoError(t, dev.Write(0x1010, []byte("hello")))
	require.NoError(t, dev.Write(0x1010, []byte(" world")))
	assert.Equal(t, []byte("hello world"), hub.DrainFIFO(0x1010))
	assert.Empty(t, hub.DrainFIFO(0x1010))

	hub.FeedFIFO(0x1010, []byte("abc"))
	assert.Equal(t, 3, hub.PendingFIFO(0x1010))
	got, err := dev.Read(0x1010, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), got)
	got, err = dev.Read(0x1010, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 0, 0}, got)
	assert.Zero(t, hub.PendingFIFO(0x1010))

	// neighbours still auto-increment.
	require.NoError(t, dev.Write(0x1011, []byte{9, 9}))
	assert.Equal(t, []byte{9, 9}, hub.Peek(0x1011, 2))
}

func TestFailAfter(t *testing.T) {
	hub := New()
	dev := bus.NewDevice("sim", hub)
	failure := errors.New("nack")
	hub.FailAfter(1, failure)

	err := dev.Write(0, make([]byte, 3*bus.ChunkSize))
	require.ErrorIs(t, err, bus.ErrTransportFailure)
	require.ErrorIs(t, err, failure)
	assert.Len(t, hub.Exchanges(), 2)

	hub.ResetExchanges()
	require.NoError(t, dev.Write(0, []byte{1}))
	assert.Len(t, hub.Exchanges(), 1)
}

func TestClosedHub(t *testing.T) {
	hub := New()
	dev := bus.NewDevice("sim", hub)
	require.NoError(t, hub.Close())
	err := dev.Write(0, []byte{1})
	assert.ErrorIs(t, err, bus.ErrTransportFailure)
	assert.ErrorIs(t, err, bus.ErrDeviceGone)
}
