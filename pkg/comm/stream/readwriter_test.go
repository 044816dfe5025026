package stream

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/hub.go/pkg/comm"
)

func TestFraming(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte("abc")))
	require.NoError(t, rw.WritePacket(nil))
	assert.Equal(t, []byte{3, 0, 0, 0, 'a', 'b', 'c', 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	assert.Empty(t, pkt)
	_, err = rw.ReadPacket()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMaxSize(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	rw.MaxSize = 4
	assert.ErrorIs(t, rw.WritePacket(make([]byte, 5)), comm.ErrPacketTooLarge)
	assert.Zero(t, buf.Len())

	buf.Write([]byte{5, 0, 0, 0})
	_, err := rw.ReadPacket()
	assert.ErrorIs(t, err, comm.ErrPacketTooLarge)
}

func TestOverPipe(t *testing.T) {
	a, b := net.Pipe()
	ra, rb := New(a), New(b)
	defer ra.Close()
	defer rb.Close()

	payload := bytes.Repeat([]byte{0x5a}, 4100)
	go func() {
		ra.WritePacket(payload)
	}()
	buf := make([]byte, 0, 8192)
	pkt, err := rb.ReadPacketInto(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, pkt)
	assert.Equal(t, 8192, cap(pkt))
}
