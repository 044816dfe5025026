package raw

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/comm/stream"
	"github.com/robotalks/hub.go/pkg/transport/sim"
)

func TestEnvelope(t *testing.T) {
	req := &Request{Seq: 42, Record: WriteRecord(0x1010, []byte("hi"))}
	pkt, err := req.Encode()
	require.NoError(t, err)
	decoded, err := DecodeRequest(pkt)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)

	reply := &Reply{Seq: 42, Status: StatusInvalidLength, Message: "too long"}
	pkt, err = reply.Encode()
	require.NoError(t, err)
	decodedReply, err := DecodeReply(pkt)
	require.NoError(t, err)
	assert.Equal(t, reply, decodedReply)
	assert.ErrorIs(t, decodedReply.Err(), bus.ErrInvalidLength)

	// unknown fields are skipped, whatever their wire type.
	pkt, err = req.Encode()
	require.NoError(t, err)
	pkt = append(pkt, 0x4d, 1, 2, 3, 4, 0x51, 1, 2, 3, 4, 5, 6, 7, 8, 0x58, 0x7f)
	decoded, err = DecodeRequest(pkt)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)

	_, err = DecodeRequest([]byte{0x08})
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = DecodeReply([]byte{0x22, 0x05, 1})
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = DecodeRequest([]byte{0x08, 0x01, 0x10, 0x05})
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusDeviceGone, StatusOf(bus.ErrDeviceGone))
	assert.Equal(t, StatusDeviceGone, StatusOf(&bus.TransportError{Err: bus.ErrDeviceGone}))
	assert.Equal(t, StatusTransportFailure, StatusOf(&bus.TransportError{Err: errors.New("nack")}))
	assert.Equal(t, StatusInvalidAddress, StatusOf(bus.ErrInvalidAddress))
	assert.Equal(t, StatusUnknownOp, StatusOf(ErrUnknownOp))
	assert.Equal(t, StatusBadRequest, StatusOf(errors.New("other")))
	for s := StatusInvalidAddress; s <= StatusBadRequest; s++ {
		assert.Equal(t, s, StatusOf(s.Err()))
	}
}

func startBridge(t *testing.T, hub *sim.Hub) *Client {
	a, b := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	server := NewServer(bus.NewDevice("sim", hub), stream.New(a))
	client := NewClient(stream.New(b))
	go server.Run(ctx)
	go client.Run(ctx)
	t.Cleanup(func() {
		cancel()
		client.Close()
	})
	return client
}

func TestBridge(t *testing.T) {
	hub := sim.New()
	client := startBridge(t, hub)

	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i * 7)
	}
	require.NoError(t, client.Write(0x0800, data))
	assert.Equal(t, data, hub.Peek(0x0800, len(data)))
	assert.Len(t, hub.Exchanges(), bus.Transactions(len(data)))

	got, err := client.Read(0x0800, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	empty, err := client.Read(0x0800, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBridgeErrors(t *testing.T) {
	hub := sim.New()
	client := startBridge(t, hub)

	_, err := client.Read(bus.MaxAddr-100, 3000)
	assert.ErrorIs(t, err, bus.ErrInvalidAddress)

	hub.FailAfter(0, errors.New("nack"))
	err = client.Write(0x0010, []byte{1})
	assert.ErrorIs(t, err, bus.ErrTransportFailure)

	hub.Close()
	err = client.Write(0x0010, []byte{1})
	assert.ErrorIs(t, err, bus.ErrDeviceGone)
}

func TestClientExpiration(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	peer := stream.New(a)
	go func() {
		for {
			if _, err := peer.ReadPacket(); err != nil {
				return
			}
		}
	}()
	client := NewClient(stream.New(b))
	client.Expiration = 20 * time.Millisecond
	go client.Run(context.Background())
	defer client.Close()

	err := client.Write(0x0000, []byte{1})
	assert.ErrorIs(t, err, bus.ErrTransportFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientLinkClosed(t *testing.T) {
	a, b := net.Pipe()
	client := NewClient(stream.New(b))
	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()
	a.Close()
	require.NoError(t, <-done)

	err := client.Write(0x0000, []byte{1})
	assert.ErrorIs(t, err, bus.ErrDeviceGone)
}
