// Package websocket carries packets as websocket binary messages.
package websocket

import (
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/robotalks/hub.go/pkg/comm"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a websocket endpoint, e.g. ws://hub:8080/regs.
func Dial(url string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Handler serves each accepted connection with serve until it returns.
func Handler(serve func(comm.PacketReadWriter) error) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		serve(New(conn))
	})
}
