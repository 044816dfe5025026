package mqtt

import (
	"io"
	"sync"
)

// ReadWriter exchanges packets over a pair of topics.
// Incoming packets are taken from SubTopic, outgoing are published to PubTopic.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	sub       *Subscription
	packetCh  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter subscribes sub and creates the ReadWriter.
func NewPacketReadWriter(q *Queue, sub, pub string) *ReadWriter {
	p := &ReadWriter{
		Queue:    q,
		SubTopic: sub,
		PubTopic: pub,
		packetCh: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
	p.sub = q.Sub(sub, p.handleMsg)
	return p
}

// ForServer uses the convention for the side owning the board:
// SubTopic = prefix/cmd
// PubTopic = prefix/msg
func ForServer(q *Queue, prefix string) *ReadWriter {
	return NewPacketReadWriter(q, prefix+"/cmd", prefix+"/msg")
}

// ForClient uses the convention for the remote side:
// SubTopic = prefix/msg
// PubTopic = prefix/cmd
func ForClient(q *Queue, prefix string) *ReadWriter {
	return NewPacketReadWriter(q, prefix+"/msg", prefix+"/cmd")
}

// ReadPacket implements comm.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements comm.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Close unsubscribes SubTopic. Pending ReadPacket returns io.EOF.
func (p *ReadWriter) Close() (err error) {
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.sub.Close()
	})
	return
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	}
}
