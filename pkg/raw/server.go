package raw

import (
	"context"
	"errors"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/comm"
)

// Server executes requests received from a packet link against an accessor.
type Server struct {
	Accessor   bus.Accessor
	ReadWriter comm.PacketReadWriter
}

// NewServer creates a Server.
func NewServer(acc bus.Accessor, rw comm.PacketReadWriter) *Server {
	return &Server{Accessor: acc, ReadWriter: rw}
}

// Run implements framework.Runnable. It returns nil when the link is
// closed by the peer.
func (s *Server) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-stop:
		}
	}()
	for {
		pkt, err := s.ReadWriter.ReadPacket()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		out, err := s.Serve(pkt).Encode()
		if err != nil {
			return err
		}
		if err = s.ReadWriter.WritePacket(out); err != nil {
			return err
		}
	}
}

// Serve executes one encoded request and returns the reply.
func (s *Server) Serve(pkt []byte) *Reply {
	req, err := DecodeRequest(pkt)
	if err == nil {
		if glog.V(2) {
			glog.Infof("raw #%d %v 0x%04x len=%d", req.Seq, req.Record.Op, req.Record.Address, req.Record.Length)
		}
		err = Execute(s.Accessor, req.Record)
	}
	reply := &Reply{Seq: req.Seq, Status: StatusOf(err)}
	if err != nil {
		glog.Warningf("raw #%d: %v", req.Seq, err)
		reply.Message = err.Error()
	} else if req.Record.Op == OpRead {
		reply.Payload = req.Record.Payload
	}
	return reply
}

// Close closes the packet link if it's closable.
func (s *Server) Close() error {
	if closer, ok := s.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
