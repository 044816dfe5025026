package raw

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/hub.go/pkg/bus"
)

// Status is the result code of a Reply.
type Status uint32

// Reply status codes.
const (
	StatusOK Status = iota
	StatusInvalidAddress
	StatusInvalidLength
	StatusTransportFailure
	StatusDeviceGone
	StatusUnknownOp
	StatusBadRequest
)

var statusErrors = map[Status]error{
	StatusInvalidAddress:   bus.ErrInvalidAddress,
	StatusInvalidLength:    bus.ErrInvalidLength,
	StatusTransportFailure: bus.ErrTransportFailure,
	StatusDeviceGone:       bus.ErrDeviceGone,
	StatusUnknownOp:        ErrUnknownOp,
}

// ErrBadRequest indicates the peer failed to decode a request.
var ErrBadRequest = errors.New("bad raw request")

// StatusOf maps err to a Status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, bus.ErrDeviceGone):
		return StatusDeviceGone
	case errors.Is(err, bus.ErrTransportFailure):
		return StatusTransportFailure
	case errors.Is(err, bus.ErrInvalidAddress):
		return StatusInvalidAddress
	case errors.Is(err, bus.ErrInvalidLength):
		return StatusInvalidLength
	case errors.Is(err, ErrUnknownOp):
		return StatusUnknownOp
	}
	return StatusBadRequest
}

// Err returns the sentinel error for the status, nil for StatusOK.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	if err := statusErrors[s]; err != nil {
		return err
	}
	return ErrBadRequest
}

// Request carries a Record with a sequence number.
type Request struct {
	Seq    uint32
	Record *Record
}

// request is the wire form of Request, the record in its binary layout.
type request struct {
	Seq    uint32 `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Op     uint32 `protobuf:"varint,2,opt,name=op,proto3" json:"op,omitempty"`
	Record []byte `protobuf:"bytes,3,opt,name=record,proto3" json:"record,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *request) ProtoMessage() {}

// Reset implements proto.Message.
func (m *request) Reset() { *m = request{} }

// String implements proto.Message.
func (m *request) String() string { return proto.CompactTextString(m) }

// Reply is the result of a Request.
type Reply struct {
	Seq     uint32 `protobuf:"varint,1,opt,name=seq,proto3" json:"seq,omitempty"`
	Status  Status `protobuf:"varint,2,opt,name=status,proto3" json:"status,omitempty"`
	Message string `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
	Payload []byte `protobuf:"bytes,4,opt,name=payload,proto3" json:"payload,omitempty"`
}

// ProtoMessage implements proto.Message.
func (r *Reply) ProtoMessage() {}

// Reset implements proto.Message.
func (r *Reply) Reset() { *r = Reply{} }

// String implements proto.Message.
func (r *Reply) String() string { return proto.CompactTextString(r) }

// Err converts the status and message of the reply into an error
// matching the sentinel errors with errors.Is.
func (r *Reply) Err() error {
	err := r.Status.Err()
	if err == nil || r.Message == "" {
		return err
	}
	return fmt.Errorf("remote: %s: %w", r.Message, err)
}

// Encode encodes the request in protobuf wire format.
func (r *Request) Encode() ([]byte, error) {
	rec, err := r.Record.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(&request{Seq: r.Seq, Op: uint32(r.Record.Op), Record: rec})
}

// DecodeRequest decodes a request. A malformed record is reported
// with the error while Seq is still filled for replying.
func DecodeRequest(data []byte) (*Request, error) {
	var m request
	if err := proto.Unmarshal(data, &m); err != nil {
		return &Request{Seq: m.Seq, Record: &Record{}}, fmt.Errorf("%v: %w", err, ErrBadRequest)
	}
	req := &Request{Seq: m.Seq, Record: &Record{Op: Op(m.Op)}}
	if op := req.Record.Op; op != OpWrite && op != OpRead {
		return req, fmt.Errorf("%v: %w", op, ErrUnknownOp)
	}
	return req, req.Record.UnmarshalBinary(m.Record)
}

// Encode encodes the reply in protobuf wire format.
func (r *Reply) Encode() ([]byte, error) {
	return proto.Marshal(r)
}

// DecodeReply decodes a reply.
func DecodeReply(data []byte) (*Reply, error) {
	reply := &Reply{}
	if err := proto.Unmarshal(data, reply); err != nil {
		return reply, fmt.Errorf("%v: %w", err, ErrBadRequest)
	}
	return reply, nil
}
