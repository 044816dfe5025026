package bus

import "github.com/golang/glog"

const (
	// BounceSize is the capacity of one staging buffer, header included.
	BounceSize = 2048
	// ChunkSize is the payload capacity of one transaction.
	ChunkSize = BounceSize - CommandSize
)

// Transactions returns the number of transactions needed for n bytes.
func Transactions(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + ChunkSize - 1) / ChunkSize
}

// checkSpan validates every transaction of a request is encodable,
// so a bad tail never leaves a partially applied request behind.
func checkSpan(reg uint16, n int) error {
	if reg > MaxAddr {
		return ErrInvalidAddress
	}
	if n < 0 {
		return ErrInvalidLength
	}
	if last := int(reg) + (Transactions(n)-1)*ChunkSize; n > 0 && last > int(MaxAddr) {
		return ErrInvalidAddress
	}
	return nil
}

// transfer runs the transactions of one request. Caller holds the gate.
func (d *Device) transfer(op Op, reg uint16, buf []byte) error {
	total := Transactions(len(buf))
	for k := 0; k < total; k++ {
		off := k * ChunkSize
		end := off + ChunkSize
		if end > len(buf) {
			end = len(buf)
		}
		addr := reg + uint16(off)
		tx := d.tx[:CommandSize+end-off]
		if err := (Command{Read: op == OpRead, Addr: addr}).PutBytes(tx); err != nil {
			return err
		}
		var rx []byte
		if op == OpRead {
			clear(tx[CommandSize:])
			rx = d.rx[:len(tx)]
		} else {
			copy(tx[CommandSize:], buf[off:end])
		}
		if glog.V(4) {
			glog.Infof("%s: %s 0x%04x +%d", d.name, op, addr, end-off)
		}
		d.stats.Transactions++
		if err := d.transport.Exchange(tx, rx); err != nil {
			d.stats.Failures++
			return &TransportError{Op: op, Addr: addr, Chunk: k, Chunks: total, Err: err}
		}
		if op == OpRead {
			copy(buf[off:end], rx[CommandSize:])
		}
	}
	return nil
}
