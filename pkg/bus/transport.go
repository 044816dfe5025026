package bus

import "io"

// Transport is the physical link to the hub.
type Transport interface {
	// Exchange performs one transaction: tx is clocked out while the
	// same number of bytes are clocked into rx. rx is nil for write-only
	// transactions, otherwise len(rx) == len(tx).
	// The slices belong to the caller and must not be retained.
	Exchange(tx, rx []byte) error

	io.Closer
}

// Accessor is the register capability consumed by subsystem drivers.
type Accessor interface {
	// ReadInto reads len(buf) bytes starting at reg.
	ReadInto(reg uint16, buf []byte) error
	// Write writes data starting at reg.
	Write(reg uint16, data []byte) error
}

// Read reads n bytes at reg into a new slice.
func Read(acc Accessor, reg uint16, n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidLength
	}
	buf := make([]byte, n)
	if err := acc.ReadInto(reg, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
