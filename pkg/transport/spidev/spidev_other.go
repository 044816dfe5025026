//go:build !linux

package spidev

// Transport is unavailable on this platform.
type Transport struct{}

// Open always fails with ErrUnsupported.
func Open(opts Options) (*Transport, error) {
	return nil, ErrUnsupported
}

// Exchange implements bus.Transport.
func (t *Transport) Exchange(tx, rx []byte) error {
	return ErrUnsupported
}

// Close implements bus.Transport.
func (t *Transport) Close() error {
	return nil
}
