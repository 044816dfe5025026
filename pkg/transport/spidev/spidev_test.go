package spidev

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestTransferLayout(t *testing.T) {
	assert.Equal(t, uintptr(32), unsafe.Sizeof(iocTransfer{}))
	assert.Equal(t, uint(unsafe.Sizeof(iocTransfer{})), iocMessage1>>16&0x3fff)
}

func TestOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.NoError(t, opts.Validate())
	assert.Equal(t, "/dev/spidev0.0 mode=3 speed=15000000Hz bits=8", opts.String())

	bad := []Options{
		{Mode: 0, Speed: 1, Bits: 8},
		{Path: "/dev/spidev0.0", Mode: 4, Speed: 1, Bits: 8},
		{Path: "/dev/spidev0.0", Bits: 8},
		{Path: "/dev/spidev0.0", Speed: 1},
	}
	for _, o := range bad {
		assert.Errorf(t, o.Validate(), "%v", o)
	}
}
