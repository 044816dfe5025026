package everloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/hub.go/pkg/bus"
	"github.com/robotalks/hub.go/pkg/regmap"
	"github.com/robotalks/hub.go/pkg/transport/sim"
)

func newRing(t *testing.T) (*Ring, *sim.Hub) {
	hub := sim.New()
	dev := bus.NewDevice("sim", hub)
	t.Cleanup(func() { dev.Close() })
	return New(regmap.Default().MustWindow(regmap.Everloop, dev), 0), hub
}

func TestFill(t *testing.T) {
	ring, hub := newRing(t)
	assert.Equal(t, DefaultLEDCount, ring.Count())
	require.NoError(t, ring.Fill(LED{R: 1, G: 2, B: 3, W: 4}))
	frame := hub.Peek(regmap.EverloopBase, DefaultLEDCount*BytesPerLED)
	for n := 0; n < DefaultLEDCount; n++ {
		assert.Equal(t, []byte{1, 2, 3, 4}, frame[n*4:n*4+4])
	}
	require.Len(t, hub.Exchanges(), 1)
	assert.Equal(t, 2+DefaultLEDCount*BytesPerLED, hub.Exchanges()[0].Len)

	require.NoError(t, ring.Off())
	assert.Equal(t, make([]byte, DefaultLEDCount*BytesPerLED), hub.Peek(regmap.EverloopBase, DefaultLEDCount*BytesPerLED))
}

func TestWriteRawValidation(t *testing.T) {
	ring, hub := newRing(t)
	for _, n := range []int{0, 3, 5, (DefaultLEDCount + 1) * BytesPerLED} {
		assert.ErrorIsf(t, ring.WriteRaw(make([]byte, n)), bus.ErrInvalidLength, "%d bytes", n)
	}
	assert.Empty(t, hub.Exchanges())
	require.NoError(t, ring.WriteRaw([]byte{9, 9, 9, 9}))
	assert.Equal(t, []byte{9, 9, 9, 9}, hub.Peek(regmap.EverloopBase, 4))
}

func TestParseImage(t *testing.T) {
	img, err := ParseImage([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	assert.Equal(t, Image{{1, 2, 3, 4}, {5, 6, 7, 8}}, img)
	assert.Equal(t, "0102030405060708", img.String())
	assert.Equal(t, "#01020304", img[0].String())
	_, err = ParseImage([]byte{1})
	assert.ErrorIs(t, err, bus.ErrInvalidLength)
}
