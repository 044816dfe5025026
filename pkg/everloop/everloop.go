// Package everloop drives the RGBW LED ring.
package everloop

import (
	"encoding/hex"
	"fmt"

	"github.com/robotalks/hub.go/pkg/bus"
)

const (
	// DefaultLEDCount is the number of LEDs on the ring of the hub.
	DefaultLEDCount = 35
	// BytesPerLED is the size of one LED in the frame buffer.
	BytesPerLED = 4
)

// LED is the color of one LED.
type LED struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	W uint8 `json:"w"`
}

// String implements fmt.Stringer.
func (l LED) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", l.R, l.G, l.B, l.W)
}

// Image is the content of the ring, starting from LED 0.
type Image []LED

// NewImage creates an Image with all LEDs off.
func NewImage(count int) Image {
	return make(Image, count)
}

// ParseImage decodes the frame buffer layout into an Image.
func ParseImage(b []byte) (Image, error) {
	if len(b)%BytesPerLED != 0 {
		return nil, fmt.Errorf("image of %d bytes: %w", len(b), bus.ErrInvalidLength)
	}
	img := make(Image, len(b)/BytesPerLED)
	for n := range img {
		p := b[n*BytesPerLED:]
		img[n] = LED{R: p[0], G: p[1], B: p[2], W: p[3]}
	}
	return img, nil
}

// Fill sets all LEDs to led.
func (img Image) Fill(led LED) Image {
	for n := range img {
		img[n] = led
	}
	return img
}

// Bytes encodes the image in the frame buffer layout.
func (img Image) Bytes() []byte {
	b := make([]byte, 0, len(img)*BytesPerLED)
	for _, led := range img {
		b = append(b, led.R, led.G, led.B, led.W)
	}
	return b
}

// String implements fmt.Stringer.
func (img Image) String() string {
	return hex.EncodeToString(img.Bytes())
}

// Ring writes images to the everloop segment.
type Ring struct {
	w     bus.Accessor
	count int
}

// New creates a Ring over the everloop segment window.
// count <= 0 means DefaultLEDCount.
func New(w bus.Accessor, count int) *Ring {
	if count <= 0 {
		count = DefaultLEDCount
	}
	return &Ring{w: w, count: count}
}

// Count returns the number of LEDs.
func (r *Ring) Count() int {
	return r.count
}

// Write writes img from LED 0.
func (r *Ring) Write(img Image) error {
	return r.WriteRaw(img.Bytes())
}

// WriteRaw writes frame buffer bytes from LED 0.
// The length must cover whole LEDs, at least one and at most Count.
func (r *Ring) WriteRaw(b []byte) error {
	if len(b) == 0 || len(b)%BytesPerLED != 0 || len(b) > r.count*BytesPerLED {
		return fmt.Errorf("everloop: frame of %d bytes for %d LEDs: %w", len(b), r.count, bus.ErrInvalidLength)
	}
	return r.w.Write(0, b)
}

// Fill sets all LEDs to the same color.
func (r *Ring) Fill(led LED) error {
	return r.Write(NewImage(r.count).Fill(led))
}

// Off turns all LEDs off.
func (r *Ring) Off() error {
	return r.Fill(LED{})
}
