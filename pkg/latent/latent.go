// Package latent allocates empty latent tensors sized for a pixel resolution.
package latent

import (
	"errors"
	"fmt"
)

const (
	// DownscaleFactor is the ratio between pixel space and latent space per side
	DownscaleFactor = 8
	// DefaultChannels is the channel count of SD-style latents
	DefaultChannels = 4
)

// ErrInvalidShape is returned when a latent cannot be allocated for the requested shape
var ErrInvalidShape = errors.New("invalid latent shape")

// Latent is a zero-initialized float32 tensor laid out as
// [batch, channels, height/8, width/8].
type Latent struct {
	Samples []float32 `json:"-"`
	Shape   [4]int    `json:"shape"`
}

// New allocates a zeroed latent for batch images of width x height pixels
func New(batch, channels, width, height int) (*Latent, error) {
	if batch <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: batch %d, channels %d", ErrInvalidShape, batch, channels)
	}
	if width <= 0 || height <= 0 || width%DownscaleFactor != 0 || height%DownscaleFactor != 0 {
		return nil, fmt.Errorf("%w: %dx%d is not a positive multiple of %d",
			ErrInvalidShape, width, height, DownscaleFactor)
	}

	shape := [4]int{batch, channels, height / DownscaleFactor, width / DownscaleFactor}
	return &Latent{
		Samples: make([]float32, shape[0]*shape[1]*shape[2]*shape[3]),
		Shape:   shape,
	}, nil
}

func (l *Latent) Batch() int    { return l.Shape[0] }
func (l *Latent) Channels() int { return l.Shape[1] }
func (l *Latent) Height() int   { return l.Shape[2] }
func (l *Latent) Width() int    { return l.Shape[3] }

// Len is the number of elements in the tensor
func (l *Latent) Len() int {
	return len(l.Samples)
}

// PixelSize returns the pixel resolution the latent decodes to
func (l *Latent) PixelSize() (int, int) {
	return l.Width() * DownscaleFactor, l.Height() * DownscaleFactor
}

// String renders the shape, e.g. [1 4 128 128]
func (l *Latent) String() string {
	return fmt.Sprintf("%v", l.Shape)
}
