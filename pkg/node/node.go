// Package node implements the aspect ratio empty latent node: it resolves an input
// ratio from an image or explicit dimensions, snaps it to the nearest trained bucket
// and allocates an empty latent of that size.
package node

import (
	"errors"
	"fmt"
	"image"

	"github.com/koala-nodes/aspect-latent/pkg/latent"
	"github.com/koala-nodes/aspect-latent/pkg/ratio"
)

var (
	// ErrBatchSize is returned when the batch size is outside the configured range
	ErrBatchSize = errors.New("batch size out of range")
	// ErrInvalidDimensions is returned for negative dimensions or an empty image
	ErrInvalidDimensions = errors.New("invalid input dimensions")
)

// Source tells which input the ratio was resolved from
type Source int

const (
	SourceDefault Source = iota
	SourceDimensions
	SourceImage
)

func (s Source) String() string {
	switch s {
	case SourceImage:
		return "image"
	case SourceDimensions:
		return "dimensions"
	default:
		return "default"
	}
}

// MarshalText lets Source render as its name in JSON output
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Batch limits the node is registered with. A Config may narrow them but never widen them.
const (
	MinBatchSize = 1
	MaxBatchSize = 64
)

// Config holds configuration for the node
type Config struct {
	MinBatch   int
	MaxBatch   int
	ClampBatch bool
	Channels   int
	Default    ratio.Entry
}

// DefaultConfig returns the limits the node is registered with
func DefaultConfig() Config {
	return Config{
		MinBatch: MinBatchSize,
		MaxBatch: MaxBatchSize,
		Channels: latent.DefaultChannels,
		Default:  ratio.Default(),
	}
}

// Request carries one node invocation. Width and Height of zero mean the
// value was not supplied; Image takes priority over both.
type Request struct {
	BatchSize int
	Image     image.Image
	Width     int
	Height    int
}

// Dimensions is the resolved input size, zero for the default source
type Dimensions struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Ratio  float64 `json:"ratio"`
}

// Result mirrors the node outputs: latent, width, height, aspect_ratio, info
type Result struct {
	Latent      *latent.Latent `json:"latent"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	AspectRatio float64        `json:"aspect_ratio"`
	Info        string         `json:"info"`
	BatchSize   int            `json:"batch_size"`
	Input       Dimensions     `json:"input"`
	Source      Source         `json:"source"`
}

// Node creates empty latents snapped to the ratio table
type Node struct {
	config Config
}

// New creates a node with default configuration
func New() *Node {
	return &Node{config: DefaultConfig()}
}

// NewWithConfig creates a node with custom configuration. Zero fields fall back
// to the defaults, batch bounds are kept inside [MinBatchSize, MaxBatchSize]
// and swapped when inverted.
func NewWithConfig(config Config) *Node {
	def := DefaultConfig()
	if config.MinBatch <= 0 {
		config.MinBatch = def.MinBatch
	}
	if config.MaxBatch <= 0 {
		config.MaxBatch = def.MaxBatch
	}
	if config.MinBatch > config.MaxBatch {
		config.MinBatch, config.MaxBatch = config.MaxBatch, config.MinBatch
	}
	config.MinBatch = min(config.MinBatch, MaxBatchSize)
	config.MaxBatch = min(config.MaxBatch, MaxBatchSize)
	if config.Channels <= 0 {
		config.Channels = def.Channels
	}
	if config.Default == (ratio.Entry{}) {
		config.Default = def.Default
	}
	return &Node{config: config}
}

// Config returns the node configuration
func (n *Node) Config() Config {
	return n.config
}

// Create runs the node for a single request
func (n *Node) Create(req Request) (Result, error) {
	batch, err := n.batchSize(req.BatchSize)
	if err != nil {
		return Result{}, err
	}

	in, source, err := resolveInput(req)
	if err != nil {
		return Result{}, err
	}

	matched := n.config.Default
	if source != SourceDefault {
		matched = ratio.Match(in.Ratio)
	}

	lat, err := latent.New(batch, n.config.Channels, matched.Width, matched.Height)
	if err != nil {
		return Result{}, fmt.Errorf("failed to allocate latent: %w", err)
	}

	return Result{
		Latent:      lat,
		Width:       matched.Width,
		Height:      matched.Height,
		AspectRatio: matched.Ratio,
		Info:        FormatInfo(in, source, matched),
		BatchSize:   batch,
		Input:       in,
		Source:      source,
	}, nil
}

func (n *Node) batchSize(b int) (int, error) {
	if b >= n.config.MinBatch && b <= n.config.MaxBatch {
		return b, nil
	}
	if !n.config.ClampBatch {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrBatchSize, b, n.config.MinBatch, n.config.MaxBatch)
	}
	if b < n.config.MinBatch {
		return n.config.MinBatch, nil
	}
	return n.config.MaxBatch, nil
}

// resolveInput picks exactly one ratio source: image, then width+height, then default
func resolveInput(req Request) (Dimensions, Source, error) {
	if req.Image != nil {
		b := req.Image.Bounds()
		if b.Empty() {
			return Dimensions{}, SourceDefault, fmt.Errorf("%w: image has empty bounds", ErrInvalidDimensions)
		}
		return dimensions(b.Dx(), b.Dy()), SourceImage, nil
	}

	if req.Width < 0 || req.Height < 0 {
		return Dimensions{}, SourceDefault, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, req.Width, req.Height)
	}
	if req.Width > 0 && req.Height > 0 {
		return dimensions(req.Width, req.Height), SourceDimensions, nil
	}

	return Dimensions{}, SourceDefault, nil
}

func dimensions(w, h int) Dimensions {
	return Dimensions{Width: w, Height: h, Ratio: float64(w) / float64(h)}
}

// FormatInfo renders the human readable summary returned as the info output
func FormatInfo(in Dimensions, source Source, matched ratio.Entry) string {
	input := "none (default)"
	if source != SourceDefault {
		input = fmt.Sprintf("%dx%d (AR: %.2f)", in.Width, in.Height, in.Ratio)
	}
	return fmt.Sprintf("Input: %s → Matched: %dx%d (AR: %.2f)", input, matched.Width, matched.Height, matched.Ratio)
}
