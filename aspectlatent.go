// Package aspectlatent snaps image sizes to the aspect ratio buckets a diffusion
// model was trained on and allocates empty latents of the matched size.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		aspectlatent "github.com/koala-nodes/aspect-latent"
//		"github.com/koala-nodes/aspect-latent/pkg/node"
//	)
//
//	func main() {
//		al := aspectlatent.New()
//
//		res, err := al.CreateLatent(node.Request{BatchSize: 1, Width: 1920, Height: 1080})
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(res.Info)
//		// Input: 1920x1080 (AR: 1.78) → Matched: 1344x768 (AR: 1.75)
//	}
//
// The package ties together four components:
//
//  1. Ratio (pkg/ratio): the fixed 40 entry bucket table and nearest-ratio matcher
//  2. Node (pkg/node): request validation, ratio source resolution and latent allocation
//  3. Processing (pkg/processing): image loading, dimension probing and fitting
//  4. Detection (pkg/detection, pkg/ollama, pkg/saliency): optional subject location for fitting
//
// Ratios are width divided by height throughout. Ties between two buckets go to
// the one listed first, which is always the narrower one.
package aspectlatent

import (
	"context"
	"fmt"
	"image"

	"github.com/koala-nodes/aspect-latent/internal/config"
	"github.com/koala-nodes/aspect-latent/pkg/client"
	"github.com/koala-nodes/aspect-latent/pkg/detection"
	"github.com/koala-nodes/aspect-latent/pkg/node"
	"github.com/koala-nodes/aspect-latent/pkg/ollama"
	"github.com/koala-nodes/aspect-latent/pkg/processing"
	"github.com/koala-nodes/aspect-latent/pkg/ratio"
	"github.com/koala-nodes/aspect-latent/pkg/saliency"
	"github.com/koala-nodes/aspect-latent/pkg/types"
)

// Version of the library
const Version = "1.0.0"

// Config is the library configuration, loadable from TOML
type Config = config.Config

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return config.Default()
}

// AspectLatent provides a high-level interface over matching, latent creation and fitting
type AspectLatent struct {
	config    *Config
	node      *node.Node
	processor *processing.Processor
	detector  *detection.Detector
}

// New creates an AspectLatent with default configuration and no vision backend
func New() *AspectLatent {
	al, _ := NewWithConfig(DefaultConfig())
	return al
}

// NewWithConfig creates an AspectLatent from cfg. A vision backend is set up
// when cfg.Vision.Backend names one.
func NewWithConfig(cfg *Config) (*AspectLatent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	al := &AspectLatent{
		config:    cfg,
		node:      node.NewWithConfig(cfg.NodeOptions()),
		processor: processing.NewProcessor(),
	}

	switch cfg.Vision.Backend {
	case "ollama":
		c, err := ollama.NewClient(cfg.Vision.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		al.SetVisionClient(c)
	case "saliency":
		al.SetVisionClient(saliency.NewWithConfig(saliency.Config{MaxSide: cfg.Vision.SaliencySize}))
	}
	return al, nil
}

// SetVisionClient enables subject-aware fitting through c
func (al *AspectLatent) SetVisionClient(c client.VisionClient) {
	al.detector = detection.NewDetector(c)
}

// FitResult is an image fitted into a ratio bucket
type FitResult struct {
	Image   image.Image           `json:"-"`
	Entry   ratio.Entry           `json:"entry"`
	Crop    types.Box             `json:"crop"`
	Center  types.Point           `json:"center"`
	Subject *types.AnalysisResult `json:"subject,omitempty"`
}

// Match returns the bucket closest to r
func (al *AspectLatent) Match(r float64) ratio.Entry {
	return ratio.Match(r)
}

// MatchSource probes the image at path or URL and returns its size and bucket
func (al *AspectLatent) MatchSource(source string) (node.Dimensions, ratio.Entry, error) {
	w, h, err := al.processor.Dimensions(source)
	if err != nil {
		return node.Dimensions{}, ratio.Entry{}, fmt.Errorf("failed to read image size: %w", err)
	}
	e, err := ratio.MatchDimensions(w, h)
	if err != nil {
		return node.Dimensions{}, ratio.Entry{}, err
	}
	return node.Dimensions{Width: w, Height: h, Ratio: float64(w) / float64(h)}, e, nil
}

// CreateLatent runs the node for req
func (al *AspectLatent) CreateLatent(req node.Request) (node.Result, error) {
	return al.node.Create(req)
}

// LoadImage loads an image from a file path or URL
func (al *AspectLatent) LoadImage(source string) (image.Image, error) {
	return al.processor.LoadImageSmart(source)
}

// SaveImage writes img using the configured output format
func (al *AspectLatent) SaveImage(img image.Image, path string) error {
	out := al.config.Output
	return al.processor.SaveImage(img, path, out.Format, out.Quality, out.Lossless)
}

// FitImage crops and resizes img to its matched bucket. With subjectAware set
// and a vision client configured, the crop is centered on the detected subject.
func (al *AspectLatent) FitImage(ctx context.Context, img image.Image, subjectAware bool) (FitResult, error) {
	b := img.Bounds()
	entry, err := ratio.MatchDimensions(b.Dx(), b.Dy())
	if err != nil {
		return FitResult{}, err
	}

	res := FitResult{Entry: entry, Center: types.ImageCenter()}
	if subjectAware {
		if al.detector == nil {
			return FitResult{}, fmt.Errorf("subject-aware fitting requires a vision backend")
		}
		v := al.config.Vision
		payload, err := al.processor.PrepareImageForModel(img, v.SendFormat, v.SendSize, v.SendQuality)
		if err != nil {
			return FitResult{}, fmt.Errorf("failed to encode image for model: %w", err)
		}
		subject, err := al.detector.DetectSubject(ctx, v.Model, payload)
		if err != nil {
			return FitResult{}, fmt.Errorf("subject detection failed: %w", err)
		}
		res.Subject = subject
		res.Center = detection.Center(subject)
	}

	fitted, crop, err := al.processor.FitToEntry(img, entry, types.FitOptions{
		Center: res.Center,
		Zoom:   al.config.Vision.Zoom,
	})
	if err != nil {
		return FitResult{}, fmt.Errorf("fit failed: %w", err)
	}
	res.Image = fitted
	res.Crop = crop
	return res, nil
}

// DebugOverlay draws the subject and crop of res on top of the source image
func (al *AspectLatent) DebugOverlay(img image.Image, res FitResult) image.Image {
	var subject types.Box
	if res.Subject != nil {
		subject = res.Subject.Primary.Box
	}
	return al.processor.CreateDebugOverlay(img, subject, res.Crop, res.Center)
}

// Node returns the latent node built from the configuration
func (al *AspectLatent) Node() *node.Node {
	return al.node
}

// Config returns the active configuration
func (al *AspectLatent) Config() *Config {
	return al.config
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
