// Package saliency locates the most visually busy region of an image without a
// model server. It satisfies client.VisionClient so it can stand in for a
// vision model when fitting images around their subject.
package saliency

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/koala-nodes/aspect-latent/pkg/types"
)

// Label is reported for the region a Detector finds
const Label = "salient region"

// Config holds the weights and limits of the saliency heuristic
type Config struct {
	// EdgeWeight scales local color difference
	EdgeWeight float64
	// BrightnessWeight scales pixel brightness
	BrightnessWeight float64
	// Threshold is the mean window saliency a region needs to count
	Threshold float64
	// MinSubjectRatio is the smallest window area as a fraction of the image
	MinSubjectRatio float64
	// MaxSide bounds the longest side the map is computed at
	MaxSide int
}

// DefaultConfig returns the default heuristic settings
func DefaultConfig() Config {
	return Config{
		EdgeWeight:       0.7,
		BrightnessWeight: 0.1,
		Threshold:        0.01,
		MinSubjectRatio:  0.02,
		MaxSide:          256,
	}
}

// Detector finds salient regions with an edge and brightness heuristic
type Detector struct {
	config Config
}

// New creates a Detector with DefaultConfig
func New() *Detector {
	return &Detector{config: DefaultConfig()}
}

// NewWithConfig creates a Detector with config, filling zero fields from DefaultConfig
func NewWithConfig(config Config) *Detector {
	def := DefaultConfig()
	if config.MaxSide <= 0 {
		config.MaxSide = def.MaxSide
	}
	if config.EdgeWeight == 0 && config.BrightnessWeight == 0 {
		config.EdgeWeight, config.BrightnessWeight = def.EdgeWeight, def.BrightnessWeight
	}
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.MinSubjectRatio <= 0 {
		config.MinSubjectRatio = def.MinSubjectRatio
	}
	return &Detector{config: config}
}

// Config returns the detector settings
func (d *Detector) Config() Config {
	return d.config
}

// Region is a window of the saliency map in pixels of the analyzed image
type Region struct {
	X, Y, Width, Height int
	Score               float64
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// AnalyzeImage decodes the base64 payload and reports its most salient
// region. Model and prompt are ignored.
func (d *Detector) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error) {
	data, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		if img, err = webp.Decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
	}
	return d.Detect(ctx, img)
}

// Detect returns the most salient region of img as a normalized subject.
// Confidence is how far the region stands out from the image average, so flat
// images come back with label "none".
func (d *Detector) Detect(ctx context.Context, img image.Image) (*types.AnalysisResult, error) {
	small := imaging.Clone(img)
	if b := small.Bounds(); b.Dx() > d.config.MaxSide || b.Dy() > d.config.MaxSide {
		small = imaging.Fit(small, d.config.MaxSide, d.config.MaxSide, imaging.Box)
	}
	w, h := small.Bounds().Dx(), small.Bounds().Dy()
	if w < 3 || h < 3 {
		return none(), nil
	}

	sal, mean := d.saliencyMap(small)
	regions, err := d.regions(ctx, sal, w, h)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 || mean <= 0 {
		return none(), nil
	}

	best := regions[0]
	box := types.Box{
		X: float64(best.X) / float64(w),
		Y: float64(best.Y) / float64(h),
		W: float64(best.Width) / float64(w),
		H: float64(best.Height) / float64(h),
	}
	c := box.Center()
	return &types.AnalysisResult{
		Primary: types.Subject{
			Label:      Label,
			Confidence: math.Max(0, math.Min(1, 1-mean/best.Score)),
			Box:        box,
			Cx:         c.X,
			Cy:         c.Y,
		},
		Description: fmt.Sprintf("salient region at %.2f,%.2f", c.X, c.Y),
	}, nil
}

func none() *types.AnalysisResult {
	return &types.AnalysisResult{
		Primary: types.Subject{
			Label: "none",
			Box:   types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			Cx:    0.5,
			Cy:    0.5,
		},
		Description: "no salient region",
	}
}

var neighbors = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

// saliencyMap scores every interior pixel by its color distance to its eight
// neighbors plus a brightness term. It also returns the mean score.
func (d *Detector) saliencyMap(img *image.NRGBA) ([][]float64, float64) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	px := func(x, y int) (float64, float64, float64) {
		i := y*img.Stride + x*4
		return float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2])
	}

	sal := make([][]float64, h)
	for y := range sal {
		sal[y] = make([]float64, w)
	}

	var total float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			r1, g1, b1 := px(x, y)
			var edge float64
			for _, o := range neighbors {
				r2, g2, b2 := px(x+o[0], y+o[1])
				dr, dg, db := r1-r2, g1-g2, b1-b2
				edge += math.Sqrt(dr*dr + dg*dg + db*db)
			}
			edge /= 8 * 255 * math.Sqrt(3)
			brightness := (r1 + g1 + b1) / (3 * 255)

			s := d.config.EdgeWeight*edge + d.config.BrightnessWeight*brightness
			sal[y][x] = s
			total += s
		}
	}
	return sal, total / float64(w*h)
}

// regions slides square windows of several sizes over the map and returns
// those above the threshold, best first.
func (d *Detector) regions(ctx context.Context, sal [][]float64, w, h int) ([]Region, error) {
	integral := summedArea(sal, w, h)
	minArea := int(float64(w*h) * d.config.MinSubjectRatio)
	short := min(w, h)

	var out []Region
	for _, size := range []int{short / 8, short / 6, short / 4, short / 3, short / 2} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		window := Region{Width: size, Height: size}
		if size < 4 || window.Area() < minArea {
			continue
		}
		step := max(1, size/4)
		for y := 0; y+size <= h; y += step {
			for x := 0; x+size <= w; x += step {
				sum := integral[y+size][x+size] - integral[y][x+size] - integral[y+size][x] + integral[y][x]
				r := Region{X: x, Y: y, Width: size, Height: size, Score: sum / float64(window.Area())}
				if r.Score > d.config.Threshold {
					out = append(out, r)
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// summedArea builds the (h+1)x(w+1) summed-area table of sal
func summedArea(sal [][]float64, w, h int) [][]float64 {
	s := make([][]float64, h+1)
	s[0] = make([]float64, w+1)
	for y := 1; y <= h; y++ {
		s[y] = make([]float64, w+1)
		var row float64
		for x := 1; x <= w; x++ {
			row += sal[y-1][x-1]
			s[y][x] = s[y-1][x] + row
		}
	}
	return s
}
