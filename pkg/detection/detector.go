package detection

import (
	"context"
	"strings"

	"github.com/koala-nodes/aspect-latent/pkg/client"
	"github.com/koala-nodes/aspect-latent/pkg/types"
)

// DefaultPrompt asks for the dominant subject as normalized JSON
const DefaultPrompt = `You are an image subject locator.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  },
  "description": "short neutral sentence (≤ 20 words)"
}

RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- The box should tightly include the visually dominant subject (prefer people/vehicles/animals; else the most central salient object).
- cx, cy is the point that must stay in frame when the image is cropped.
- If no subject is found, return:
  {"primary":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.50,"h":0.50},"cx":0.5,"cy":0.5},"description":"centered generic scene"}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// MinConfidence is the confidence below which a subject is ignored for cropping
const MinConfidence = 0.2

// Detector finds the subject a crop should be centered on
type Detector struct {
	client client.VisionClient
	prompt string
}

// NewDetector creates a detector backed by a vision client
func NewDetector(client client.VisionClient) *Detector {
	return &Detector{client: client, prompt: DefaultPrompt}
}

// DetectSubject asks the model for the primary subject and normalizes the answer
func (d *Detector) DetectSubject(ctx context.Context, model, imageB64 string) (*types.AnalysisResult, error) {
	result, err := d.client.AnalyzeImage(ctx, model, d.prompt, imageB64)
	if err != nil {
		return nil, err
	}

	result.Primary.Box = normalizeBox(result.Primary.Box)
	result.Primary.Label = strings.ToLower(strings.TrimSpace(result.Primary.Label))
	result.Primary.Cx = clamp(result.Primary.Cx, 0, 1)
	result.Primary.Cy = clamp(result.Primary.Cy, 0, 1)
	return result, nil
}

// Center returns the point to crop around: the model's center if it found a
// confident subject, otherwise the middle of the image. A center the model
// placed outside its own box is pulled onto the nearest point of the box.
func Center(result *types.AnalysisResult) types.Point {
	if result == nil || result.Primary.Label == "none" || result.Primary.Confidence < MinConfidence {
		return types.ImageCenter()
	}

	box := result.Primary.Box
	p := types.Point{X: result.Primary.Cx, Y: result.Primary.Cy}
	if box.Empty() {
		return p
	}
	if p.X == 0 && p.Y == 0 {
		return box.Center()
	}
	if !box.Contains(p) {
		return box.Nearest(p)
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox clamps the box into the image
func normalizeBox(b types.Box) types.Box {
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}
