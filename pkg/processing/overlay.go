package processing

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/koala-nodes/aspect-latent/pkg/types"
)

var (
	subjectColor = color.NRGBA{0, 255, 0, 255}
	cropColor    = color.NRGBA{255, 204, 0, 255}
	centerColor  = color.NRGBA{255, 0, 0, 255}
)

// CreateDebugOverlay draws the subject box, the crop box and the crop center on a copy of img
func (p *Processor) CreateDebugOverlay(img image.Image, subject, crop types.Box, center types.Point) image.Image {
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()

	short := w
	if h < short {
		short = h
	}
	stroke := max(2, short/250)
	arm := max(4, short/100)

	if !subject.Empty() {
		strokeBox(out, subject, w, h, subjectColor, stroke)
	}
	if !crop.Empty() {
		strokeBox(out, crop, w, h, cropColor, stroke)
	}

	px := int(clamp(center.X, 0, 1)*float64(w) + 0.5)
	py := int(clamp(center.Y, 0, 1)*float64(h) + 0.5)
	fillRect(out, image.Rect(px-arm, py-stroke/2, px+arm, py+stroke/2+1), centerColor)
	fillRect(out, image.Rect(px-stroke/2, py-arm, px+stroke/2+1, py+arm), centerColor)

	return out
}

// boxToPixels converts a normalized box into pixel corners, never empty
func boxToPixels(box types.Box, w, h int) (int, int, int, int) {
	x0 := int(clamp(box.X, 0, 1)*float64(w) + 0.5)
	y0 := int(clamp(box.Y, 0, 1)*float64(h) + 0.5)
	x1 := int(clamp(box.X+box.W, 0, 1)*float64(w) + 0.5)
	y1 := int(clamp(box.Y+box.H, 0, 1)*float64(h) + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

func strokeBox(img *image.NRGBA, box types.Box, w, h int, c color.NRGBA, stroke int) {
	x0, y0, x1, y1 := boxToPixels(box, w, h)
	fillRect(img, image.Rect(x0, y0, x1, y0+stroke), c)
	fillRect(img, image.Rect(x0, y1-stroke, x1, y1), c)
	fillRect(img, image.Rect(x0, y0, x0+stroke, y1), c)
	fillRect(img, image.Rect(x1-stroke, y0, x1, y1), c)
}

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}
