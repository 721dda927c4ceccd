package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/koala-nodes/aspect-latent/pkg/ratio"
	"github.com/koala-nodes/aspect-latent/pkg/types"
)

// MaxDownloadSize caps how much of a remote image is read
const MaxDownloadSize = 64 << 20

// Processor handles image loading, probing, fitting and saving
type Processor struct {
	httpClient *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// NewProcessorWithClient creates a processor that downloads with httpClient
func NewProcessorWithClient(httpClient *http.Client) *Processor {
	return &Processor{httpClient: httpClient}
}

// IsURL reports whether source should be downloaded rather than opened
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// LoadImageFromURL downloads and decodes an image
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	data, err := p.download(imageURL)
	if err != nil {
		return nil, err
	}
	return decodeImageFromBytes(data)
}

func (p *Processor) download(imageURL string) ([]byte, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "aspect-latent/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// LoadImage loads an image from a file path, honoring EXIF orientation
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path, imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	img, err := decodeImageFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if IsURL(source) {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// Dimensions returns the pixel size of the image at source, reading only the
// header when the format allows it
func (p *Processor) Dimensions(source string) (int, int, error) {
	var data []byte
	var err error
	if IsURL(source) {
		data, err = p.download(source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return 0, 0, err
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return cfg.Width, cfg.Height, nil
	}
	if w, h, _, err := webp.GetInfo(data); err == nil {
		return w, h, nil
	}

	img, err := decodeImageFromBytes(data)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", source, err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

func decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// FitToEntry crops the largest window with the entry's ratio around opts.Center
// and resizes it to exactly entry.Width x entry.Height
func (p *Processor) FitToEntry(img image.Image, entry ratio.Entry, opts types.FitOptions) (image.Image, types.Box, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, types.Box{}, fmt.Errorf("empty source image")
	}
	if entry.Width <= 0 || entry.Height <= 0 {
		return nil, types.Box{}, fmt.Errorf("invalid target size %dx%d", entry.Width, entry.Height)
	}

	box := p.CalculateOptimalCropBox(opts.Center.X, opts.Center.Y, entry.Width, entry.Height, b.Dx(), b.Dy(), opts.Zoom)
	fitted, err := p.CropImageToBox(img, box, entry.Width, entry.Height)
	if err != nil {
		return nil, types.Box{}, err
	}
	return fitted, box, nil
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			if b.Dx() >= b.Dy() {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// CropImageToBox crops an image to the normalized box and fills it to the target size
func (p *Processor) CropImageToBox(img image.Image, box types.Box, targetWidth, targetHeight int) (image.Image, error) {
	bounds := img.Bounds()
	x0, y0, x1, y1 := boxToPixels(box, bounds.Dx(), bounds.Dy())

	rect := image.Rect(x0, y0, x1, y1).Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle")
	}

	cropped := imaging.Crop(img, rect)
	if targetWidth > 0 && targetHeight > 0 {
		cropped = imaging.Fill(cropped, targetWidth, targetHeight, imaging.Center, imaging.Lanczos)
	}
	return cropped, nil
}

// CalculateOptimalCropBox returns the largest box of ratio targetWidth/targetHeight,
// scaled by zoom, centered as close to (centerX, centerY) as the image allows
func (p *Processor) CalculateOptimalCropBox(centerX, centerY float64, targetWidth, targetHeight, imgWidth, imgHeight int, zoom float64) types.Box {
	if zoom <= 0 {
		zoom = 1
	}
	r := float64(targetWidth) / float64(targetHeight)
	fw, fh := float64(imgWidth), float64(imgHeight)

	widthPx := math.Min(fw, r*fh) * clamp(zoom, 0.01, 1.0)
	heightPx := widthPx / r

	cx := clamp(centerX, 0, 1) * fw
	cy := clamp(centerY, 0, 1) * fh
	x0 := clamp(cx-widthPx/2, 0, fw-widthPx)
	y0 := clamp(cy-heightPx/2, 0, fh-heightPx)

	return types.Box{
		X: x0 / fw,
		Y: y0 / fh,
		W: widthPx / fw,
		H: heightPx / fh,
	}
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
	case "png":
		return imaging.Save(img, path, imaging.PNGCompressionLevel(png.BestCompression))
	case "jpg", "jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
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
