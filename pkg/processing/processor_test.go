package processing

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"

	"github.com/koala-nodes/aspect-latent/pkg/ratio"
	"github.com/koala-nodes/aspect-latent/pkg/types"
)

// createTestImage creates a gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8((x * 255) / width), uint8((y * 255) / height), 128, 255})
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func TestDimensionsPNG(t *testing.T) {
	path := writePNG(t, t.TempDir(), "a.png", createTestImage(320, 180))

	w, h, err := NewProcessor().Dimensions(path)
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 320 || h != 180 {
		t.Errorf("Expected 320x180, got %dx%d", w, h)
	}
}

func TestDimensionsWebP(t *testing.T) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, createTestImage(64, 128), &webp.Options{Lossless: true}); err != nil {
		t.Fatalf("webp encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "a.webp")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	w, h, err := NewProcessor().Dimensions(path)
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 64 || h != 128 {
		t.Errorf("Expected 64x128, got %dx%d", w, h)
	}

	img, err := NewProcessor().LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("Expected width 64, got %d", img.Bounds().Dx())
	}
}

func TestDimensionsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	os.WriteFile(path, []byte("not an image"), 0o644)

	if _, _, err := NewProcessor().Dimensions(path); err == nil {
		t.Error("Expected error for non-image file")
	}
}

func TestLoadImageFromURL(t *testing.T) {
	var buf bytes.Buffer
	png.Encode(&buf, createTestImage(100, 50))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/text" {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("hello"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	p := NewProcessorWithClient(srv.Client())

	img, err := p.LoadImageSmart(srv.URL + "/a.png")
	if err != nil {
		t.Fatalf("LoadImageSmart failed: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50, got %v", img.Bounds())
	}

	w, h, err := p.Dimensions(srv.URL + "/a.png")
	if err != nil || w != 100 || h != 50 {
		t.Errorf("Dimensions = %dx%d, %v", w, h, err)
	}

	if _, err := p.LoadImageFromURL(srv.URL + "/text"); err == nil {
		t.Error("Expected error for non-image content type")
	}
	if _, err := p.LoadImageFromURL("ftp://example.com/a.png"); err == nil {
		t.Error("Expected error for ftp scheme")
	}
}

func TestCalculateOptimalCropBox(t *testing.T) {
	p := NewProcessor()

	tests := []struct {
		name         string
		cx, cy       float64
		tw, th       int
		iw, ih       int
		zoom         float64
		wantW, wantH float64
	}{
		{"square from landscape", 0.5, 0.5, 1, 1, 400, 200, 1, 0.5, 1},
		{"wide from square", 0.5, 0.5, 2, 1, 300, 300, 1, 1, 0.5},
		{"zoomed", 0.5, 0.5, 1, 1, 200, 200, 0.5, 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := p.CalculateOptimalCropBox(tt.cx, tt.cy, tt.tw, tt.th, tt.iw, tt.ih, tt.zoom)
			if math.Abs(box.W-tt.wantW) > 1e-9 || math.Abs(box.H-tt.wantH) > 1e-9 {
				t.Errorf("Expected %.3fx%.3f, got %.3fx%.3f", tt.wantW, tt.wantH, box.W, box.H)
			}
			if box.X < 0 || box.Y < 0 || box.X+box.W > 1+1e-9 || box.Y+box.H > 1+1e-9 {
				t.Errorf("Box out of image: %+v", box)
			}
		})
	}

	// a center at the edge is pulled back inside
	box := p.CalculateOptimalCropBox(0, 0.5, 1, 1, 400, 200, 1)
	if box.X != 0 {
		t.Errorf("Expected box at left edge, got %+v", box)
	}
	box = p.CalculateOptimalCropBox(1, 0.5, 1, 1, 400, 200, 1)
	if math.Abs(box.X-0.5) > 1e-9 {
		t.Errorf("Expected box at right edge, got %+v", box)
	}
}

func TestFitToEntry(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(400, 225)
	entry := ratio.Match(400.0 / 225.0)

	fitted, box, err := p.FitToEntry(img, entry, types.FitOptions{Center: types.ImageCenter(), Zoom: 1})
	if err != nil {
		t.Fatalf("FitToEntry failed: %v", err)
	}

	b := fitted.Bounds()
	if b.Dx() != entry.Width || b.Dy() != entry.Height {
		t.Errorf("Expected %s, got %dx%d", entry, b.Dx(), b.Dy())
	}
	if box.Empty() {
		t.Error("Expected a non-empty crop box")
	}

	if _, _, err := p.FitToEntry(image.NewRGBA(image.Rect(0, 0, 0, 0)), entry, types.FitOptions{}); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestSaveImage(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(64, 64)
	dir := t.TempDir()

	for _, format := range []string{"jpg", "png", "webp"} {
		path := filepath.Join(dir, "out."+format)
		if err := p.SaveImage(img, path, format, 90, false); err != nil {
			t.Errorf("SaveImage(%s) failed: %v", format, err)
			continue
		}
		w, h, err := p.Dimensions(path)
		if err != nil || w != 64 || h != 64 {
			t.Errorf("%s round trip: %dx%d, %v", format, w, h, err)
		}
	}

	if err := p.SaveImage(img, filepath.Join(dir, "out.bmp"), "bmp", 90, false); err == nil {
		t.Error("Expected error for bmp")
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(400, 200)

	b64, err := p.PrepareImageForModel(img, "jpg", 100, 85)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}
	if b64 == "" {
		t.Error("Expected non-empty payload")
	}
}

func TestCreateDebugOverlay(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(200, 200)

	out := p.CreateDebugOverlay(img, types.Box{X: 0.1, Y: 0.1, W: 0.5, H: 0.5}, types.Box{}, types.Point{X: 0.9, Y: 0.9})
	if out.Bounds() != img.Bounds() {
		t.Fatalf("Overlay changed bounds: %v", out.Bounds())
	}

	if got := color.NRGBAModel.Convert(out.At(20, 20)).(color.NRGBA); got != subjectColor {
		t.Errorf("Expected subject box color at corner, got %v", got)
	}
	if got := color.NRGBAModel.Convert(out.At(180, 180)).(color.NRGBA); got != centerColor {
		t.Errorf("Expected center marker color, got %v", got)
	}
}

func BenchmarkFitToEntry(b *testing.B) {
	p := NewProcessor()
	img := createTestImage(1920, 1080)
	entry := ratio.Match(1920.0 / 1080.0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.FitToEntry(img, entry, types.FitOptions{Center: types.ImageCenter(), Zoom: 1})
	}
}
