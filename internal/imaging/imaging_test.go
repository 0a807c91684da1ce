package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/erazemk/najdeno/internal/model"
)

func createTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 128})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// createNoisyPNG returns a PNG that does not compress well.
func createNoisyPNG(w, h int) []byte {
	rng := rand.New(rand.NewPCG(1, 2))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256)), 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func decodeDataURI(t *testing.T, uri string) (string, image.Image) {
	t.Helper()
	mime, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ";base64,")
	if !ok {
		t.Fatalf("not a base64 data URI: %.40q", uri)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("decoding base64: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return mime, img
}

func TestPrepareJPEG(t *testing.T) {
	data := createTestJPEG(100, 100)
	result, err := Prepare(Upload{Filename: "a.jpg", MIME: "image/jpeg", Data: data})
	if err != nil {
		t.Fatalf("Prepare JPEG: %v", err)
	}
	if result.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", result.MIME)
	}
	if !strings.HasPrefix(result.DataURI, "data:image/jpeg;base64,") {
		t.Errorf("unexpected data URI prefix: %.30q", result.DataURI)
	}
	if len(result.DataURI) != EncodedSize("image/jpeg", result.Bytes) {
		t.Errorf("data URI length %d does not match EncodedSize", len(result.DataURI))
	}
}

func TestPreparePNGStaysPNG(t *testing.T) {
	data := createTestPNG(100, 100)
	result, err := Prepare(Upload{Filename: "a.png", MIME: "image/png", Data: data})
	if err != nil {
		t.Fatalf("Prepare PNG: %v", err)
	}
	if result.MIME != "image/png" {
		t.Errorf("expected image/png, got %s", result.MIME)
	}

	_, img := decodeDataURI(t, result.DataURI)
	if _, _, _, a := img.At(10, 10).RGBA(); a == 0xffff {
		t.Error("expected transparency to survive PNG recompression")
	}
}

func TestPrepareNoisyPNGShrinksUnderBudget(t *testing.T) {
	data := createNoisyPNG(800, 800)
	if len(data) <= TargetSize {
		t.Fatalf("test image too small: %d bytes", len(data))
	}

	result, err := Prepare(Upload{Filename: "noise.png", MIME: "image/png", Data: data})
	if err != nil {
		t.Fatalf("Prepare noisy PNG: %v", err)
	}
	if len(result.DataURI) > TargetSize {
		t.Errorf("expected data URI <= %d, got %d", TargetSize, len(result.DataURI))
	}
	if result.MIME != "image/png" || result.Width >= 800 {
		t.Errorf("expected a smaller PNG, got %s %dx%d", result.MIME, result.Width, result.Height)
	}
}

func TestPrepareDownscale(t *testing.T) {
	data := createTestJPEG(2400, 1200)
	result, err := Prepare(Upload{MIME: "image/jpeg", Data: data})
	if err != nil {
		t.Fatalf("Prepare large image: %v", err)
	}

	_, img := decodeDataURI(t, result.DataURI)
	bounds := img.Bounds()
	if bounds.Dx() != MaxDimension || bounds.Dy() != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, bounds.Dx(), bounds.Dy())
	}
}

func TestPrepareSmallImageNotUpscaled(t *testing.T) {
	data := createTestJPEG(50, 50)
	result, err := Prepare(Upload{MIME: "image/jpeg", Data: data})
	if err != nil {
		t.Fatalf("Prepare small image: %v", err)
	}
	if result.Width != 50 || result.Height != 50 {
		t.Errorf("small image should not be resized: got %dx%d", result.Width, result.Height)
	}
}

func TestPrepareRejectsDeclaredType(t *testing.T) {
	// Garbage data: if decoding were attempted the error would differ.
	_, err := Prepare(Upload{MIME: "image/gif", Data: []byte("GIF89a...")})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid file type") {
		t.Errorf("expected file type message, got %q", err.Error())
	}
}

func TestPrepareRejectsSniffedType(t *testing.T) {
	_, err := Prepare(Upload{MIME: "image/jpeg", Data: []byte("not an image")})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestPrepareRejectsOversize(t *testing.T) {
	_, err := Prepare(Upload{MIME: "image/png", Size: 6 << 20, Data: createTestPNG(10, 10)})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "exceeds 5MB") {
		t.Errorf("expected size message, got %q", err.Error())
	}
}

func TestPrepareCompressionFailed(t *testing.T) {
	p := Default()
	p.TargetSize = 64

	_, err := p.Prepare(Upload{MIME: "image/jpeg", Data: createTestJPEG(200, 200)})
	if !errors.Is(err, model.ErrCompressionFailed) {
		t.Fatalf("expected CompressionFailed for JPEG, got %v", err)
	}

	_, err = p.Prepare(Upload{MIME: "image/png", Data: createNoisyPNG(200, 200)})
	if !errors.Is(err, model.ErrCompressionFailed) {
		t.Fatalf("expected CompressionFailed for PNG, got %v", err)
	}
}

func TestPrepareWebPNormalizedToJPEG(t *testing.T) {
	// Minimal lossless 1x1 WebP.
	data, _ := base64.StdEncoding.DecodeString("UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA==")
	result, err := Prepare(Upload{MIME: "image/webp", Data: data})
	if err != nil {
		t.Fatalf("Prepare WebP: %v", err)
	}
	if result.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", result.MIME)
	}
	if result.Width != 1 || result.Height != 1 {
		t.Errorf("expected 1x1, got %dx%d", result.Width, result.Height)
	}
}
