package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/erazemk/najdeno/internal/model"
)

// Defaults for the preprocessing pipeline.
const (
	MaxUploadSize  = 5 << 20
	MaxDimension   = 1920
	TargetSize     = 512 << 10
	InitialQuality = 80
	MinQuality     = 30
	QualityStep    = 10

	// maxPixels guards against decompression bombs before a full decode.
	maxPixels = 40_000_000
	// minShrinkDimension stops the PNG shrink loop.
	minShrinkDimension = 64
)

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Upload is a file as received from a form.
type Upload struct {
	Filename string
	MIME     string
	Size     int64
	Data     []byte
}

// InlineImage is a compressed image ready to be embedded in a record.
type InlineImage struct {
	MIME    string
	Width   int
	Height  int
	Bytes   int
	DataURI string
}

// Preprocessor validates, downscales and recompresses uploads.
type Preprocessor struct {
	MaxUploadSize  int64
	MaxDimension   int
	TargetSize     int
	InitialQuality int
	MinQuality     int
	QualityStep    int
}

// Default returns a Preprocessor with the package defaults.
func Default() *Preprocessor {
	return &Preprocessor{
		MaxUploadSize:  MaxUploadSize,
		MaxDimension:   MaxDimension,
		TargetSize:     TargetSize,
		InitialQuality: InitialQuality,
		MinQuality:     MinQuality,
		QualityStep:    QualityStep,
	}
}

// Prepare runs u through the default Preprocessor.
func Prepare(u Upload) (*InlineImage, error) {
	return Default().Prepare(u)
}

// Prepare validates u, downscales it so neither side exceeds MaxDimension
// and recompresses it until its data URI fits TargetSize. PNG input stays
// PNG to keep transparency; everything else becomes JPEG.
//
// Type and size violations fail with model.ErrInvalidInput before any
// decoding happens. An image that cannot be brought under budget fails with
// model.ErrCompressionFailed.
func (p *Preprocessor) Prepare(u Upload) (*InlineImage, error) {
	if !AllowedMIME[u.MIME] {
		return nil, model.Errorf(model.KindInvalidInput, "Invalid file type. Please upload JPEG, PNG, or WebP images only.")
	}

	size := u.Size
	if size == 0 {
		size = int64(len(u.Data))
	}
	if size > p.MaxUploadSize || int64(len(u.Data)) > p.MaxUploadSize {
		return nil, model.Errorf(model.KindInvalidInput, "File size exceeds %dMB. Please choose a smaller image.", p.MaxUploadSize>>20)
	}
	if len(u.Data) == 0 {
		return nil, model.Errorf(model.KindInvalidInput, "The selected image is empty.")
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(u.Data)
	if !AllowedMIME[detected] {
		return nil, model.Errorf(model.KindInvalidInput, "Invalid file type. Please upload JPEG, PNG, or WebP images only.")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if err != nil {
		return nil, model.Wrap(model.KindInvalidInput, "The image could not be read.", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, model.Errorf(model.KindInvalidInput, "The image dimensions are too large.")
	}

	img, _, err := image.Decode(bytes.NewReader(u.Data))
	if err != nil {
		return nil, model.Wrap(model.KindInvalidInput, "The image could not be read.", err)
	}

	img = downscale(img, p.MaxDimension)

	var out *InlineImage
	if detected == "image/png" {
		out, err = p.compressPNG(img)
	} else {
		out, err = p.compressJPEG(img)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("image compressed",
		"file", u.Filename,
		"original_bytes", len(u.Data),
		"compressed_bytes", out.Bytes,
		"encoded_bytes", len(out.DataURI),
		"mime", out.MIME,
	)
	return out, nil
}

// compressJPEG lowers quality step by step until the data URI fits.
func (p *Preprocessor) compressJPEG(img image.Image) (*InlineImage, error) {
	step := max(p.QualityStep, 1)
	var buf bytes.Buffer
	for q := p.InitialQuality; q >= p.MinQuality; q -= step {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, model.Wrap(model.KindCompressionFailed, "Failed to compress image. Please try a different image.", err)
		}
		if encodedLen("image/jpeg", buf.Len()) <= p.TargetSize {
			return inline(img, "image/jpeg", buf.Bytes()), nil
		}
	}
	return nil, model.Errorf(model.KindCompressionFailed, "Failed to compress image. Please try a different image.")
}

// compressPNG shrinks the image until the lossless encoding fits.
func (p *Preprocessor) compressPNG(img image.Image) (*InlineImage, error) {
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	var buf bytes.Buffer
	for {
		buf.Reset()
		if err := enc.Encode(&buf, img); err != nil {
			return nil, model.Wrap(model.KindCompressionFailed, "Failed to compress image. Please try a different image.", err)
		}
		if encodedLen("image/png", buf.Len()) <= p.TargetSize {
			return inline(img, "image/png", buf.Bytes()), nil
		}

		b := img.Bounds()
		longest := max(b.Dx(), b.Dy())
		next := longest * 3 / 4
		if next < minShrinkDimension {
			return nil, model.Errorf(model.KindCompressionFailed, "Failed to compress image. Please try a different image.")
		}
		img = downscale(img, next)
	}
}

// EncodedSize returns the length of a data URI for n bytes of mime data.
func EncodedSize(mime string, n int) int {
	return encodedLen(mime, n)
}

func encodedLen(mime string, n int) int {
	return len("data:") + len(mime) + len(";base64,") + base64.StdEncoding.EncodedLen(n)
}

func inline(img image.Image, mime string, data []byte) *InlineImage {
	b := img.Bounds()
	return &InlineImage{
		MIME:    mime,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Bytes:   len(data),
		DataURI: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)),
	}
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
// Returns the original image if already within bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	// Calculate new dimensions preserving aspect ratio.
	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	// Register decoders (jpeg is registered by default, but be explicit).
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	image.RegisterFormat("webp", "RIFF????WEBPVP8", webp.Decode, webp.DecodeConfig)
}
