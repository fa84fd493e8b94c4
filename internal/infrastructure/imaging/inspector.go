package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/baechuer/eventhub/internal/domain"
	"golang.org/x/image/webp"
)

const (
	DefaultMaxWidth  = 8000
	DefaultMaxHeight = 8000
)

var (
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicPNG  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	magicRIFF = []byte("RIFF") // webp is RIFF....WEBP
)

type format struct {
	contentType  string
	ext          string
	decodeConfig func(r *bytes.Reader) (image.Config, error)
}

var (
	formatJPEG = format{"image/jpeg", "jpg", func(r *bytes.Reader) (image.Config, error) { return jpeg.DecodeConfig(r) }}
	formatPNG  = format{"image/png", "png", func(r *bytes.Reader) (image.Config, error) { return png.DecodeConfig(r) }}
	formatWebP = format{"image/webp", "webp", func(r *bytes.Reader) (image.Config, error) { return webp.DecodeConfig(r) }}
)

// Inspector trusts the bytes, never the client's Content-Type or filename.
type Inspector struct {
	MaxWidth  int
	MaxHeight int
}

func NewInspector() *Inspector {
	return &Inspector{MaxWidth: DefaultMaxWidth, MaxHeight: DefaultMaxHeight}
}

// DetectType sniffs the format from magic bytes.
func DetectType(data []byte) (contentType, ext string, err error) {
	f, err := detect(data)
	if err != nil {
		return "", "", err
	}
	return f.contentType, f.ext, nil
}

func detect(data []byte) (format, error) {
	if len(data) < 12 {
		return format{}, fmt.Errorf("data too short to detect type")
	}
	switch {
	case bytes.HasPrefix(data, magicJPEG):
		return formatJPEG, nil
	case bytes.HasPrefix(data, magicPNG):
		return formatPNG, nil
	case bytes.HasPrefix(data, magicRIFF) && string(data[8:12]) == "WEBP":
		return formatWebP, nil
	}
	return format{}, fmt.Errorf("unsupported image type")
}

// Inspect validates an upload and reports its content type and file extension.
// Only the header is decoded, so oversized images are refused cheaply.
func (in *Inspector) Inspect(data []byte) (string, string, error) {
	f, err := detect(data)
	if err != nil {
		return "", "", domain.ErrUnsupportedImage("only jpeg, png and webp are accepted")
	}

	cfg, err := f.decodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", "", domain.ErrUnsupportedImage("corrupt " + f.ext + " header")
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		return "", "", domain.ErrUnsupportedImage("empty image")
	}
	if cfg.Width > in.MaxWidth || cfg.Height > in.MaxHeight {
		return "", "", domain.ErrUnsupportedImage(fmt.Sprintf("image too large: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, in.MaxWidth, in.MaxHeight))
	}
	return f.contentType, f.ext, nil
}
