package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/baechuer/eventhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

// 1x1 lossless webp
const tinyWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func TestInspect_Accepts(t *testing.T) {
	webpData, err := base64.StdEncoding.DecodeString(tinyWebP)
	require.NoError(t, err)

	cases := []struct {
		name string
		data []byte
		ct   string
		ext  string
	}{
		{"png", encodePNG(t, 40, 20), "image/png", "png"},
		{"jpeg", encodeJPEG(t, 16, 16), "image/jpeg", "jpg"},
		{"webp", webpData, "image/webp", "webp"},
	}
	in := NewInspector()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ct, ext, err := in.Inspect(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.ct, ct)
			assert.Equal(t, tc.ext, ext)
		})
	}
}

func TestInspect_Rejects(t *testing.T) {
	in := &Inspector{MaxWidth: 100, MaxHeight: 100}

	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	truncatedPNG := encodePNG(t, 10, 10)[:16]

	for name, data := range map[string][]byte{
		"too_short":     []byte{0xFF, 0xD8},
		"gif":           gif,
		"text":          []byte("<html><body>hi</body></html>"),
		"truncated_png": truncatedPNG,
		"too_wide":      encodePNG(t, 101, 10),
		"too_tall":      encodeJPEG(t, 8, 101),
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := in.Inspect(data)
			assert.True(t, domain.Is(err, "unsupported_image"), "got %v", err)
		})
	}
}

func TestDetectType(t *testing.T) {
	ct, ext, err := DetectType(encodePNG(t, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "png", ext)

	_, _, err = DetectType([]byte("RIFF\x00\x00\x00\x00WAVEfmt "))
	assert.Error(t, err)
}
