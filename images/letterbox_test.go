package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNewLetterbox(t *testing.T) {
	tests := []struct {
		name           string
		srcW, srcH     int
		side           int
		ratioX, ratioY float32
	}{
		{"landscape", 1280, 720, 1280, 2.0, 2.0},
		{"portrait", 480, 960, 960, 1.5, 1.5},
		{"square", 640, 640, 640, 1.0, 1.0},
		{"small", 320, 200, 320, 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb, err := NewLetterbox(tt.srcW, tt.srcH, 640, 640)
			require.NoError(t, err)
			assert.Equal(t, tt.side, lb.Side)
			assert.Equal(t, image.Pt(tt.srcW, tt.srcH), lb.Source)
			assert.InDelta(t, tt.ratioX, lb.RatioX, 1e-6)
			assert.InDelta(t, tt.ratioY, lb.RatioY, 1e-6)
		})
	}

	_, err := NewLetterbox(0, 10, 640, 640)
	assert.ErrorIs(t, err, ErrInvalidImage)
	_, err = NewLetterbox(10, 10, 640, -1)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestLetterboxUnscale(t *testing.T) {
	lb, err := NewLetterbox(1280, 720, 640, 640)
	require.NoError(t, err)

	got := lb.Unscale(Rect{X1: 10, Y1: 20, X2: 100, Y2: 200})
	assert.Equal(t, Rect{X1: 20, Y1: 40, X2: 200, Y2: 400}, got)

	// boxes reaching into the padding are clamped to the source
	got = lb.Unscale(Rect{X1: 600, Y1: 300, X2: 660, Y2: 500})
	assert.Equal(t, Rect{X1: 1200, Y1: 600, X2: 1280, Y2: 720}, got)
}

func TestLetterboxImage(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	src := solid(200, 100, red)

	out, lb, err := LetterboxImage(src, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())
	assert.Equal(t, 200, lb.Side)

	// content occupies the top half, padding the bottom half
	r, g, b, _ := out.At(10, 10).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, b})
	r, g, b, _ = out.At(10, 90).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b})
}

func TestLetterboxImageNoResize(t *testing.T) {
	src := solid(64, 32, color.RGBA{G: 255, A: 255})

	out, lb, err := LetterboxImage(src, 64, 64)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), out.Bounds())
	assert.Equal(t, float32(1), lb.RatioX)

	_, g, _, _ := out.At(63, 31).RGBA()
	assert.Equal(t, uint32(0xffff), g)
	_, g, _, _ = out.At(63, 32).RGBA()
	assert.Zero(t, g)
}

func TestLetterboxImageInvalid(t *testing.T) {
	_, _, err := LetterboxImage(nil, 640, 640)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, _, err = LetterboxImage(image.NewRGBA(image.Rect(0, 0, 0, 0)), 640, 640)
	assert.ErrorIs(t, err, ErrInvalidImage)
}
