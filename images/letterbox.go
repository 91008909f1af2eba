package images

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ErrInvalidImage is returned for nil or empty images and non-positive sizes.
var ErrInvalidImage = errors.New("invalid image")

// Letterbox records how a source image was padded and resized into the model
// input so that boxes can be mapped back.
//
// The source is padded on the bottom and right to a square of side
// max(width, height), then resized to the target size. Ratios are
// side/target along each axis.
type Letterbox struct {
	// Source is the original image size.
	Source image.Point
	// Side is the side of the padded square.
	Side int
	// Target is the model input size.
	Target image.Point
	// RatioX and RatioY scale input-space coordinates back to the padded square.
	RatioX, RatioY float32
}

// NewLetterbox computes the letterbox geometry for a source and target size.
//
// Arguments:
//   - srcW, srcH: The source image size.
//   - targetW, targetH: The model input size.
//
// Returns:
//   - Letterbox: The geometry.
//   - error: ErrInvalidImage if any size is not positive.
func NewLetterbox(srcW, srcH, targetW, targetH int) (Letterbox, error) {
	if srcW <= 0 || srcH <= 0 || targetW <= 0 || targetH <= 0 {
		return Letterbox{}, errors.Wrapf(ErrInvalidImage,
			"letterbox %dx%d into %dx%d", srcW, srcH, targetW, targetH)
	}
	side := max(srcW, srcH)
	return Letterbox{
		Source: image.Pt(srcW, srcH),
		Side:   side,
		Target: image.Pt(targetW, targetH),
		RatioX: float32(side) / float32(targetW),
		RatioY: float32(side) / float32(targetH),
	}, nil
}

// Unscale maps a box from model input pixels to source image pixels, clamped
// to the source bounds.
func (l Letterbox) Unscale(r Rect) Rect {
	return Rect{
		X1: r.X1 * l.RatioX,
		Y1: r.Y1 * l.RatioY,
		X2: r.X2 * l.RatioX,
		Y2: r.Y2 * l.RatioY,
	}.Clamp(float32(l.Source.X), float32(l.Source.Y))
}

// LetterboxImage pads img to a black square anchored at the top-left corner and
// resizes it to the target size with nearest-neighbour sampling.
//
// Arguments:
//   - img: The source image.
//   - targetW, targetH: The model input size.
//
// Returns:
//   - *image.NRGBA: The letterboxed image of exactly targetW x targetH pixels.
//   - Letterbox: The geometry used, for mapping boxes back.
//   - error: ErrInvalidImage for a nil or empty image or a bad target size.
func LetterboxImage(img image.Image, targetW, targetH int) (*image.NRGBA, Letterbox, error) {
	if img == nil {
		return nil, Letterbox{}, errors.Wrap(ErrInvalidImage, "nil image")
	}
	b := img.Bounds()
	lb, err := NewLetterbox(b.Dx(), b.Dy(), targetW, targetH)
	if err != nil {
		return nil, Letterbox{}, err
	}

	square := imaging.New(lb.Side, lb.Side, color.Black)
	square = imaging.Paste(square, img, image.Pt(0, 0))

	if lb.Side == targetW && lb.Side == targetH {
		return square, lb, nil
	}

	resized := resize.Resize(uint(targetW), uint(targetH), square, resize.NearestNeighbor)
	return imaging.Clone(resized), lb, nil
}
