// Package cvutil - OpenCV (gocv) counterparts of the pure-Go image helpers.
package cvutil

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/yolo-nas/images"
	"github.com/nvr-ai/yolo-nas/tensor"
)

// ErrOutOfRange is returned when a quantized blob holds values outside [0, 255].
var ErrOutOfRange = errors.New("blob value out of uint8 range")

// Letterbox pads src to a black square on the bottom and right, then resizes it
// to the target size with nearest-neighbour interpolation.
//
// Arguments:
//   - src: The source frame.
//   - targetW, targetH: The model input size.
//
// Returns:
//   - gocv.Mat: The letterboxed frame. The caller must Close it.
//   - images.Letterbox: The geometry used.
//   - error: images.ErrInvalidImage for an empty frame or bad target.
func Letterbox(src gocv.Mat, targetW, targetH int) (gocv.Mat, images.Letterbox, error) {
	if src.Empty() {
		return gocv.NewMat(), images.Letterbox{}, errors.Wrap(images.ErrInvalidImage, "empty mat")
	}
	lb, err := images.NewLetterbox(src.Cols(), src.Rows(), targetW, targetH)
	if err != nil {
		return gocv.NewMat(), images.Letterbox{}, err
	}

	padded := gocv.NewMat()
	defer padded.Close()
	gocv.CopyMakeBorder(src, &padded, 0, lb.Side-src.Rows(), 0, lb.Side-src.Cols(),
		gocv.BorderConstant, color.RGBA{A: 255})

	resized := gocv.NewMat()
	gocv.Resize(padded, &resized, image.Pt(targetW, targetH), 0, 0, gocv.InterpolationNearestNeighbor)

	return resized, lb, nil
}

// BlobTensor converts a BGR frame into a [1, 3, H, W] RGB planar tensor.
//
// Float models get values scaled to [0, 1]. Quantized models get the raw 0-255
// values as uint8; every value is range-checked before the cast.
//
// Arguments:
//   - img: A letterboxed BGR frame.
//   - quantized: Whether the model takes uint8 input.
//
// Returns:
//   - *tensor.Tensor: A new aligned tensor owned by the caller.
//   - error: An error if the blob cannot be read or a value is out of range.
func BlobTensor(img gocv.Mat, quantized bool) (*tensor.Tensor, error) {
	if img.Empty() {
		return nil, errors.Wrap(images.ErrInvalidImage, "empty mat")
	}
	scale := 1.0 / 255.0
	if quantized {
		scale = 1.0
	}

	blob := gocv.BlobFromImage(img, scale, image.Pt(img.Cols(), img.Rows()), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	values, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read blob")
	}

	dims := tensor.NewDimensions(1, 3, uint64(img.Rows()), uint64(img.Cols()))
	if !quantized {
		return tensor.FromSlice(dims, values)
	}

	out, err := tensor.Create(tensor.Uint8, dims)
	if err != nil {
		return nil, err
	}
	dst := tensor.MustData[uint8](out)
	if len(dst) != len(values) {
		out.Release()
		return nil, errors.Errorf("blob holds %d values, expected %d", len(values), len(dst))
	}
	for i, v := range values {
		if v < 0 || v > 255 {
			out.Release()
			return nil, errors.Wrapf(ErrOutOfRange, "value %f at %d", v, i)
		}
		dst[i] = uint8(v)
	}
	return out, nil
}

// DrawDetections draws boxes and labels onto a frame in place.
func DrawDetections(img *gocv.Mat, annotations []images.Annotation, thickness int) {
	thickness = max(thickness, 1)
	for _, a := range annotations {
		c := images.ClassColor(a.Class)
		r := a.Box.Image()
		gocv.Rectangle(img, r, c, thickness)
		if a.Text == "" {
			continue
		}
		origin := image.Pt(r.Min.X, max(r.Min.Y-4, 10))
		gocv.PutText(img, a.Text, origin, gocv.FontHersheyPlain, 1.0, c, 1)
	}
}

// FromImage converts a Go image into a BGR frame.
func FromImage(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "image to mat")
	}
	return mat, nil
}

// Read loads an image file as a BGR frame.
func Read(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errors.Wrapf(images.ErrInvalidImage, "read %s", path)
	}
	return mat, nil
}

// Write encodes a frame to path.
func Write(path string, img gocv.Mat) error {
	if ok := gocv.IMWrite(path, img); !ok {
		return errors.Errorf("write %s", path)
	}
	return nil
}
