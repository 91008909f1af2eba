// Package preprocess - Letterboxing and NCHW tensor packing for detector inputs.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"sync"

	_ "github.com/chai2010/webp" // register WebP decoder
	"github.com/pkg/errors"

	"github.com/nvr-ai/yolo-nas/images"
	"github.com/nvr-ai/yolo-nas/tensor"
)

// Channels is the number of colour planes written per image.
const Channels = 3

// ColorMode defines the channel order written into the tensor.
type ColorMode int

const (
	// ColorModeRGB is standard RGB color mode.
	ColorModeRGB ColorMode = iota
	// ColorModeBGR is BGR color mode (common for OpenCV models).
	ColorModeBGR
)

// ModelConfig defines preprocessing configuration for a specific model.
type ModelConfig struct {
	// InputWidth is the expected width of the model input.
	InputWidth int
	// InputHeight is the expected height of the model input.
	InputHeight int
	// Quantized selects uint8 input holding raw 0-255 values instead of
	// float32 scaled to [0, 1].
	Quantized bool
	// ColorMode defines the plane order.
	ColorMode ColorMode
}

// Validate checks the input size.
func (c ModelConfig) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Errorf("invalid input size %dx%d", c.InputWidth, c.InputHeight)
	}
	return nil
}

// ElementType returns the element type of the tensors the configuration produces.
func (c ModelConfig) ElementType() tensor.ElementType {
	if c.Quantized {
		return tensor.Uint8
	}
	return tensor.Float32
}

// Result contains the preprocessed input tensor and the letterbox used per image.
type Result struct {
	// Tensor is the [B, 3, H, W] input. The caller must Release it.
	Tensor *tensor.Tensor
	// Letterboxes holds one entry per batch item.
	Letterboxes []images.Letterbox
}

// Preprocessor handles image preprocessing for ONNX models. It holds no
// mutable state and is safe for concurrent use.
type Preprocessor struct {
	config ModelConfig
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
//   - config: The model-specific preprocessing configuration.
//
// Returns:
//   - *Preprocessor: The preprocessor.
//   - error: An error if the configuration is invalid.
func NewPreprocessor(config ModelConfig) (*Preprocessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Preprocessor{config: config}, nil
}

// Config returns the preprocessing configuration.
func (p *Preprocessor) Config() ModelConfig {
	return p.config
}

// Preprocess letterboxes a single image into a [1, 3, H, W] tensor.
//
// Arguments:
//   - img: The source image.
//
// Returns:
//   - *Result: The tensor and the letterbox geometry.
//   - error: An error if the image is invalid.
func (p *Preprocessor) Preprocess(img image.Image) (*Result, error) {
	return p.BatchPreprocess([]image.Image{img}, 1)
}

// BatchPreprocess letterboxes several images into one [B, 3, H, W] tensor.
// Images are processed concurrently, bounded by maxConcurrency.
//
// Arguments:
//   - imgs: The source images, one per batch item.
//   - maxConcurrency: The maximum number of images processed at once.
//
// Returns:
//   - *Result: The batched tensor and per-image letterboxes.
//   - error: The first per-image error, if any.
func (p *Preprocessor) BatchPreprocess(imgs []image.Image, maxConcurrency int) (*Result, error) {
	if len(imgs) == 0 {
		return nil, errors.Wrap(images.ErrInvalidImage, "empty batch")
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	w, h := p.config.InputWidth, p.config.InputHeight
	dims := tensor.NewDimensions(uint64(len(imgs)), Channels, uint64(h), uint64(w))
	out, err := tensor.Create(p.config.ElementType(), dims)
	if err != nil {
		return nil, errors.Wrap(err, "allocate input tensor")
	}

	plane := Channels * w * h
	letterboxes := make([]images.Letterbox, len(imgs))
	errs := make([]error, len(imgs))

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for i, img := range imgs {
		wg.Add(1)
		go func(idx int, img image.Image) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			boxed, lb, err := images.LetterboxImage(img, w, h)
			if err != nil {
				errs[idx] = fmt.Errorf("failed to preprocess image %d: %w", idx, err)
				return
			}
			letterboxes[idx] = lb

			if p.config.Quantized {
				fillCHW(tensor.MustData[uint8](out)[idx*plane:(idx+1)*plane], boxed, p.config.ColorMode, func(v uint8) uint8 { return v })
			} else {
				fillCHW(tensor.MustData[float32](out)[idx*plane:(idx+1)*plane], boxed, p.config.ColorMode, func(v uint8) float32 { return float32(v) / 255.0 })
			}
		}(i, img)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			out.Release()
			return nil, err
		}
	}

	return &Result{Tensor: out, Letterboxes: letterboxes}, nil
}

// ImageToTensor packs an image as-is (no letterboxing) into a [1, 3, H, W]
// tensor, float32 scaled to [0, 1] or raw uint8 when quantized.
//
// Arguments:
//   - img: The image, already at model input size.
//   - quantized: Whether to produce uint8 values.
//
// Returns:
//   - *tensor.Tensor: The tensor. The caller must Release it.
//   - error: An error for empty images.
func ImageToTensor(img image.Image, quantized bool) (*tensor.Tensor, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.Wrap(images.ErrInvalidImage, "empty image")
	}
	b := img.Bounds()
	cfg := ModelConfig{InputWidth: b.Dx(), InputHeight: b.Dy(), Quantized: quantized}

	out, err := tensor.Create(cfg.ElementType(), tensor.NewDimensions(1, Channels, uint64(b.Dy()), uint64(b.Dx())))
	if err != nil {
		return nil, err
	}
	if quantized {
		fillCHW(tensor.MustData[uint8](out), img, ColorModeRGB, func(v uint8) uint8 { return v })
	} else {
		fillCHW(tensor.MustData[float32](out), img, ColorModeRGB, func(v uint8) float32 { return float32(v) / 255.0 })
	}
	return out, nil
}

// DecodeImage decodes JPEG, PNG or WebP bytes.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(images.ErrInvalidImage, "image data is empty")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return img, nil
}

// fillCHW writes img into dst as three planes of width*height values.
func fillCHW[T uint8 | float32](dst []T, img image.Image, mode ColorMode, conv func(uint8) T) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	area := width * height

	r, g, bl := 0, area, 2*area
	if mode == ColorModeBGR {
		r, bl = bl, r
	}

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < height; y++ {
			row := nrgba.Pix[nrgba.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < width; x++ {
				px := row[x*4 : x*4+3]
				i := y*width + x
				dst[r+i] = conv(px[0])
				dst[g+i] = conv(px[1])
				dst[bl+i] = conv(px[2])
			}
		}
		return
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cr, cg, cb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*width + x
			dst[r+i] = conv(uint8(cr >> 8))
			dst[g+i] = conv(uint8(cg >> 8))
			dst[bl+i] = conv(uint8(cb >> 8))
		}
	}
}
