// Package yolonas - YOLO-NAS pre- and post-processing over engine tensors.
package yolonas

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/yolo-nas/images"
	"github.com/nvr-ai/yolo-nas/models/model"
	"github.com/nvr-ai/yolo-nas/models/model/preprocess"
	"github.com/nvr-ai/yolo-nas/models/postprocess"
	"github.com/nvr-ai/yolo-nas/tensor"
)

const (
	// DefaultInputSize is the side of the square input YOLO-NAS is exported with.
	DefaultInputSize = 640
	// DefaultScoreThreshold is the minimum class score kept by default.
	DefaultScoreThreshold = 0.5
	// DefaultIoUThreshold is the default suppression overlap.
	DefaultIoUThreshold = 0.5

	// OutputBoxes is the position of the [B, N, 4] box output.
	OutputBoxes = 0
	// OutputScores is the position of the [B, N, C] score output.
	OutputScores = 1
)

// ErrInvalidArgs is returned by NewModel for unusable arguments.
var ErrInvalidArgs = errors.New("invalid yolo-nas arguments")

// Model is a YOLO-NAS detector definition: input geometry, precision, and the
// decoder and suppressor applied to its outputs.
type Model struct {
	base    model.BaseModel
	pre     *preprocess.Preprocessor
	decoder *postprocess.Decoder
	nms     *postprocess.NMS
}

var _ model.Model = (*Model)(nil)

// DefaultArgs returns the arguments the original YOLO-NAS exports expect.
func DefaultArgs(name model.Name, path string) model.NewModelArgs {
	nms := postprocess.DefaultNMSConfig()
	nms.IoUThreshold = DefaultIoUThreshold
	return model.NewModelArgs{
		Name:      name,
		Path:      path,
		Family:    model.ModelFamilyYOLO,
		Width:     DefaultInputSize,
		Height:    DefaultInputSize,
		Precision: model.PrecisionFP32,
		Decoder:   postprocess.DecoderConfig{ScoreThreshold: DefaultScoreThreshold},
		NMS:       nms,
	}
}

// NewModel creates a YOLO-NAS model.
//
// A zero Width or Height falls back to DefaultInputSize. The decoder and NMS
// configurations are used as given; start from DefaultArgs for the usual values.
//
// Arguments:
//   - args: The model arguments.
//
// Returns:
//   - *Model: The model.
//   - error: ErrInvalidArgs, or postprocess.ErrInvalidConfig for bad thresholds.
func NewModel(args model.NewModelArgs) (*Model, error) {
	if args.Width == 0 {
		args.Width = DefaultInputSize
	}
	if args.Height == 0 {
		args.Height = DefaultInputSize
	}
	if args.Family == "" {
		args.Family = model.ModelFamilyYOLO
	}
	if err := args.Precision.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidArgs, err.Error())
	}

	pre, err := preprocess.NewPreprocessor(preprocess.ModelConfig{
		InputWidth:  args.Width,
		InputHeight: args.Height,
		Quantized:   args.Precision.Quantized(),
	})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidArgs, err.Error())
	}
	decoder, err := postprocess.NewDecoder(args.Decoder)
	if err != nil {
		return nil, err
	}
	nms, err := postprocess.NewNMS(args.NMS)
	if err != nil {
		return nil, err
	}

	return &Model{
		base: model.BaseModel{
			Name:      args.Name,
			Family:    args.Family,
			Path:      args.Path,
			Input:     image.Pt(args.Width, args.Height),
			Precision: args.Precision,
		},
		pre:     pre,
		decoder: decoder,
		nms:     nms,
	}, nil
}

// Options returns the model description.
func (m *Model) Options() model.BaseModel {
	return m.base
}

// InputDims returns the [batch, 3, H, W] input shape.
func (m *Model) InputDims(batch int) tensor.Dimensions {
	return tensor.NewDimensions(uint64(batch), preprocess.Channels, uint64(m.base.Input.Y), uint64(m.base.Input.X))
}

// PreProcess letterboxes img into the model's single input tensor.
//
// Arguments:
//   - img: The source image.
//
// Returns:
//   - []*tensor.Tensor: The engine inputs. The caller must release them.
//   - images.Letterbox: The geometry for mapping boxes back.
//   - error: An error if the image is invalid.
func (m *Model) PreProcess(img image.Image) ([]*tensor.Tensor, images.Letterbox, error) {
	res, err := m.pre.Preprocess(img)
	if err != nil {
		return nil, images.Letterbox{}, err
	}
	return []*tensor.Tensor{res.Tensor}, res.Letterboxes[0], nil
}

// PreProcessBatch letterboxes several images into one batched input tensor.
func (m *Model) PreProcessBatch(imgs []image.Image, maxConcurrency int) ([]*tensor.Tensor, []images.Letterbox, error) {
	res, err := m.pre.BatchPreprocess(imgs, maxConcurrency)
	if err != nil {
		return nil, nil, err
	}
	return []*tensor.Tensor{res.Tensor}, res.Letterboxes, nil
}

// PostProcess decodes and suppresses engine outputs.
//
// Arguments:
//   - outputs: outputs[0] boxes [B, N, 4] and outputs[1] scores [B, N, C].
//
// Returns:
//   - [][]postprocess.Result: Detections per batch item in model input pixels.
//   - error: postprocess.ErrShapeMismatch for malformed outputs.
func (m *Model) PostProcess(outputs []*tensor.Tensor) ([][]postprocess.Result, error) {
	if len(outputs) <= OutputScores {
		return nil, errors.Wrapf(postprocess.ErrShapeMismatch, "expected 2 outputs, got %d", len(outputs))
	}
	batches, err := m.decoder.Decode(outputs[OutputBoxes], outputs[OutputScores])
	if err != nil {
		return nil, err
	}
	for i, candidates := range batches {
		batches[i] = m.nms.Apply(candidates)
	}
	return batches, nil
}
