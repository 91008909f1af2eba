package yolonas

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/nvr-ai/yolo-nas/images"
	"github.com/nvr-ai/yolo-nas/models/postprocess"
	"github.com/nvr-ai/yolo-nas/tensor"
)

// Executor runs a model on input tensors. *inference.Engine implements it.
type Executor interface {
	Execute(ctx context.Context, inputs []*tensor.Tensor) ([]*tensor.Tensor, error)
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger used for inference failures and timings.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLabels sets the class names attached to results by class index.
func WithLabels(labels []string) Option {
	return func(d *Detector) {
		d.labels = labels
	}
}

// WithConcurrency bounds how many images of a batch are preprocessed at once.
func WithConcurrency(n int) Option {
	return func(d *Detector) {
		d.concurrency = n
	}
}

// Detector ties a Model to an Executor.
type Detector struct {
	exec        Executor
	model       *Model
	labels      []string
	logger      *zap.Logger
	concurrency int
}

// NewDetector creates a detector.
//
// Arguments:
//   - exec: The engine that runs the model.
//   - m: The model definition.
//   - opts: Optional settings.
//
// Returns:
//   - *Detector: The detector.
func NewDetector(exec Executor, m *Model, opts ...Option) *Detector {
	d := &Detector{
		exec:        exec,
		model:       m,
		logger:      zap.NewNop(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Model returns the model definition.
func (d *Detector) Model() *Model {
	return d.model
}

// Predict detects objects in a single image.
//
// Arguments:
//   - ctx: Cancels waiting for an engine stream.
//   - img: The source image.
//
// Returns:
//   - []postprocess.Result: Detections in source image pixels, highest score
//     first. Empty when nothing is found.
//   - error: Preprocessing, engine, or decoding errors.
func (d *Detector) Predict(ctx context.Context, img image.Image) ([]postprocess.Result, error) {
	inputs, lb, err := d.model.PreProcess(img)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	defer releaseAll(inputs)

	batches, err := d.Detect(ctx, inputs, []images.Letterbox{lb})
	if err != nil {
		return nil, err
	}
	return batches[0], nil
}

// PredictBatch detects objects in several images with one engine call.
func (d *Detector) PredictBatch(ctx context.Context, imgs []image.Image) ([][]postprocess.Result, error) {
	inputs, lbs, err := d.model.PreProcessBatch(imgs, d.concurrency)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	defer releaseAll(inputs)

	return d.Detect(ctx, inputs, lbs)
}

// Detect runs the engine on prepared inputs and maps the detections back to
// source pixels with one letterbox per batch item. Inputs stay owned by the
// caller.
//
// Arguments:
//   - ctx: Cancels waiting for an engine stream.
//   - inputs: The model inputs.
//   - letterboxes: The geometry of each batch item.
//
// Returns:
//   - [][]postprocess.Result: Detections per batch item.
//   - error: Engine errors are logged and returned wrapped.
func (d *Detector) Detect(ctx context.Context, inputs []*tensor.Tensor, letterboxes []images.Letterbox) ([][]postprocess.Result, error) {
	start := time.Now()
	outputs, err := d.exec.Execute(ctx, inputs)
	if err != nil {
		d.logger.Error("inference failed",
			zap.String("model", string(d.model.base.Name)),
			zap.String("path", d.model.base.Path),
			zap.Int("inputs", len(inputs)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("execute %s: %w", d.model.base.Name, err)
	}
	defer releaseAll(outputs)
	elapsed := time.Since(start)

	batches, err := d.model.PostProcess(outputs)
	if err != nil {
		d.logger.Error("decoding outputs failed", zap.String("model", string(d.model.base.Name)), zap.Error(err))
		return nil, fmt.Errorf("postprocess: %w", err)
	}
	if len(batches) != len(letterboxes) {
		return nil, fmt.Errorf("postprocess: %d batch items for %d letterboxes: %w",
			len(batches), len(letterboxes), postprocess.ErrShapeMismatch)
	}

	for b, results := range batches {
		for i := range results {
			results[i].Box = letterboxes[b].Unscale(results[i].Box)
			if c := results[i].Class; c >= 0 && c < len(d.labels) {
				results[i].Label = d.labels[c]
			}
		}
	}

	d.logger.Debug("inference complete",
		zap.String("model", string(d.model.base.Name)),
		zap.Duration("engine", elapsed),
		zap.Duration("total", time.Since(start)),
		zap.Int("batch", len(batches)),
	)
	return batches, nil
}

func releaseAll(ts []*tensor.Tensor) {
	for _, t := range ts {
		t.Release()
	}
}
