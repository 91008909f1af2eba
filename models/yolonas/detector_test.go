package yolonas

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nvr-ai/yolo-nas/images"
	"github.com/nvr-ai/yolo-nas/models/model"
	"github.com/nvr-ai/yolo-nas/models/postprocess"
	"github.com/nvr-ai/yolo-nas/tensor"
)

// fakeExecutor returns canned boxes and scores, replicated per batch item.
type fakeExecutor struct {
	boxes   []float32
	scores  []float32
	classes int
	err     error

	inputs  []*tensor.Tensor
	outputs []*tensor.Tensor
}

func (f *fakeExecutor) Execute(_ context.Context, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	f.inputs = inputs
	if f.err != nil {
		return nil, f.err
	}
	batch := int(inputs[0].Dims().Extents()[0])
	rows := len(f.boxes) / 4

	var boxes, scores []float32
	for range batch {
		boxes = append(boxes, f.boxes...)
		scores = append(scores, f.scores...)
	}
	b, err := tensor.FromSlice(tensor.NewDimensions(uint64(batch), uint64(rows), 4), boxes)
	if err != nil {
		return nil, err
	}
	s, err := tensor.FromSlice(tensor.NewDimensions(uint64(batch), uint64(rows), uint64(f.classes)), scores)
	if err != nil {
		return nil, err
	}
	f.outputs = []*tensor.Tensor{b, s}
	return f.outputs, nil
}

func testModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(DefaultArgs(model.ModelNameYOLONASS, "yolo_nas_s.onnx"))
	require.NoError(t, err)
	return m
}

func frame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 80, A: 255})
		}
	}
	return img
}

func TestPredict(t *testing.T) {
	exec := &fakeExecutor{
		boxes: []float32{
			10, 20, 110, 220, // person
			12, 22, 112, 222, // duplicate person, suppressed
			300, 300, 400, 400, // car
			500, 500, 600, 600, // below threshold
		},
		scores: []float32{
			0.9, 0.1, 0.0,
			0.8, 0.1, 0.0,
			0.1, 0.0, 0.7,
			0.2, 0.3, 0.1,
		},
		classes: 3,
	}
	d := NewDetector(exec, testModel(t), WithLabels([]string{"person", "bicycle", "car"}))

	results, err := d.Predict(context.Background(), frame(1280, 720))
	require.NoError(t, err)
	require.Len(t, results, 2)

	// letterbox side 1280 into 640: every coordinate doubles, then clamps to 1280x720
	assert.Equal(t, "person", results[0].Label)
	assert.Equal(t, images.Rect{X1: 20, Y1: 40, X2: 220, Y2: 440}, results[0].Box)
	assert.Equal(t, "car", results[1].Label)
	assert.Equal(t, images.Rect{X1: 600, Y1: 600, X2: 800, Y2: 720}, results[1].Box)

	require.Len(t, exec.inputs, 1)
	assert.True(t, exec.inputs[0].Dims().Equal(tensor.NewDimensions(1, 3, 640, 640)))
	assert.True(t, exec.inputs[0].Released(), "inputs are released after Predict")
	for _, o := range exec.outputs {
		assert.True(t, o.Released(), "outputs are released after Predict")
	}
}

func TestPredictNoDetections(t *testing.T) {
	exec := &fakeExecutor{boxes: []float32{0, 0, 1, 1}, scores: []float32{0.1, 0.2}, classes: 2}
	d := NewDetector(exec, testModel(t))

	results, err := d.Predict(context.Background(), frame(64, 64))
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestPredictEngineFailureIsLoggedAndReturned(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	engineErr := errors.New("onnxruntime: session run failed")
	exec := &fakeExecutor{err: engineErr}
	d := NewDetector(exec, testModel(t), WithLogger(zap.New(core)))

	_, err := d.Predict(context.Background(), frame(32, 32))
	require.Error(t, err)
	assert.ErrorIs(t, err, engineErr)

	entries := logs.FilterMessage("inference failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "yolo_nas_s", entries[0].ContextMap()["model"])
	assert.True(t, exec.inputs[0].Released())
}

func TestPredictBatch(t *testing.T) {
	exec := &fakeExecutor{boxes: []float32{0, 0, 64, 64}, scores: []float32{0.95}, classes: 1}
	d := NewDetector(exec, testModel(t), WithConcurrency(2))

	batches, err := d.PredictBatch(context.Background(), []image.Image{frame(640, 640), frame(320, 160)})
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, images.Rect{X1: 0, Y1: 0, X2: 64, Y2: 64}, batches[0][0].Box)
	assert.Equal(t, images.Rect{X1: 0, Y1: 0, X2: 32, Y2: 32}, batches[1][0].Box)
	assert.Equal(t, "", batches[1][0].Label)
	assert.True(t, exec.inputs[0].Dims().Equal(tensor.NewDimensions(2, 3, 640, 640)))
}

func TestPredictInvalidImage(t *testing.T) {
	d := NewDetector(&fakeExecutor{}, testModel(t))
	_, err := d.Predict(context.Background(), nil)
	assert.ErrorIs(t, err, images.ErrInvalidImage)
}

func TestDetectMalformedOutputs(t *testing.T) {
	exec := &fakeExecutor{boxes: []float32{0, 0, 1, 1}, scores: []float32{0.9, 0.1}, classes: 1}
	d := NewDetector(exec, testModel(t))

	input, err := tensor.Create(tensor.Float32, d.Model().InputDims(1))
	require.NoError(t, err)
	defer input.Release()

	_, err = d.Detect(context.Background(), []*tensor.Tensor{input}, []images.Letterbox{{}})
	assert.Error(t, err)
}

func TestPostProcessRequiresTwoOutputs(t *testing.T) {
	m := testModel(t)
	_, err := m.PostProcess(nil)
	assert.ErrorIs(t, err, postprocess.ErrShapeMismatch)
}
