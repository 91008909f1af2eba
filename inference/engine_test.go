package inference

import (
	"context"
	"image"
	"image/color"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nvr-ai/yolo-nas/inference/providers"
	"github.com/nvr-ai/yolo-nas/models/model"
	"github.com/nvr-ai/yolo-nas/models/yolonas"
	"github.com/nvr-ai/yolo-nas/tensor"
)

// testEngine loads the model named by $YOLONAS_MODEL_PATH, skipping when the
// model or the runtime library is unavailable.
func testEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	modelPath := os.Getenv("YOLONAS_MODEL_PATH")
	if modelPath == "" || os.Getenv(providers.LibraryPathEnv) == "" {
		t.Skipf("set YOLONAS_MODEL_PATH and %s to run engine tests", providers.LibraryPathEnv)
	}

	cfg := DefaultConfig(modelPath)
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, e.Close()) })
	return e
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	_, err := NewEngine(Config{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewEngineMissingLibrary(t *testing.T) {
	cfg := DefaultConfig("model.onnx")
	cfg.SharedLibraryPath = "/nonexistent/libonnxruntime.so"
	_, err := NewEngine(cfg, nil)
	assert.Error(t, err)
}

func TestEngineSignature(t *testing.T) {
	e := testEngine(t, nil)

	require.Len(t, e.Inputs(), 1)
	require.Len(t, e.Outputs(), 2)

	size, ok := e.InputSize()
	require.True(t, ok)
	assert.Equal(t, image.Pt(yolonas.DefaultInputSize, yolonas.DefaultInputSize), size)
}

func TestEngineExecute(t *testing.T) {
	e := testEngine(t, func(c *Config) { c.Warmup = 1 })

	in, err := tensor.Create(tensor.Float32, tensor.NewDimensions(1, 3, 640, 640))
	require.NoError(t, err)
	defer in.Release()

	outs, err := e.Execute(context.Background(), []*tensor.Tensor{in})
	require.NoError(t, err)
	defer releaseAll(outs)

	require.Len(t, outs, 2)
	boxes, scores := outs[0].Dims().Extents(), outs[1].Dims().Extents()
	require.Len(t, boxes, 3)
	require.Len(t, scores, 3)
	assert.Equal(t, uint64(4), boxes[2])
	assert.Equal(t, boxes[1], scores[1])
	assert.True(t, tensor.IsAligned(outs[0].Bytes()))

	assert.GreaterOrEqual(t, e.Stats().Runs, int64(2), "warmup and execute are both counted")
}

func TestEngineExecuteInputMismatch(t *testing.T) {
	e := testEngine(t, nil)

	in, err := tensor.Create(tensor.Float32, tensor.NewDimensions(1, 3, 32, 32))
	require.NoError(t, err)
	defer in.Release()

	_, err = e.Execute(context.Background(), []*tensor.Tensor{in})
	assert.ErrorIs(t, err, ErrInputMismatch)
}

func TestEngineConcurrentStreams(t *testing.T) {
	e := testEngine(t, func(c *Config) {
		c.Scheduler = SchedulerMultiStream
		c.NumStreams = 2
	})

	in, err := tensor.Create(tensor.Float32, tensor.NewDimensions(1, 3, 640, 640))
	require.NoError(t, err)
	defer in.Release()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs, err := e.Execute(context.Background(), []*tensor.Tensor{in})
			errs[i] = err
			releaseAll(outs)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestEngineExecuteAfterClose(t *testing.T) {
	e := testEngine(t, nil)
	require.NoError(t, e.Close())

	in, err := tensor.Create(tensor.Float32, tensor.NewDimensions(1, 3, 640, 640))
	require.NoError(t, err)
	defer in.Release()

	_, err = e.Execute(context.Background(), []*tensor.Tensor{in})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEngineWithDetector(t *testing.T) {
	e := testEngine(t, nil)

	m, err := yolonas.NewModel(yolonas.DefaultArgs(model.ModelNameYOLONASS, e.Config().ModelPath))
	require.NoError(t, err)
	d := yolonas.NewDetector(e, m)

	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.Black)

	results, err := d.Predict(context.Background(), img)
	require.NoError(t, err)
	for _, r := range results {
		assert.LessOrEqual(t, r.Box.X2, float32(320))
		assert.LessOrEqual(t, r.Box.Y2, float32(240))
	}
}
