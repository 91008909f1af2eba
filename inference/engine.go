package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/nvr-ai/yolo-nas/inference/providers"
	"github.com/nvr-ai/yolo-nas/tensor"
)

// environment guards process-wide runtime initialization.
var environment sync.Mutex

// initEnvironment loads the shared library and initializes the runtime once per
// process.
func initEnvironment(libPath string) error {
	environment.Lock()
	defer environment.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("error initializing ORT environment: %w", err)
	}
	return nil
}

// Stats summarizes completed runs across every stream.
type Stats struct {
	Runs      int64
	TotalTime time.Duration
}

// Mean returns the mean run duration, or 0 before the first run.
func (s Stats) Mean() time.Duration {
	if s.Runs == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Runs)
}

// Engine runs an ONNX model through a pool of sessions. It is safe for
// concurrent use; at most Config.Streams() calls to Execute run at once.
type Engine struct {
	cfg     Config
	logger  *zap.Logger
	inputs  []TensorInfo
	outputs []TensorInfo

	all  []*session
	idle chan *session

	mu     sync.RWMutex
	closed bool
}

// NewEngine loads the model described by cfg.
//
// Order of operations:
//  1. Validate the configuration.
//  2. Resolve the shared library and initialize the runtime environment.
//  3. Read the model input and output signature.
//  4. Create one session per stream with shared session options.
//  5. Run the configured warmup.
//
// Arguments:
//   - cfg: The engine configuration.
//   - logger: The logger. May be nil.
//
// Returns:
//   - *Engine: The engine. The caller must Close it.
//   - error: ErrInvalidConfig, or the runtime error that stopped loading.
func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	libPath, err := providers.ResolveSharedLibPath(cfg.SharedLibraryPath)
	if err != nil {
		return nil, err
	}
	if err := initEnvironment(libPath); err != nil {
		return nil, err
	}

	in, out, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("error reading model signature %s: %w", cfg.ModelPath, err)
	}
	e := &Engine{
		cfg:     cfg,
		logger:  logger.With(zap.String("model", cfg.ModelPath)),
		inputs:  tensorInfos(in),
		outputs: tensorInfos(out),
	}
	for _, info := range e.inputs {
		if !info.ElementType.Valid() || info.ElementType == tensor.Bool {
			return nil, fmt.Errorf("%w: input %s has an unsupported element type", ErrInvalidConfig, info.Name)
		}
	}

	options, err := providers.SessionOptions(cfg.SessionOptions(), e.logger)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	streams := cfg.Streams()
	e.idle = make(chan *session, streams)
	for i := 0; i < streams; i++ {
		s, err := newSession(i, cfg, e.inputs, e.outputs, options)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.all = append(e.all, s)
		e.idle <- s
	}

	e.logger.Info("engine ready",
		zap.String("library", libPath),
		zap.String("scheduler", string(cfg.Scheduler)),
		zap.String("provider", string(cfg.Provider)),
		zap.Int("streams", streams),
		zap.Stringers("inputs", e.inputs),
		zap.Stringers("outputs", e.outputs),
	)

	if cfg.Warmup > 0 {
		if err := e.Warmup(context.Background(), cfg.Warmup); err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Inputs returns the model input signature.
func (e *Engine) Inputs() []TensorInfo {
	return append([]TensorInfo(nil), e.inputs...)
}

// Outputs returns the model output signature.
func (e *Engine) Outputs() []TensorInfo {
	return append([]TensorInfo(nil), e.outputs...)
}

// InputSize returns the width and height of an NCHW first input, when both are
// static.
func (e *Engine) InputSize() (image.Point, bool) {
	if len(e.inputs) == 0 || len(e.inputs[0].Shape) != 4 {
		return image.Point{}, false
	}
	h, w := e.inputs[0].Shape[2], e.inputs[0].Shape[3]
	if h <= 0 || w <= 0 {
		return image.Point{}, false
	}
	return image.Pt(int(w), int(h)), true
}

// Execute runs the model on inputs, one tensor per model input in signature
// order.
//
// The context only bounds the wait for a free stream; a run that has started
// completes. Inputs must not be modified until Execute returns and remain owned
// by the caller.
//
// Arguments:
//   - ctx: Bounds the wait for a stream.
//   - inputs: The input tensors.
//
// Returns:
//   - []*tensor.Tensor: One tensor per model output. The caller must Release them.
//   - error: ErrInputMismatch, ErrClosed, the context error, or the runtime error.
func (e *Engine) Execute(ctx context.Context, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := validateInputs(e.inputs, inputs, e.cfg.BatchSize); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}

	var s *session
	select {
	case s = <-e.idle:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { e.idle <- s }()

	return s.run(inputs, e.outputs)
}

// Warmup runs the model n times on zero-filled inputs with a batch of one. It
// is a no-op when an input has dynamic extents other than the batch.
func (e *Engine) Warmup(ctx context.Context, n int) error {
	inputs := make([]*tensor.Tensor, 0, len(e.inputs))
	defer func() { releaseAll(inputs) }()

	for _, info := range e.inputs {
		shape, ok := resolveShape(info.Shape, 1)
		if !ok {
			e.logger.Debug("warmup skipped for dynamic input", zap.Stringer("input", info))
			return nil
		}
		dims, err := tensor.DimensionsFromShape(shape)
		if err != nil {
			return err
		}
		t, err := tensor.Create(info.ElementType, dims)
		if err != nil {
			return err
		}
		inputs = append(inputs, t)
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		outs, err := e.Execute(ctx, inputs)
		if err != nil {
			return fmt.Errorf("warmup run %d: %w", i, err)
		}
		releaseAll(outs)
	}
	e.logger.Debug("warmup complete", zap.Int("runs", n), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Stats returns run statistics summed over every stream.
func (e *Engine) Stats() Stats {
	var st Stats
	for _, s := range e.all {
		runs, total := s.stats()
		st.Runs += runs
		st.TotalTime += total
	}
	return st
}

// Close waits for in-flight runs and destroys every session. It is safe to call
// more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	for _, s := range e.all {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
