// Package inference - ONNX Runtime engine executing models over aligned tensors.
package inference

import (
	"errors"
	"fmt"

	"github.com/nvr-ai/yolo-nas/inference/providers"
)

var (
	// ErrInvalidConfig is returned when an engine configuration cannot be used.
	ErrInvalidConfig = errors.New("inference: invalid config")
	// ErrInputMismatch is returned when inputs do not match the model signature.
	ErrInputMismatch = errors.New("inference: input mismatch")
	// ErrClosed is returned by Execute after Close.
	ErrClosed = errors.New("inference: engine closed")
)

// Scheduler selects how concurrent requests share the machine.
type Scheduler string

const (
	// SchedulerSingleStream runs one request at a time with every thread.
	SchedulerSingleStream Scheduler = "single_stream"
	// SchedulerMultiStream runs NumStreams requests at once, splitting the
	// threads between them.
	SchedulerMultiStream Scheduler = "multi_stream"
	// SchedulerElastic runs NumStreams requests at once, each free to use every
	// thread and to execute independent graph branches in parallel.
	SchedulerElastic Scheduler = "elastic"
)

// Config describes how to load and run a model.
type Config struct {
	// ModelPath is the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path" mapstructure:"model_path"`
	// SharedLibraryPath is the ONNX Runtime library. Empty falls back to
	// $ONNXRUNTIME_SHARED_LIBRARY_PATH and then the platform default.
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path" mapstructure:"shared_library_path"`
	// BatchSize is the largest batch a single Execute may carry.
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	// NumThreads bounds the threads used for inference. 0 lets the runtime decide.
	NumThreads int `json:"num_threads" yaml:"num_threads" mapstructure:"num_threads"`
	// NumStreams is the number of sessions, and so of concurrent Execute calls.
	NumStreams int `json:"num_streams" yaml:"num_streams" mapstructure:"num_streams"`
	// Scheduler is single_stream, multi_stream or elastic.
	Scheduler Scheduler `json:"scheduler" yaml:"scheduler" mapstructure:"scheduler"`
	// Provider is the execution provider backend.
	Provider providers.ProviderBackend `json:"provider" yaml:"provider" mapstructure:"provider"`
	// GraphOptimization is the graph optimization level.
	GraphOptimization providers.GraphOptimization `json:"graph_optimization" yaml:"graph_optimization" mapstructure:"graph_optimization"`
	// Warmup is the number of inference runs performed during initialization
	// when the model inputs have static shapes.
	Warmup int `json:"warmup" yaml:"warmup" mapstructure:"warmup"`

	CUDA     providers.CUDAOptions     `json:"cuda" yaml:"cuda" mapstructure:"cuda"`
	CoreML   providers.CoreMLOptions   `json:"coreml" yaml:"coreml" mapstructure:"coreml"`
	OpenVINO providers.OpenVINOOptions `json:"openvino" yaml:"openvino" mapstructure:"openvino"`
}

// DefaultConfig returns a single-stream CPU configuration for modelPath.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:         modelPath,
		BatchSize:         1,
		NumThreads:        1,
		NumStreams:        1,
		Scheduler:         SchedulerSingleStream,
		Provider:          providers.CPUProviderBackend,
		GraphOptimization: providers.GraphOptimizationExtended,
	}
}

// Validate checks the configuration without touching the runtime.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("%w: model path is required", ErrInvalidConfig)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.NumThreads < 0 {
		return fmt.Errorf("%w: num threads %d", ErrInvalidConfig, c.NumThreads)
	}
	if c.NumStreams < 1 {
		return fmt.Errorf("%w: num streams %d", ErrInvalidConfig, c.NumStreams)
	}
	if c.Warmup < 0 {
		return fmt.Errorf("%w: warmup %d", ErrInvalidConfig, c.Warmup)
	}
	switch c.Scheduler {
	case SchedulerSingleStream, SchedulerMultiStream, SchedulerElastic:
	default:
		return fmt.Errorf("%w: unknown scheduler %q", ErrInvalidConfig, c.Scheduler)
	}
	if err := c.SessionOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Streams returns the number of sessions the engine creates. single_stream
// always uses one.
func (c Config) Streams() int {
	if c.Scheduler == SchedulerSingleStream || c.NumStreams < 1 {
		return 1
	}
	return c.NumStreams
}

// SessionOptions maps the scheduler onto per-session runtime options.
func (c Config) SessionOptions() providers.Options {
	o := providers.Options{
		Backend:           c.Provider,
		IntraOpNumThreads: c.NumThreads,
		GraphOptimization: c.GraphOptimization,
		CUDA:              c.CUDA,
		CoreML:            c.CoreML,
		OpenVINO:          c.OpenVINO,
	}
	switch c.Scheduler {
	case SchedulerMultiStream:
		if c.NumThreads > 0 {
			o.IntraOpNumThreads = max(1, c.NumThreads/c.Streams())
		}
	case SchedulerElastic:
		o.Parallel = true
	}
	return o
}
