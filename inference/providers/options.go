package providers

import (
	"fmt"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// GraphOptimization names an ONNX Runtime graph optimization level.
type GraphOptimization string

const (
	// GraphOptimizationDisabled disables all graph rewrites.
	GraphOptimizationDisabled GraphOptimization = "disabled"
	// GraphOptimizationBasic enables redundant node removal and constant folding.
	GraphOptimizationBasic GraphOptimization = "basic"
	// GraphOptimizationExtended adds node fusions.
	GraphOptimizationExtended GraphOptimization = "extended"
	// GraphOptimizationAll adds layout optimizations.
	GraphOptimizationAll GraphOptimization = "all"
)

// Level returns the ONNX Runtime level for g. The empty value maps to extended.
func (g GraphOptimization) Level() (ort.GraphOptimizationLevel, error) {
	switch GraphOptimization(strings.ToLower(string(g))) {
	case GraphOptimizationDisabled:
		return ort.GraphOptimizationLevelDisableAll, nil
	case GraphOptimizationBasic:
		return ort.GraphOptimizationLevelEnableBasic, nil
	case GraphOptimizationExtended, "":
		return ort.GraphOptimizationLevelEnableExtended, nil
	case GraphOptimizationAll:
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, fmt.Errorf("unknown graph optimization level: %s", g)
	}
}

// Options configures an ONNX Runtime session.
type Options struct {
	// Backend selects the execution provider. The empty value is CPU.
	Backend ProviderBackend
	// IntraOpNumThreads sets threads for parallelizing ops. 0 lets the runtime decide.
	IntraOpNumThreads int
	// InterOpNumThreads sets threads for parallelizing independent ops. 0 lets the
	// runtime decide.
	InterOpNumThreads int
	// Parallel runs independent graph branches concurrently.
	Parallel bool
	// GraphOptimization controls the level of graph optimization.
	GraphOptimization GraphOptimization
	// CUDA holds options used when Backend is CUDAProviderBackend.
	CUDA CUDAOptions
	// CoreML holds options used when Backend is CoreMLProviderBackend.
	CoreML CoreMLOptions
	// OpenVINO holds options used when Backend is OpenVINOProviderBackend.
	OpenVINO OpenVINOOptions
}

// Validate checks the options without touching the runtime.
func (o Options) Validate() error {
	if o.Backend != "" {
		if _, err := ParseBackend(string(o.Backend)); err != nil {
			return err
		}
	}
	if o.IntraOpNumThreads < 0 || o.InterOpNumThreads < 0 {
		return fmt.Errorf("thread counts must not be negative: intra=%d inter=%d",
			o.IntraOpNumThreads, o.InterOpNumThreads)
	}
	if _, err := o.GraphOptimization.Level(); err != nil {
		return err
	}
	return nil
}

// SessionOptions builds ONNX Runtime session options. The caller must Destroy
// the result.
//
// Order of operations:
//  1. Threading: intra-op and inter-op pools.
//  2. Execution mode: sequential or parallel graph execution.
//  3. Graph optimization level.
//  4. Execution provider, when not CPU.
//
// Arguments:
//   - o: The session configuration.
//   - logger: Receives provider setup messages. May be nil.
//
// Returns:
//   - *ort.SessionOptions: Configured session options.
//   - error: Configuration error if any.
func SessionOptions(o Options, logger *zap.Logger) (*ort.SessionOptions, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if err := configure(options, o, logger); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func configure(options *ort.SessionOptions, o Options, logger *zap.Logger) error {
	if err := options.SetIntraOpNumThreads(o.IntraOpNumThreads); err != nil {
		return fmt.Errorf("set intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(o.InterOpNumThreads); err != nil {
		return fmt.Errorf("set inter-op threads: %w", err)
	}

	if err := options.SetExecutionMode(executionMode(o.Parallel)); err != nil {
		return fmt.Errorf("set execution mode: %w", err)
	}

	level, err := o.GraphOptimization.Level()
	if err != nil {
		return err
	}
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		return fmt.Errorf("set graph optimization level: %w", err)
	}

	backend, err := ParseBackend(string(o.Backend))
	if err != nil {
		return err
	}
	switch backend {
	case CUDAProviderBackend:
		err = appendCUDA(options, o.CUDA)
	case CoreMLProviderBackend:
		err = options.AppendExecutionProviderCoreML(o.CoreML.Flags())
	case OpenVINOProviderBackend:
		err = options.AppendExecutionProviderOpenVINO(o.OpenVINO.Map())
	}
	if err != nil {
		return fmt.Errorf("error enabling %s: %w", backend, err)
	}

	logger.Debug("session options configured",
		zap.String("backend", string(backend)),
		zap.Int("intra_op_threads", o.IntraOpNumThreads),
		zap.Int("inter_op_threads", o.InterOpNumThreads),
		zap.Bool("parallel", o.Parallel),
		zap.String("graph_optimization", string(o.GraphOptimization)),
	)
	return nil
}

// executionMode maps the parallel flag onto the runtime's execution mode.
func executionMode(parallel bool) ort.ExecutionMode {
	if parallel {
		return ort.ExecutionModeParallel
	}
	return ort.ExecutionModeSequential
}
