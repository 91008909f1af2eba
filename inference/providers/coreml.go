package providers

// CoreML provider flags, matching COREML_FLAG_* in the ONNX Runtime C API.
const (
	coreMLFlagUseCPUOnly       uint32 = 0x001
	coreMLFlagEnableOnSubgraph uint32 = 0x002
	coreMLFlagOnlyEnableANE    uint32 = 0x004
	coreMLFlagOnlyStaticInputs uint32 = 0x008
	coreMLFlagCreateMLProgram  uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLOptions struct {
	// Limit CoreML to running on CPU only.
	CPUOnly bool `json:"cpu_only" yaml:"cpu_only" mapstructure:"cpu_only"`
	// Run on subgraphs in the body of control flow operators.
	EnableOnSubgraphs bool `json:"enable_on_subgraphs" yaml:"enable_on_subgraphs" mapstructure:"enable_on_subgraphs"`
	// Only enable the provider on devices with an Apple Neural Engine.
	RequireANE bool `json:"require_ane" yaml:"require_ane" mapstructure:"require_ane"`
	// Only take nodes whose inputs have static shapes.
	RequireStaticInputShapes bool `json:"require_static_input_shapes" yaml:"require_static_input_shapes" mapstructure:"require_static_input_shapes"`
	// Create an MLProgram model instead of a NeuralNetwork model.
	MLProgram bool `json:"ml_program" yaml:"ml_program" mapstructure:"ml_program"`
}

// Flags packs the options into the CoreML flag word.
func (o CoreMLOptions) Flags() uint32 {
	var f uint32
	if o.CPUOnly {
		f |= coreMLFlagUseCPUOnly
	}
	if o.EnableOnSubgraphs {
		f |= coreMLFlagEnableOnSubgraph
	}
	if o.RequireANE {
		f |= coreMLFlagOnlyEnableANE
	}
	if o.RequireStaticInputShapes {
		f |= coreMLFlagOnlyStaticInputs
	}
	if o.MLProgram {
		f |= coreMLFlagCreateMLProgram
	}
	return f
}
