package model

import "fmt"

// Precision represents the numeric precision a model was exported with.
type Precision string

const (
	// PrecisionFP32 is a float model taking [0, 1] scaled input.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 is a half-precision model. Inputs are still fed as float32.
	PrecisionFP16 Precision = "FP16"
	// PrecisionINT8 is a quantized model taking raw uint8 input.
	PrecisionINT8 Precision = "INT8"
)

// Quantized reports whether the model takes uint8 input.
func (p Precision) Quantized() bool {
	return p == PrecisionINT8
}

// Validate accepts the empty value as FP32.
func (p Precision) Validate() error {
	switch p {
	case "", PrecisionFP32, PrecisionFP16, PrecisionINT8:
		return nil
	default:
		return fmt.Errorf("unsupported precision %q", string(p))
	}
}
