// Package providers - ONNX Runtime session options and execution providers.
package providers

import (
	"fmt"
	"strings"
)

// ProviderBackend names an ONNX Runtime execution provider.
type ProviderBackend string

const (
	// CPUProviderBackend uses the default CPU execution provider.
	CPUProviderBackend ProviderBackend = "cpu"
	// CUDAProviderBackend uses NVIDIA CUDA for inference optimization.
	CUDAProviderBackend ProviderBackend = "cuda"
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// Backends lists every supported backend.
var Backends = []ProviderBackend{
	CPUProviderBackend,
	CUDAProviderBackend,
	CoreMLProviderBackend,
	OpenVINOProviderBackend,
}

// ParseBackend resolves a backend name, case-insensitively. The empty string
// selects the CPU backend.
//
// Arguments:
//   - name: The backend name.
//
// Returns:
//   - ProviderBackend: The backend.
//   - error: An error if the name is unknown.
func ParseBackend(name string) (ProviderBackend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return CPUProviderBackend, nil
	}
	for _, b := range Backends {
		if string(b) == name {
			return b, nil
		}
	}
	return "", fmt.Errorf("no matching provider backend registered: %s", name)
}
