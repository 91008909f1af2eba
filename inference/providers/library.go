package providers

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// LibraryPathEnv names the environment variable consulted for the ONNX Runtime
// shared library when no explicit path is configured.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// DefaultSharedLibPath returns the conventional location of the shared library
// for the current platform, relative to the working directory.
//
// Returns:
//   - string: The path, or "" when the platform has no known build.
func DefaultSharedLibPath() string {
	return sharedLibPath(runtime.GOOS, runtime.GOARCH)
}

func sharedLibPath(goos, goarch string) string {
	dir := "third_party"
	switch goos {
	case "windows":
		if goarch == "amd64" {
			return filepath.Join(dir, "onnxruntime.dll")
		}
	case "darwin":
		return filepath.Join(dir, "libonnxruntime.dylib")
	case "linux":
		if goarch == "arm64" {
			return filepath.Join(dir, "onnxruntime_arm64.so")
		}
		return filepath.Join(dir, "onnxruntime.so")
	}
	return ""
}

// ResolveSharedLibPath picks the ONNX Runtime shared library to load: the
// explicit path if set, then $ONNXRUNTIME_SHARED_LIBRARY_PATH, then the platform
// default. The chosen file must exist.
//
// Arguments:
//   - explicit: A configured path, or "".
//
// Returns:
//   - string: The library path.
//   - error: An error if no candidate exists on disk.
func ResolveSharedLibPath(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = os.Getenv(LibraryPathEnv)
	}
	if path == "" {
		path = DefaultSharedLibPath()
	}
	if path == "" {
		return "", fmt.Errorf("no onnxruntime shared library known for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("ONNX Runtime library not found at %s: %w", path, err)
	}
	return path, nil
}
