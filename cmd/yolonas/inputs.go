package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvr-ai/yolo-nas/images"
)

// collectInputs expands each argument into the image files it names. A
// directory contributes every supported image directly inside it, in name
// order. Files with an unknown extension are rejected.
func collectInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if !info.IsDir() {
			if _, ok := images.FormatFromPath(arg); !ok {
				return nil, fmt.Errorf("input %s: unsupported image format", arg)
			}
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, ok := images.FormatFromPath(e.Name()); ok {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

// outputPath names the annotated copy of src inside dir, keeping the format.
func outputPath(dir, src string) string {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+"_detections"+ext)
}
