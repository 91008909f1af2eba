// Package postprocess - Decoding and suppression of raw detection outputs.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/yolo-nas/images"
)

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result, corner form.
	Box images.Rect
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
	// Index is the candidate row the result was decoded from. It breaks score ties.
	Index int
	// Label is the class name, when known.
	Label string
}

// Annotation converts the result into a drawable annotation labelled
// "<label> <score>".
func (r Result) Annotation() images.Annotation {
	name := r.Label
	if name == "" {
		name = fmt.Sprintf("class %d", r.Class)
	}
	return images.Annotation{
		Box:   r.Box,
		Class: r.Class,
		Text:  fmt.Sprintf("%s %.2f", name, r.Score),
	}
}

// Annotations converts a slice of results for drawing.
func Annotations(results []Result) []images.Annotation {
	out := make([]images.Annotation, len(results))
	for i, r := range results {
		out[i] = r.Annotation()
	}
	return out
}

func (r Result) String() string {
	return fmt.Sprintf("class=%d score=%.3f box=%s", r.Class, r.Score, r.Box)
}
