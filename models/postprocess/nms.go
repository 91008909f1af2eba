package postprocess

import (
	"slices"
	"sort"

	"github.com/pkg/errors"

	"github.com/nvr-ai/yolo-nas/images"
)

const (
	// DefaultMaxCandidatesPerClass is the per-class pre-suppression cap.
	DefaultMaxCandidatesPerClass = 1000
	// DefaultMaxDetections is the cap on the number of results returned.
	DefaultMaxDetections = 300
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold suppresses a candidate whose IoU with a kept box of the same
	// class is at or above it.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold" mapstructure:"iou_threshold"`
	// MaxCandidatesPerClass bounds how many of each class's best candidates are
	// considered. 0 means unlimited.
	MaxCandidatesPerClass int `json:"max_candidates_per_class" yaml:"max_candidates_per_class" mapstructure:"max_candidates_per_class"`
	// MaxDetections bounds the total number of results. 0 means unlimited.
	MaxDetections int `json:"max_detections" yaml:"max_detections" mapstructure:"max_detections"`
	// ClassAgnostic suppresses across classes as if all candidates shared one.
	ClassAgnostic bool `json:"class_agnostic" yaml:"class_agnostic" mapstructure:"class_agnostic"`
}

// DefaultNMSConfig returns the configuration used by YOLO-NAS exports.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{
		IoUThreshold:          0.5,
		MaxCandidatesPerClass: DefaultMaxCandidatesPerClass,
		MaxDetections:         DefaultMaxDetections,
	}
}

// NMS performs greedy per-class Non-Maximum Suppression. It is immutable and
// safe for concurrent use.
type NMS struct {
	cfg NMSConfig
}

// NewNMS validates cfg and returns a suppressor.
//
// Arguments:
//   - cfg: The NMS configuration.
//
// Returns:
//   - *NMS: The suppressor.
//   - error: ErrInvalidConfig if the IoU threshold is outside [0, 1] or a cap
//     is negative.
func NewNMS(cfg NMSConfig) (*NMS, error) {
	if !(cfg.IoUThreshold >= 0 && cfg.IoUThreshold <= 1) {
		return nil, errors.Wrapf(ErrInvalidConfig, "iou threshold %v not in [0, 1]", cfg.IoUThreshold)
	}
	if cfg.MaxCandidatesPerClass < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "max candidates per class %d", cfg.MaxCandidatesPerClass)
	}
	if cfg.MaxDetections < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "max detections %d", cfg.MaxDetections)
	}
	return &NMS{cfg: cfg}, nil
}

// Config returns the NMS configuration.
func (n *NMS) Config() NMSConfig {
	return n.cfg
}

// Apply filters overlapping candidates.
//
// Classes are processed independently in ascending order. Within a class,
// candidates are ordered by descending score (the lower Index wins a tie),
// truncated to MaxCandidatesPerClass, and walked greedily: a candidate is kept
// when its IoU with every kept box is below the threshold. The merged result is
// ordered the same way and truncated to MaxDetections.
//
// Arguments:
//   - candidates: Decoded candidates. The slice is not modified.
//
// Returns:
//   - []Result: The kept results, highest score first. Empty, never nil.
func (n *NMS) Apply(candidates []Result) []Result {
	if len(candidates) == 0 {
		return []Result{}
	}

	groups := make(map[int][]Result)
	for _, c := range candidates {
		key := c.Class
		if n.cfg.ClassAgnostic {
			key = 0
		}
		groups[key] = append(groups[key], c)
	}

	classes := make([]int, 0, len(groups))
	for k := range groups {
		classes = append(classes, k)
	}
	slices.Sort(classes)

	kept := make([]Result, 0, len(candidates))
	for _, class := range classes {
		kept = append(kept, n.suppress(groups[class])...)
	}

	sortByScore(kept)
	if n.cfg.MaxDetections > 0 && len(kept) > n.cfg.MaxDetections {
		kept = kept[:n.cfg.MaxDetections]
	}
	return kept
}

// suppress runs greedy NMS over the candidates of one class. group is reordered
// in place.
func (n *NMS) suppress(group []Result) []Result {
	sortByScore(group)
	if n.cfg.MaxCandidatesPerClass > 0 && len(group) > n.cfg.MaxCandidatesPerClass {
		group = group[:n.cfg.MaxCandidatesPerClass]
	}

	kept := make([]Result, 0, len(group))
	for _, c := range group {
		if n.cfg.MaxDetections > 0 && len(kept) >= n.cfg.MaxDetections {
			break
		}
		if n.overlapsAny(c.Box, kept) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func (n *NMS) overlapsAny(box images.Rect, kept []Result) bool {
	for _, k := range kept {
		if images.CalculateIoU(box, k.Box) >= n.cfg.IoUThreshold {
			return true
		}
	}
	return false
}

func sortByScore(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		return rs[i].Index < rs[j].Index
	})
}

// Filter decodes and suppresses one image worth of raw outputs.
//
// Arguments:
//   - boxes: Flattened [N, 4] corner-form boxes.
//   - scores: Flattened [N, numClasses] class scores.
//   - numClasses: The number of classes per row.
//   - dcfg: The decoder configuration.
//   - ncfg: The NMS configuration.
//
// Returns:
//   - []Result: The final detections, highest score first.
//   - error: ErrInvalidConfig or ErrShapeMismatch.
func Filter(boxes, scores []float32, numClasses int, dcfg DecoderConfig, ncfg NMSConfig) ([]Result, error) {
	dec, err := NewDecoder(dcfg)
	if err != nil {
		return nil, err
	}
	nms, err := NewNMS(ncfg)
	if err != nil {
		return nil, err
	}
	candidates, err := dec.DecodeRaw(boxes, scores, numClasses)
	if err != nil {
		return nil, err
	}
	return nms.Apply(candidates), nil
}
