package postprocess

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/yolo-nas/images"
	"github.com/nvr-ai/yolo-nas/tensor"
)

// BoxCoords is the number of regressed values per candidate (x1, y1, x2, y2).
const BoxCoords = 4

// DecoderConfig defines parameters for turning raw rows into candidates.
type DecoderConfig struct {
	// ScoreThreshold drops candidates whose best class score is below it.
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold" mapstructure:"score_threshold"`
	// MultiLabel emits one candidate per class above the threshold instead of
	// only the best class.
	MultiLabel bool `json:"multi_label" yaml:"multi_label" mapstructure:"multi_label"`
}

// Decoder converts box and class-score buffers into candidate results.
// A Decoder is immutable and safe for concurrent use.
type Decoder struct {
	cfg DecoderConfig
}

// NewDecoder validates cfg and returns a decoder.
//
// Arguments:
//   - cfg: The decoder configuration.
//
// Returns:
//   - *Decoder: The decoder.
//   - error: ErrInvalidConfig if the score threshold is outside [0, 1].
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	if !(cfg.ScoreThreshold >= 0 && cfg.ScoreThreshold <= 1) {
		return nil, errors.Wrapf(ErrInvalidConfig, "score threshold %v not in [0, 1]", cfg.ScoreThreshold)
	}
	return &Decoder{cfg: cfg}, nil
}

// Config returns the decoder configuration.
func (d *Decoder) Config() DecoderConfig {
	return d.cfg
}

// DecodeRaw decodes one image worth of candidates.
//
// Row i of boxes is boxes[4i:4i+4] as (x1, y1, x2, y2) and row i of scores is
// scores[i*numClasses:(i+1)*numClasses]. For each row the arg-max class is
// selected (the lowest class index wins a tie) and the row is dropped when that
// score is below the threshold. Results keep row order.
//
// Arguments:
//   - boxes: Flattened [N, 4] box coordinates.
//   - scores: Flattened [N, numClasses] class scores.
//   - numClasses: The number of classes per row.
//
// Returns:
//   - []Result: The candidates, empty (not nil) when nothing passes.
//   - error: ErrShapeMismatch when the buffers do not describe the same N rows.
func (d *Decoder) DecodeRaw(boxes, scores []float32, numClasses int) ([]Result, error) {
	if numClasses <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d classes", numClasses)
	}
	if len(boxes)%BoxCoords != 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d box values is not a multiple of %d", len(boxes), BoxCoords)
	}
	rows := len(boxes) / BoxCoords
	if len(scores) != rows*numClasses {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"%d boxes need %d scores for %d classes, got %d", rows, rows*numClasses, numClasses, len(scores))
	}

	out := make([]Result, 0)
	for i := 0; i < rows; i++ {
		row := scores[i*numClasses : (i+1)*numClasses]
		b := boxes[i*BoxCoords : (i+1)*BoxCoords]
		box := images.Rect{X1: b[0], Y1: b[1], X2: b[2], Y2: b[3]}

		if d.cfg.MultiLabel {
			for c, s := range row {
				if s >= d.cfg.ScoreThreshold {
					out = append(out, Result{Box: box, Score: s, Class: c, Index: i})
				}
			}
			continue
		}

		best := 0
		for c := 1; c < numClasses; c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		// written as a negation so NaN scores are dropped
		if !(row[best] >= d.cfg.ScoreThreshold) {
			continue
		}
		out = append(out, Result{Box: box, Score: row[best], Class: best, Index: i})
	}
	return out, nil
}

// Decode decodes engine output tensors.
//
// Accepted layouts are boxes [N, 4] with scores [N, C] for a single image, or
// boxes [B, N, 4] with scores [B, N, C] for a batch. Both must be float32.
//
// Arguments:
//   - boxes: The box tensor.
//   - scores: The class score tensor.
//
// Returns:
//   - [][]Result: Candidates per batch item (one item for rank-2 input).
//   - error: ErrShapeMismatch for unsupported or inconsistent shapes.
func (d *Decoder) Decode(boxes, scores *tensor.Tensor) ([][]Result, error) {
	if boxes == nil || scores == nil {
		return nil, errors.Wrap(ErrShapeMismatch, "nil tensor")
	}
	if boxes.Rank() != scores.Rank() || (boxes.Rank() != 2 && boxes.Rank() != 3) {
		return nil, errors.Wrapf(ErrShapeMismatch, "boxes %s, scores %s", boxes.Dims(), scores.Dims())
	}

	bd, sd := boxes.Dims().Extents(), scores.Dims().Extents()
	if boxes.Rank() == 2 {
		bd = append([]uint64{1}, bd...)
		sd = append([]uint64{1}, sd...)
	}
	if bd[0] != sd[0] || bd[1] != sd[1] || bd[2] != BoxCoords {
		return nil, errors.Wrapf(ErrShapeMismatch, "boxes %s, scores %s", boxes.Dims(), scores.Dims())
	}

	bv, err := tensor.Data[float32](boxes)
	if err != nil {
		return nil, errors.Wrap(err, "boxes")
	}
	sv, err := tensor.Data[float32](scores)
	if err != nil {
		return nil, errors.Wrap(err, "scores")
	}

	batch, rows, classes := int(bd[0]), int(bd[1]), int(sd[2])
	out := make([][]Result, batch)
	for b := 0; b < batch; b++ {
		bs := bv[b*rows*BoxCoords : (b+1)*rows*BoxCoords]
		ss := sv[b*rows*classes : (b+1)*rows*classes]
		if out[b], err = d.DecodeRaw(bs, ss, classes); err != nil {
			return nil, errors.Wrapf(err, "batch item %d", b)
		}
	}
	return out, nil
}
