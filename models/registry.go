package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/yolo-nas/models/model"
	"github.com/nvr-ai/yolo-nas/models/yolonas"
)

// ErrUnsupportedModel is returned by NewModel for unknown model names.
var ErrUnsupportedModel = errors.New("unsupported model")

// NewModel creates a new detection model instance based on the specified model name.
//
// Every YOLO-NAS size shares one input/output layout, so the name only selects
// defaults and is recorded for logging.
//
// Arguments:
//   - args: Configuration parameters specifying the model name, location and thresholds.
//
// Returns:
//   - *yolonas.Model: A configured model.
//   - error: ErrUnsupportedModel, or a validation error from the model constructor.
//
// Example:
//
// ```go
//
//	args := yolonas.DefaultArgs(model.ModelNameYOLONASS, "/models/yolo_nas_s.onnx")
//	m, err := models.NewModel(args)
//	if err != nil {
//	    log.Fatalf("create model: %v", err)
//	}
//
// ```
func NewModel(args model.NewModelArgs) (*yolonas.Model, error) {
	switch args.Name {
	case model.ModelNameYOLONASS, model.ModelNameYOLONASM, model.ModelNameYOLONASL:
		return yolonas.NewModel(args)
	default:
		return nil, errors.Wrapf(ErrUnsupportedModel, "%q", args.Name)
	}
}

// Names lists the supported model names.
func Names() []model.Name {
	return []model.Name{model.ModelNameYOLONASS, model.ModelNameYOLONASM, model.ModelNameYOLONASL}
}

// LabelsFor returns the ordered class names for a model family, or nil if the
// family has no registered set.
func LabelsFor(family model.Family) []string {
	set, err := DefaultClassManager().Set(family)
	if err != nil {
		return nil
	}
	return set.Names()
}
