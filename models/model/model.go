// Package model - Definitions shared by every detection model.
package model

import (
	"image"

	"github.com/nvr-ai/yolo-nas/images"
	"github.com/nvr-ai/yolo-nas/models/postprocess"
	"github.com/nvr-ai/yolo-nas/tensor"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyCOCO is the COCO model family (80 classes + background).
	ModelFamilyCOCO Family = "coco"
	// ModelFamilyYOLO is the YOLO model family (80 COCO classes, zero-based).
	ModelFamilyYOLO Family = "yolo"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLONASS is the small YOLO-NAS variant.
	ModelNameYOLONASS Name = "yolo_nas_s"
	// ModelNameYOLONASM is the medium YOLO-NAS variant.
	ModelNameYOLONASM Name = "yolo_nas_m"
	// ModelNameYOLONASL is the large YOLO-NAS variant.
	ModelNameYOLONASL Name = "yolo_nas_l"
)

// BaseModel describes a loaded model.
type BaseModel struct {
	Name      Name
	Family    Family
	Path      string
	Input     image.Point
	Precision Precision
}

// Model turns images into engine inputs and engine outputs into detections.
type Model interface {
	Options() BaseModel
	PreProcess(img image.Image) ([]*tensor.Tensor, images.Letterbox, error)
	PostProcess(outputs []*tensor.Tensor) ([][]postprocess.Result, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name      Name                      `json:"name" yaml:"name" mapstructure:"name"`
	Path      string                    `json:"path" yaml:"path" mapstructure:"path"`
	Family    Family                    `json:"family" yaml:"family" mapstructure:"family"`
	Width     int                       `json:"width" yaml:"width" mapstructure:"width"`
	Height    int                       `json:"height" yaml:"height" mapstructure:"height"`
	Precision Precision                 `json:"precision" yaml:"precision" mapstructure:"precision"`
	Decoder   postprocess.DecoderConfig `json:"decoder" yaml:"decoder" mapstructure:"decoder"`
	NMS       postprocess.NMSConfig     `json:"nms" yaml:"nms" mapstructure:"nms"`
}
