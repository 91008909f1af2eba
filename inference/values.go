package inference

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/yolo-nas/tensor"
)

// TensorInfo describes one model input or output.
type TensorInfo struct {
	// Name is the graph node name.
	Name string
	// Shape holds one extent per axis; negative extents are dynamic.
	Shape []int64
	// ElementType is the element type. Invalid for types the engine cannot carry.
	ElementType tensor.ElementType
}

// Static reports whether every extent is known.
func (i TensorInfo) Static() bool {
	for _, d := range i.Shape {
		if d < 0 {
			return false
		}
	}
	return true
}

func (i TensorInfo) String() string {
	return fmt.Sprintf("%s%v:%s", i.Name, i.Shape, i.ElementType)
}

// ortElement is the set of element types shared by tensor and onnxruntime_go.
type ortElement interface {
	int8 | int16 | int32 | int64 | uint8 | float32 | float64
}

func elementTypeFromOrt(t ort.TensorElementDataType) tensor.ElementType {
	switch t {
	case ort.TensorElementDataTypeFloat:
		return tensor.Float32
	case ort.TensorElementDataTypeDouble:
		return tensor.Float64
	case ort.TensorElementDataTypeUint8:
		return tensor.Uint8
	case ort.TensorElementDataTypeInt8:
		return tensor.Int8
	case ort.TensorElementDataTypeInt16:
		return tensor.Int16
	case ort.TensorElementDataTypeInt32:
		return tensor.Int32
	case ort.TensorElementDataTypeInt64:
		return tensor.Int64
	case ort.TensorElementDataTypeBool:
		return tensor.Bool
	default:
		return tensor.Invalid
	}
}

func tensorInfos(infos []ort.InputOutputInfo) []TensorInfo {
	out := make([]TensorInfo, len(infos))
	for i, info := range infos {
		out[i] = TensorInfo{
			Name:        info.Name,
			Shape:       append([]int64(nil), info.Dimensions...),
			ElementType: elementTypeFromOrt(info.DataType),
		}
	}
	return out
}

// validateInputs checks inputs against the model signature. Dynamic extents
// accept any value; a dynamic leading extent is the batch and is bounded by
// maxBatch.
func validateInputs(infos []TensorInfo, inputs []*tensor.Tensor, maxBatch int) error {
	if len(inputs) != len(infos) {
		return fmt.Errorf("%w: got %d inputs, model takes %d", ErrInputMismatch, len(inputs), len(infos))
	}
	for i, in := range inputs {
		info := infos[i]
		if in == nil || in.Released() {
			return fmt.Errorf("%w: input %s is nil or released", ErrInputMismatch, info.Name)
		}
		if in.ElementType() != info.ElementType {
			return fmt.Errorf("%w: input %s is %s, model expects %s",
				ErrInputMismatch, info.Name, in.ElementType(), info.ElementType)
		}
		if in.ElementType() == tensor.Bool {
			return fmt.Errorf("%w: input %s: bool tensors are not supported", ErrInputMismatch, info.Name)
		}
		dims := in.Dims().Int64s()
		if len(dims) != len(info.Shape) {
			return fmt.Errorf("%w: input %s has shape %s, model expects %v",
				ErrInputMismatch, info.Name, in.Dims(), info.Shape)
		}
		for axis, want := range info.Shape {
			if want >= 0 && dims[axis] != want {
				return fmt.Errorf("%w: input %s has shape %s, model expects %v",
					ErrInputMismatch, info.Name, in.Dims(), info.Shape)
			}
		}
		if len(info.Shape) > 0 && info.Shape[0] < 0 && maxBatch > 0 && dims[0] > int64(maxBatch) {
			return fmt.Errorf("%w: input %s batch %d exceeds %d",
				ErrInputMismatch, info.Name, dims[0], maxBatch)
		}
	}
	return nil
}

// resolveShape substitutes batch for a dynamic leading extent. It reports false
// when other extents stay unknown.
func resolveShape(shape []int64, batch int64) ([]int64, bool) {
	out := append([]int64(nil), shape...)
	for axis, d := range out {
		if d >= 0 {
			continue
		}
		if axis != 0 || batch <= 0 {
			return nil, false
		}
		out[axis] = batch
	}
	return out, true
}

// newValue wraps t as an onnxruntime tensor sharing its memory.
func newValue(t *tensor.Tensor) (ort.Value, error) {
	switch t.ElementType() {
	case tensor.Float32:
		return wrapValue[float32](t)
	case tensor.Float64:
		return wrapValue[float64](t)
	case tensor.Uint8:
		return wrapValue[uint8](t)
	case tensor.Int8:
		return wrapValue[int8](t)
	case tensor.Int16:
		return wrapValue[int16](t)
	case tensor.Int32:
		return wrapValue[int32](t)
	case tensor.Int64:
		return wrapValue[int64](t)
	default:
		return nil, fmt.Errorf("%w: unsupported element type %s", ErrInputMismatch, t.ElementType())
	}
}

func wrapValue[T ortElement](t *tensor.Tensor) (ort.Value, error) {
	data, err := tensor.Data[T](t)
	if err != nil {
		return nil, err
	}
	return ort.NewTensor(ort.NewShape(t.Dims().Int64s()...), data)
}

// copyValue copies a runtime-allocated output into a new aligned tensor.
func copyValue(v ort.Value) (*tensor.Tensor, error) {
	switch o := v.(type) {
	case *ort.Tensor[float32]:
		return copyData(o.GetShape(), o.GetData())
	case *ort.Tensor[float64]:
		return copyData(o.GetShape(), o.GetData())
	case *ort.Tensor[uint8]:
		return copyData(o.GetShape(), o.GetData())
	case *ort.Tensor[int8]:
		return copyData(o.GetShape(), o.GetData())
	case *ort.Tensor[int16]:
		return copyData(o.GetShape(), o.GetData())
	case *ort.Tensor[int32]:
		return copyData(o.GetShape(), o.GetData())
	case *ort.Tensor[int64]:
		return copyData(o.GetShape(), o.GetData())
	default:
		return nil, fmt.Errorf("unsupported output value %T", v)
	}
}

func copyData[T ortElement](shape ort.Shape, data []T) (*tensor.Tensor, error) {
	dims, err := tensor.DimensionsFromShape(shape)
	if err != nil {
		return nil, err
	}
	out, err := tensor.Create(tensor.ElementTypeOf[T](), dims)
	if err != nil {
		return nil, err
	}
	copy(tensor.MustData[T](out), data)
	return out, nil
}
