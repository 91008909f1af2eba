package tensor

import (
	"github.com/pkg/errors"
	gtensor "gorgonia.org/tensor"
)

// Dense returns a gorgonia dense tensor backed by t's memory without copying.
//
// The returned value aliases t: it must not outlive the handle, and writes to
// either are visible through both.
//
// Returns:
//   - *gtensor.Dense: The zero-copy view.
//   - error: ErrInvalidArgument for rank-0 or empty tensors or invalid bool
//     bytes, ErrReleased for a released handle.
func (t *Tensor) Dense() (*gtensor.Dense, error) {
	if t.released.Load() {
		return nil, ErrReleased
	}
	if t.Rank() == 0 || t.Len() == 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "cannot view %s as dense", t)
	}

	var backing interface{}
	switch t.elem {
	case Bool:
		b, err := Data[bool](t)
		if err != nil {
			return nil, err
		}
		backing = b
	case Int8:
		backing = MustData[int8](t)
	case Int16:
		backing = MustData[int16](t)
	case Int32:
		backing = MustData[int32](t)
	case Int64:
		backing = MustData[int64](t)
	case Uint8:
		backing = MustData[uint8](t)
	case Float32:
		backing = MustData[float32](t)
	case Float64:
		backing = MustData[float64](t)
	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "element type %s", t.elem)
	}

	return gtensor.New(gtensor.WithShape(t.dims.Ints()...), gtensor.WithBacking(backing)), nil
}
