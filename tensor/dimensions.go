package tensor

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/pkg/errors"
)

// Dimensions is the extent of a tensor along each axis.
//
// The zero value has rank 0. A Dimensions value is immutable: constructors copy
// their input and no method mutates the receiver, so values can be shared and
// copied freely.
type Dimensions struct {
	extents []uint64
}

// NewDimensions builds dimensions from an explicit ordered list of extents.
//
// Arguments:
//   - extents: The extent of each axis, outermost first.
//
// Returns:
//   - Dimensions: A value with rank len(extents).
func NewDimensions(extents ...uint64) Dimensions {
	if len(extents) == 0 {
		return Dimensions{}
	}
	cp := make([]uint64, len(extents))
	copy(cp, extents)
	return Dimensions{extents: cp}
}

// DimensionsOfRank builds dimensions with a fixed rank and every extent unset
// (zero). Use WithExtent to fill the extents before creating a tensor.
func DimensionsOfRank(rank int) Dimensions {
	if rank <= 0 {
		return Dimensions{}
	}
	return Dimensions{extents: make([]uint64, rank)}
}

// DimensionsFromShape converts an engine shape into dimensions.
//
// Arguments:
//   - shape: Signed extents as reported by ONNX Runtime.
//
// Returns:
//   - Dimensions: The converted value.
//   - error: ErrInvalidArgument if any extent is negative (a dynamic axis).
func DimensionsFromShape(shape []int64) (Dimensions, error) {
	d := DimensionsOfRank(len(shape))
	for i, v := range shape {
		if v < 0 {
			return Dimensions{}, errors.Wrapf(ErrInvalidArgument, "axis %d has dynamic extent %d", i, v)
		}
		d.extents[i] = uint64(v)
	}
	return d, nil
}

// WithExtent returns a copy of d with the extent of axis set to v.
func (d Dimensions) WithExtent(axis int, v uint64) (Dimensions, error) {
	if axis < 0 || axis >= len(d.extents) {
		return Dimensions{}, errors.Wrapf(ErrOutOfRange, "axis %d, rank %d", axis, len(d.extents))
	}
	out := NewDimensions(d.extents...)
	out.extents[axis] = v
	return out, nil
}

// At returns the extent of the given axis.
//
// Arguments:
//   - axis: Zero-based axis index.
//
// Returns:
//   - uint64: The extent.
//   - error: ErrOutOfRange if axis is not in [0, rank).
func (d Dimensions) At(axis int) (uint64, error) {
	if axis < 0 || axis >= len(d.extents) {
		return 0, errors.Wrapf(ErrOutOfRange, "axis %d, rank %d", axis, len(d.extents))
	}
	return d.extents[axis], nil
}

// Rank returns the number of axes.
func (d Dimensions) Rank() int {
	return len(d.extents)
}

// CheckedTotal returns the product of all extents, failing instead of wrapping
// when the product does not fit in 64 bits. Rank 0 yields 0.
func (d Dimensions) CheckedTotal() (uint64, error) {
	if len(d.extents) == 0 {
		return 0, nil
	}
	total := uint64(1)
	for i, e := range d.extents {
		hi, lo := bits.Mul64(total, e)
		if hi != 0 {
			return 0, errors.Wrapf(ErrOutOfMemory, "element count overflows at axis %d of %s", i, d)
		}
		total = lo
	}
	return total, nil
}

// TotalNumElements returns d[0] * d[1] * ... * d[rank-1], or 0 for rank 0.
// It panics if the product overflows 64 bits; use CheckedTotal to get an error.
func (d Dimensions) TotalNumElements() uint64 {
	n, err := d.CheckedTotal()
	if err != nil {
		panic(err)
	}
	return n
}

// Equal reports whether d and o have the same rank and extents.
func (d Dimensions) Equal(o Dimensions) bool {
	if len(d.extents) != len(o.extents) {
		return false
	}
	for i := range d.extents {
		if d.extents[i] != o.extents[i] {
			return false
		}
	}
	return true
}

// Extents returns a copy of the extents.
func (d Dimensions) Extents() []uint64 {
	return NewDimensions(d.extents...).extents
}

// Int64s returns the extents as a signed shape suitable for ONNX Runtime.
func (d Dimensions) Int64s() []int64 {
	out := make([]int64, len(d.extents))
	for i, e := range d.extents {
		out[i] = int64(e)
	}
	return out
}

// Ints returns the extents as ints, the shape type used by gorgonia.
func (d Dimensions) Ints() []int {
	out := make([]int, len(d.extents))
	for i, e := range d.extents {
		out[i] = int(e)
	}
	return out
}

func (d Dimensions) String() string {
	parts := make([]string, len(d.extents))
	for i, e := range d.extents {
		parts[i] = fmt.Sprintf("%d", e)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
