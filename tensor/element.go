// Package tensor - Typed, shape-aware views over engine-bound memory.
package tensor

import "fmt"

// ElementType is the tag describing what a tensor element is.
type ElementType int

// Supported element types. Invalid is the zero value and is rejected by every
// constructor.
const (
	Invalid ElementType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Float32
	Float64
)

// Element is the set of Go types a Tensor can be viewed as.
type Element interface {
	bool | int8 | int16 | int32 | int64 | uint8 | float32 | float64
}

// Size returns the number of bytes a single element occupies, or 0 for Invalid
// and unknown tags.
func (e ElementType) Size() int {
	switch e {
	case Bool, Int8, Uint8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether e names a concrete element type.
func (e ElementType) Valid() bool {
	return e.Size() > 0
}

// String returns the lowercase name of the element type.
func (e ElementType) String() string {
	switch e {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("element_type(%d)", int(e))
	}
}

// ElementTypeOf returns the tag matching the Go type T.
func ElementTypeOf[T Element]() ElementType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Invalid
}
