package tensor

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// MinAlignment is the byte alignment every engine-bound buffer must satisfy.
// 64 bytes covers a cache line and the widest SIMD loads ONNX Runtime issues on
// x86-64 and arm64.
const MinAlignment = 64

// ReleaseFunc is invoked with the original buffer when the last handle to a
// wrapped tensor is released.
type ReleaseFunc func(buf []byte)

// storage is the reference-counted block shared by every handle of a tensor.
type storage struct {
	buf     []byte
	refs    atomic.Int64
	release ReleaseFunc
}

func (s *storage) drop() {
	if s.refs.Add(-1) == 0 && s.release != nil {
		s.release(s.buf)
	}
}

// Tensor is a handle to a typed multidimensional array.
//
// Element type and dimensions are fixed at construction. Handles produced by
// Retain share storage; the storage's release callback runs once, after the
// last handle has been released. A Tensor must not be mutated while an engine
// call that references it is in flight.
type Tensor struct {
	elem     ElementType
	dims     Dimensions
	store    *storage
	released atomic.Bool
}

// RequiredBytes returns the minimal number of bytes needed to hold a tensor of
// the given element type and dimensions, not counting alignment padding.
//
// Arguments:
//   - elem: The element type.
//   - dims: The tensor shape.
//
// Returns:
//   - uint64: elem.Size() * dims.TotalNumElements().
//   - error: ErrInvalidArgument for an invalid type, ErrOutOfMemory on overflow.
func RequiredBytes(elem ElementType, dims Dimensions) (uint64, error) {
	if !elem.Valid() {
		return 0, errors.Wrapf(ErrInvalidArgument, "element type %s", elem)
	}
	n, err := dims.CheckedTotal()
	if err != nil {
		return 0, err
	}
	size := uint64(elem.Size())
	if n != 0 && size > math.MaxUint64/n {
		return 0, errors.Wrapf(ErrOutOfMemory, "%s x %s overflows", elem, dims)
	}
	return size * n, nil
}

// AlignedBytes allocates a zeroed byte slice of length n whose first byte sits
// on a MinAlignment boundary.
func AlignedBytes(n int) []byte {
	raw := make([]byte, n+MinAlignment)
	off := 0
	if rem := uintptr(unsafe.Pointer(unsafe.SliceData(raw))) % MinAlignment; rem != 0 {
		off = int(MinAlignment - rem)
	}
	return raw[off : off+n : off+n]
}

// IsAligned reports whether buf starts on a MinAlignment boundary.
func IsAligned(buf []byte) bool {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))%MinAlignment == 0
}

// Create allocates a zeroed, aligned tensor of exactly RequiredBytes bytes.
//
// Arguments:
//   - elem: The element type.
//   - dims: The tensor shape.
//
// Returns:
//   - *Tensor: The new tensor. Its memory is owned by the Go runtime.
//   - error: ErrInvalidArgument for an invalid type, ErrOutOfMemory when the
//     size cannot be allocated.
func Create(elem ElementType, dims Dimensions) (*Tensor, error) {
	n, err := RequiredBytes(elem, dims)
	if err != nil {
		return nil, err
	}
	if n > uint64(math.MaxInt-MinAlignment) {
		return nil, errors.Wrapf(ErrOutOfMemory, "%d bytes for %s %s", n, elem, dims)
	}
	return newTensor(elem, dims, AlignedBytes(int(n)), nil), nil
}

// Wrap builds a tensor over caller-supplied memory.
//
// The buffer must hold at least RequiredBytes(elem, dims) bytes and start on a
// MinAlignment boundary. A nil release leaves the buffer untouched when the
// tensor is released; otherwise release runs exactly once with buf when the
// last handle goes away. The caller must not reuse buf while the tensor is in
// use by the engine.
//
// Arguments:
//   - elem: The element type.
//   - dims: The tensor shape.
//   - buf: The backing memory.
//   - release: Optional callback run when the last handle is released.
//
// Returns:
//   - *Tensor: The wrapping tensor.
//   - error: ErrInvalidArgument if the buffer is nil, too small, or misaligned.
func Wrap(elem ElementType, dims Dimensions, buf []byte, release ReleaseFunc) (*Tensor, error) {
	if buf == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil buffer")
	}
	n, err := RequiredBytes(elem, dims)
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) < n {
		return nil, errors.Wrapf(ErrInvalidArgument,
			"buffer holds %d bytes, %s %s needs %d", len(buf), elem, dims, n)
	}
	if n > 0 && !IsAligned(buf) {
		return nil, errors.Wrapf(ErrInvalidArgument, "buffer is not %d-byte aligned", MinAlignment)
	}
	return newTensor(elem, dims, buf, release), nil
}

// WrapSlice builds a tensor over a typed Go slice. See Wrap for the ownership
// and alignment rules; release, if set, receives the original slice.
func WrapSlice[T Element](dims Dimensions, data []T, release func([]T)) (*Tensor, error) {
	if data == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil slice")
	}
	elem := ElementTypeOf[T]()
	buf := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), len(data)*elem.Size())
	var fn ReleaseFunc
	if release != nil {
		fn = func([]byte) { release(data) }
	}
	return Wrap(elem, dims, buf, fn)
}

func newTensor(elem ElementType, dims Dimensions, buf []byte, release ReleaseFunc) *Tensor {
	s := &storage{buf: buf, release: release}
	s.refs.Store(1)
	return &Tensor{elem: elem, dims: dims, store: s}
}

// ElementType returns the element type tag.
func (t *Tensor) ElementType() ElementType {
	return t.elem
}

// Dims returns the tensor shape.
func (t *Tensor) Dims() Dimensions {
	return t.dims
}

// Rank returns the number of axes.
func (t *Tensor) Rank() int {
	return t.dims.Rank()
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return int(t.dims.TotalNumElements())
}

// Bytes returns the raw backing memory, trimmed to RequiredBytes. It returns
// nil once the handle has been released.
func (t *Tensor) Bytes() []byte {
	if t.released.Load() {
		return nil
	}
	return t.store.buf[:t.Len()*t.elem.Size()]
}

// Retain returns a new handle sharing t's storage. Each handle must be
// released independently. Retaining a released handle panics.
func (t *Tensor) Retain() *Tensor {
	if t.released.Load() {
		panic(ErrReleased)
	}
	t.store.refs.Add(1)
	return &Tensor{elem: t.elem, dims: t.dims, store: t.store}
}

// Release drops this handle. Releasing the same handle twice is a no-op.
func (t *Tensor) Release() {
	if t == nil {
		return
	}
	if t.released.CompareAndSwap(false, true) {
		t.store.drop()
	}
}

// Released reports whether this handle has been released.
func (t *Tensor) Released() bool {
	return t.released.Load()
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%s %s)", t.elem, t.dims)
}

// Data returns a typed read/write view over the tensor's memory.
//
// The requested type is checked against the stored element type; unlike an
// unchecked reinterpretation, a mismatch fails instead of aliasing memory as
// the wrong type. Bool views require every byte to be 0 or 1.
//
// Arguments:
//   - t: The tensor to view.
//
// Returns:
//   - []T: A slice of t.Len() elements aliasing the tensor memory.
//   - error: ErrTypeMismatch, ErrReleased, or ErrInvalidArgument for a Bool
//     tensor holding a byte other than 0 or 1.
func Data[T Element](t *Tensor) ([]T, error) {
	want := ElementTypeOf[T]()
	if t.elem != want {
		return nil, errors.Wrapf(ErrTypeMismatch, "tensor holds %s, requested %s", t.elem, want)
	}
	if t.released.Load() {
		return nil, ErrReleased
	}
	n := t.Len()
	if n == 0 {
		return []T{}, nil
	}
	if want == Bool {
		for i, v := range t.store.buf[:n] {
			if v > 1 {
				return nil, errors.Wrapf(ErrInvalidArgument, "bool element %d holds byte %d", i, v)
			}
		}
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(t.store.buf))), n), nil
}

// MustData is Data that panics on error.
func MustData[T Element](t *Tensor) []T {
	d, err := Data[T](t)
	if err != nil {
		panic(err)
	}
	return d
}

// FromSlice creates a new aligned tensor and copies data into it.
func FromSlice[T Element](dims Dimensions, data []T) (*Tensor, error) {
	t, err := Create(ElementTypeOf[T](), dims)
	if err != nil {
		return nil, err
	}
	dst := MustData[T](t)
	if len(data) != len(dst) {
		t.Release()
		return nil, errors.Wrapf(ErrInvalidArgument, "%d values for shape %s", len(data), dims)
	}
	copy(dst, data)
	return t, nil
}
