package tensor

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredBytes(t *testing.T) {
	dims := NewDimensions(2, 3, 4)
	tests := []struct {
		elem     ElementType
		expected uint64
	}{
		{Bool, 24},
		{Int8, 24},
		{Uint8, 24},
		{Int16, 48},
		{Int32, 96},
		{Float32, 96},
		{Int64, 192},
		{Float64, 192},
	}

	for _, tt := range tests {
		t.Run(tt.elem.String(), func(t *testing.T) {
			n, err := RequiredBytes(tt.elem, dims)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
			assert.Equal(t, uint64(tt.elem.Size())*dims.TotalNumElements(), n)
		})
	}

	_, err := RequiredBytes(Invalid, dims)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestElementTypeOf(t *testing.T) {
	assert.Equal(t, Bool, ElementTypeOf[bool]())
	assert.Equal(t, Int8, ElementTypeOf[int8]())
	assert.Equal(t, Int16, ElementTypeOf[int16]())
	assert.Equal(t, Int32, ElementTypeOf[int32]())
	assert.Equal(t, Int64, ElementTypeOf[int64]())
	assert.Equal(t, Uint8, ElementTypeOf[byte]())
	assert.Equal(t, Float32, ElementTypeOf[float32]())
	assert.Equal(t, Float64, ElementTypeOf[float64]())
}

func TestCreate(t *testing.T) {
	tn, err := Create(Float32, NewDimensions(1, 3, 640, 640))
	require.NoError(t, err)
	defer tn.Release()

	assert.Equal(t, Float32, tn.ElementType())
	assert.Equal(t, 4, tn.Rank())
	assert.Len(t, tn.Bytes(), 4*3*640*640)
	assert.True(t, IsAligned(tn.Bytes()), "storage should be %d-byte aligned", MinAlignment)

	data, err := Data[float32](tn)
	require.NoError(t, err)
	assert.Len(t, data, 3*640*640)
	for _, v := range data[:16] {
		assert.Zero(t, v)
	}

	_, err = Create(Invalid, NewDimensions(1))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Create(Float64, NewDimensions(1<<62, 1<<3))
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestCreateEmpty(t *testing.T) {
	tn, err := Create(Int32, Dimensions{})
	require.NoError(t, err)
	assert.Equal(t, 0, tn.Len())
	data, err := Data[int32](tn)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWrapValidation(t *testing.T) {
	dims := NewDimensions(2, 2)

	tests := []struct {
		name string
		elem ElementType
		buf  []byte
	}{
		{"nil buffer", Float32, nil},
		{"too small", Float32, AlignedBytes(15)},
		{"misaligned", Float32, AlignedBytes(17)[1:]},
		{"invalid type", Invalid, AlignedBytes(16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Wrap(tt.elem, dims, tt.buf, nil)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	tn, err := Wrap(Float32, dims, AlignedBytes(32), nil)
	require.NoError(t, err)
	assert.Len(t, tn.Bytes(), 16, "Bytes should be trimmed to the required size")
}

func TestReleaseCallbackRunsOnceWithOriginalBuffer(t *testing.T) {
	buf := AlignedBytes(24)
	var calls int
	var got []byte

	tn, err := Wrap(Uint8, NewDimensions(2, 3, 4), buf, func(b []byte) {
		calls++
		got = b
	})
	require.NoError(t, err)

	second := tn.Retain()
	third := second.Retain()

	tn.Release()
	tn.Release()
	assert.Zero(t, calls, "callback must wait for the last handle")

	second.Release()
	assert.Zero(t, calls)

	third.Release()
	assert.Equal(t, 1, calls)
	assert.Equal(t, unsafe.SliceData(buf), unsafe.SliceData(got))
	assert.Len(t, got, len(buf))

	third.Release()
	assert.Equal(t, 1, calls)
}

func TestReleaseConcurrent(t *testing.T) {
	var calls atomic.Int32
	tn, err := Wrap(Int64, NewDimensions(8), AlignedBytes(64), func([]byte) { calls.Add(1) })
	require.NoError(t, err)

	handles := []*Tensor{tn}
	for range 31 {
		handles = append(handles, tn.Retain())
	}

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(2)
		go func() { defer wg.Done(); h.Release() }()
		go func() { defer wg.Done(); h.Release() }()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestDefaultReleaseLeavesCallerMemoryAlone(t *testing.T) {
	buf := AlignedBytes(8)
	for i := range buf {
		buf[i] = byte(i + 1)
	}
	snapshot := append([]byte(nil), buf...)

	tn, err := Wrap(Uint8, NewDimensions(8), buf, nil)
	require.NoError(t, err)
	tn.Release()

	assert.Equal(t, snapshot, buf)
	assert.Nil(t, tn.Bytes())
}

func TestDataTypeChecked(t *testing.T) {
	tn, err := Create(Float32, NewDimensions(4))
	require.NoError(t, err)

	_, err = Data[int32](tn)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Panics(t, func() { MustData[float64](tn) })

	f := MustData[float32](tn)
	f[2] = 1.5
	assert.Equal(t, float32(1.5), MustData[float32](tn)[2], "views should alias the same memory")

	tn.Release()
	_, err = Data[float32](tn)
	assert.ErrorIs(t, err, ErrReleased)
	assert.Panics(t, func() { tn.Retain() })
}

func TestBoolDataRejectsInvalidBytes(t *testing.T) {
	buf := AlignedBytes(3)
	buf[0], buf[1], buf[2] = 0, 1, 2

	tn, err := Wrap(Bool, NewDimensions(3), buf, nil)
	require.NoError(t, err)
	defer tn.Release()

	_, err = Data[bool](tn)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Panics(t, func() { MustData[bool](tn) })
	_, err = tn.Dense()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	buf[2] = 1
	got, err := Data[bool](tn)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, true}, got)
}

func TestWrapSlice(t *testing.T) {
	data := AlignedFloat32s(t, 6)
	var released []float32

	tn, err := WrapSlice(NewDimensions(2, 3), data, func(s []float32) { released = s })
	require.NoError(t, err)
	assert.Equal(t, Float32, tn.ElementType())

	MustData[float32](tn)[5] = 7
	assert.Equal(t, float32(7), data[5])

	tn.Release()
	require.NotNil(t, released)
	assert.Equal(t, unsafe.SliceData(data), unsafe.SliceData(released))

	_, err = WrapSlice[float32](NewDimensions(2), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFromSlice(t *testing.T) {
	tn, err := FromSlice(NewDimensions(3), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, MustData[int64](tn))

	_, err = FromSlice(NewDimensions(4), []int64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDense(t *testing.T) {
	tn, err := FromSlice(NewDimensions(2, 3), []float32{0, 1, 2, 3, 4, 5})
	require.NoError(t, err)

	d, err := tn.Dense()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, []int(d.Shape()))

	backing, ok := d.Data().([]float32)
	require.True(t, ok)
	backing[0] = 42
	assert.Equal(t, float32(42), MustData[float32](tn)[0], "dense view should not copy")

	_, err = Dimensions{}.At(0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	empty, err := Create(Float32, Dimensions{})
	require.NoError(t, err)
	_, err = empty.Dense()
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// AlignedFloat32s returns n zeroed float32 values starting on a MinAlignment boundary.
func AlignedFloat32s(t *testing.T, n int) []float32 {
	t.Helper()
	buf := AlignedBytes(n * 4)
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(buf))), n)
}
