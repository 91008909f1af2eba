package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalNumElements(t *testing.T) {
	tests := []struct {
		name     string
		dims     Dimensions
		expected uint64
	}{
		{"rank 0", Dimensions{}, 0},
		{"rank 0 via constructor", NewDimensions(), 0},
		{"vector", NewDimensions(7), 7},
		{"3d", NewDimensions(2, 3, 4), 24},
		{"image batch", NewDimensions(1, 3, 640, 640), 1228800},
		{"zero extent", NewDimensions(1, 0, 5), 0},
		{"unset extents", DimensionsOfRank(3), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dims.TotalNumElements())
		})
	}
}

func TestCheckedTotalOverflow(t *testing.T) {
	d := NewDimensions(1<<40, 1<<40)
	_, err := d.CheckedTotal()
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Panics(t, func() { d.TotalNumElements() })
}

func TestDimensionsEqual(t *testing.T) {
	a := NewDimensions(1, 3, 640, 640)
	assert.True(t, a.Equal(NewDimensions(1, 3, 640, 640)))
	assert.True(t, Dimensions{}.Equal(NewDimensions()))
	assert.False(t, a.Equal(NewDimensions(1, 3, 640)))
	assert.False(t, a.Equal(NewDimensions(1, 3, 640, 320)))
	assert.False(t, NewDimensions(0).Equal(Dimensions{}))
}

func TestDimensionsAt(t *testing.T) {
	d := NewDimensions(4, 5, 6)

	v, err := d.At(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)

	for _, axis := range []int{-1, 3, 100} {
		_, err := d.At(axis)
		assert.ErrorIs(t, err, ErrOutOfRange, "axis %d", axis)
	}
}

func TestDimensionsImmutable(t *testing.T) {
	src := []uint64{1, 2, 3}
	d := NewDimensions(src...)
	src[0] = 99
	assert.Equal(t, []uint64{1, 2, 3}, d.Extents())

	ext := d.Extents()
	ext[1] = 99
	assert.Equal(t, []uint64{1, 2, 3}, d.Extents())

	set, err := d.WithExtent(2, 8)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 8}, set.Extents())
	assert.Equal(t, []uint64{1, 2, 3}, d.Extents())

	_, err = d.WithExtent(3, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDimensionsOfRank(t *testing.T) {
	d := DimensionsOfRank(4)
	assert.Equal(t, 4, d.Rank())

	for axis, v := range []uint64{1, 3, 640, 640} {
		var err error
		d, err = d.WithExtent(axis, v)
		require.NoError(t, err)
	}
	assert.True(t, d.Equal(NewDimensions(1, 3, 640, 640)))
	assert.Equal(t, 0, DimensionsOfRank(-2).Rank())
}

func TestDimensionsFromShape(t *testing.T) {
	d, err := DimensionsFromShape([]int64{1, 8400, 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 8400, 4}, d.Int64s())
	assert.Equal(t, []int{1, 8400, 4}, d.Ints())
	assert.Equal(t, "[1 8400 4]", d.String())

	_, err = DimensionsFromShape([]int64{-1, 8400, 4})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
