package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolution_GetMegaPixels(t *testing.T) {
	testCases := []struct {
		name     string
		res      Resolution
		expected float64
	}{
		{"Full HD 1080p", resolutions[ResolutionTypeFHD1080p], 2.07},
		{"4K UHD", resolutions[ResolutionType4KUHD], 8.29},
		{"1MP (5:4)", resolutions[ResolutionType1MP54], 1.31},
		{"Zero Width", Resolution{Pixels: ResolutionPixels{Width: 0, Height: 1080}}, 0},
		{"Negative Height", Resolution{Pixels: ResolutionPixels{Width: 1920, Height: -1}}, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.res.GetMegaPixels())
		})
	}
}

func TestResolution_String(t *testing.T) {
	res, ok := GetResolutionByType(ResolutionTypeHD720p)
	require.True(t, ok)
	assert.Equal(t, "HD 720p (1280x720, 0.92MP)", res.String())
}

func TestGetAllResolutionsOrdered(t *testing.T) {
	all := GetAllResolutions()
	require.Len(t, all, len(resolutions))
	assert.Equal(t, ResolutionTypeNHD, all[0].Name)
	assert.Equal(t, ResolutionType4KUHD, all[len(all)-1].Name)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1].Pixels, all[i].Pixels
		assert.LessOrEqual(t, prev.Width*prev.Height, cur.Width*cur.Height)
	}
}

func TestGetResolutionByTypeUnknown(t *testing.T) {
	_, ok := GetResolutionByType("8K UHD")
	assert.False(t, ok)
}

func TestGetHighestResolutionUnderDimensions(t *testing.T) {
	res, ok := GetHighestResolutionUnderDimensions(1920, 1200)
	require.True(t, ok)
	assert.Equal(t, ResolutionTypeFHD1080p, res.Name)

	res, ok = GetHighestResolutionUnderDimensions(640, 640)
	require.True(t, ok)
	assert.Equal(t, ResolutionTypeSquare640, res.Name)

	_, ok = GetHighestResolutionUnderDimensions(100, 100)
	assert.False(t, ok)
}
