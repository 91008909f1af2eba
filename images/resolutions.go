package images

import (
	"fmt"
	"math"
	"slices"
)

// AspectRatio represents a camera aspect ratio by name (e.g., "16:9").
type AspectRatio string

// Common aspect ratios of camera sources.
const (
	AspectRatio11  AspectRatio = "1:1"
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
)

// ResolutionType names a source resolution standard.
type ResolutionType string

// Source resolutions used to exercise letterboxing and benchmarks.
const (
	ResolutionTypeSquare640 ResolutionType = "640x640"
	ResolutionTypeNHD       ResolutionType = "nHD"
	ResolutionTypeVGA       ResolutionType = "VGA"
	ResolutionTypeHD720p    ResolutionType = "HD 720p"
	ResolutionType1MP54     ResolutionType = "1MP (5:4)"
	ResolutionTypeFHD1080p  ResolutionType = "Full HD 1080p"
	ResolutionType2MP43     ResolutionType = "2MP (4:3)"
	ResolutionTypeQHD1440p  ResolutionType = "QHD 1440p"
	ResolutionType4KUHD     ResolutionType = "4K UHD"
)

// ResolutionPixels describes the exact dimensions of a resolution.
type ResolutionPixels struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resolution describes a source resolution standard.
type Resolution struct {
	Name        ResolutionType   `json:"name"`
	AspectRatio AspectRatio      `json:"aspectRatio"`
	Pixels      ResolutionPixels `json:"pixels"`
}

// GetMegaPixels returns the pixel count in millions, rounded to two decimal
// places. Non-positive dimensions yield 0.
func (r Resolution) GetMegaPixels() float64 {
	if r.Pixels.Width <= 0 || r.Pixels.Height <= 0 {
		return 0.0
	}
	mp := float64(r.Pixels.Width*r.Pixels.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

// String returns a human-readable summary of the resolution.
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Pixels.Width, r.Pixels.Height, r.GetMegaPixels())
}

var resolutions = map[ResolutionType]Resolution{
	ResolutionTypeSquare640: {ResolutionTypeSquare640, AspectRatio11, ResolutionPixels{640, 640}},
	ResolutionTypeNHD:       {ResolutionTypeNHD, AspectRatio169, ResolutionPixels{640, 360}},
	ResolutionTypeVGA:       {ResolutionTypeVGA, AspectRatio43, ResolutionPixels{640, 480}},
	ResolutionTypeHD720p:    {ResolutionTypeHD720p, AspectRatio169, ResolutionPixels{1280, 720}},
	ResolutionType1MP54:     {ResolutionType1MP54, AspectRatio54, ResolutionPixels{1280, 1024}},
	ResolutionTypeFHD1080p:  {ResolutionTypeFHD1080p, AspectRatio169, ResolutionPixels{1920, 1080}},
	ResolutionType2MP43:     {ResolutionType2MP43, AspectRatio43, ResolutionPixels{1600, 1200}},
	ResolutionTypeQHD1440p:  {ResolutionTypeQHD1440p, AspectRatio169, ResolutionPixels{2560, 1440}},
	ResolutionType4KUHD:     {ResolutionType4KUHD, AspectRatio169, ResolutionPixels{3840, 2160}},
}

// GetAllResolutions returns every defined resolution ordered by pixel count,
// then by name.
func GetAllResolutions() []Resolution {
	all := make([]Resolution, 0, len(resolutions))
	for _, res := range resolutions {
		all = append(all, res)
	}
	slices.SortFunc(all, func(a, b Resolution) int {
		pa, pb := a.Pixels.Width*a.Pixels.Height, b.Pixels.Width*b.Pixels.Height
		if pa != pb {
			return pa - pb
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return all
}

// GetResolutionByType retrieves a specific resolution by its type.
func GetResolutionByType(t ResolutionType) (Resolution, bool) {
	res, ok := resolutions[t]
	return res, ok
}

// GetHighestResolutionUnderDimensions retrieves the largest resolution that
// fits within the given width and height.
//
// Arguments:
//   - width: The maximum possible width of the image.
//   - height: The maximum possible height of the image.
//
// Returns:
//   - Resolution: The largest fitting resolution.
//   - bool: True if a resolution was found, otherwise false.
func GetHighestResolutionUnderDimensions(width, height int) (Resolution, bool) {
	var highest Resolution
	var found bool

	for _, res := range GetAllResolutions() {
		if res.Pixels.Width <= width && res.Pixels.Height <= height {
			highest = res
			found = true
		}
	}
	return highest, found
}
