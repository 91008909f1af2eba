// Package images - Geometry, letterboxing, loading and drawing for detector inputs.
package images

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Rect is a corner-form bounding box in pixel coordinates.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 float32
}

// Width returns X2-X1, or 0 for an inverted box.
func (r Rect) Width() float32 {
	return math32.Max(0, r.X2-r.X1)
}

// Height returns Y2-Y1, or 0 for an inverted box.
func (r Rect) Height() float32 {
	return math32.Max(0, r.Y2-r.Y1)
}

// Area returns Width*Height.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Clamp returns r limited to [0,w] x [0,h].
func (r Rect) Clamp(w, h float32) Rect {
	return Rect{
		X1: clamp(r.X1, 0, w),
		Y1: clamp(r.Y1, 0, h),
		X2: clamp(r.X2, 0, w),
		Y2: clamp(r.Y2, 0, h),
	}
}

// Image converts r to an integer image.Rectangle, rounding each corner.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		round(r.X1), round(r.Y1),
		round(r.X2), round(r.Y2),
	)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.1f,%.1f)-(%.1f,%.1f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU returns the intersection over union of two boxes.
//
//	IoU = Area of Intersection / Area of Union
//
// The intersection's top-left corner is the maximum of the two top-left corners
// and its bottom-right corner the minimum of the two bottom-right corners. If
// the resulting width or height is not positive the boxes do not overlap.
// Union follows inclusion-exclusion: Area(A) + Area(B) - Area(A ∩ B).
//
// Arguments:
//   - r: The first box.
//   - o: The box to compare against.
//
// Returns:
//   - float32: A value in [0, 1]. 0 when the boxes are disjoint or the union
//     has no area.
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(a, b) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return math32.Min(1, interArea/unionArea)
}

func round(v float32) int {
	return int(math32.Floor(v + 0.5))
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
