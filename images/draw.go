package images

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotation is a labelled box to render onto an image.
type Annotation struct {
	Box   Rect
	Class int
	Text  string
}

// ClassColor returns a deterministic colour for a class index. Hues step by the
// golden angle so neighbouring classes stay distinguishable.
func ClassColor(class int) color.RGBA {
	if class < 0 {
		class = -class
	}
	hue := float64((class*137)%360) + 0.5
	r, g, b := colorful.Hsv(hue, 0.85, 0.95).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// DrawDetections draws each annotation's box outline and label onto dst.
//
// Arguments:
//   - dst: The image to draw on, usually the original source image.
//   - annotations: The boxes, in dst pixel coordinates.
//   - thickness: The outline width in pixels. Values below 1 are treated as 1.
func DrawDetections(dst draw.Image, annotations []Annotation, thickness int) {
	thickness = max(thickness, 1)
	bounds := dst.Bounds()

	for _, a := range annotations {
		c := ClassColor(a.Class)
		r := a.Box.Image().Intersect(bounds)
		if r.Empty() {
			continue
		}
		drawOutline(dst, r, c, thickness)

		if a.Text != "" {
			drawLabel(dst, r.Min, a.Text, c)
		}
	}
}

func drawOutline(dst draw.Image, r image.Rectangle, c color.Color, thickness int) {
	src := image.NewUniform(c)
	t := min(thickness, r.Dx(), r.Dy())
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}

// drawLabel renders text on a filled background just above origin, or inside
// the box when there is no room above.
func drawLabel(dst draw.Image, origin image.Point, text string, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	height := face.Metrics().Height.Ceil()

	top := origin.Y - height
	if top < dst.Bounds().Min.Y {
		top = origin.Y
	}
	bgRect := image.Rect(origin.X, top, origin.X+width+2, top+height)
	draw.Draw(dst, bgRect.Intersect(dst.Bounds()), image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.Point26_6{
		X: fixed.I(origin.X + 1),
		Y: fixed.I(top + face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}
