package imaging

import (
	"image"
	"image/color"
	"image/draw"
)

// DrawMarker returns an opaque copy of img with a filled circle of the given
// radius centred on c. Alpha is dropped by compositing over black first, so
// the result matches how a background-removed image is displayed.
//
// The circle is clipped to the image bounds; c is relative to the bounds'
// top-left corner. A translucent col is blended over the panel.
func DrawMarker(img image.Image, c Centroid, radius int, col color.Color) *image.NRGBA {
	out := Flatten(img)
	src := image.NewUniform(col)

	cx, cy := c.X, c.Y
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			px, py := cx+dx, cy+dy
			if px < 0 || py < 0 || px >= out.Rect.Dx() || py >= out.Rect.Dy() {
				continue
			}
			draw.Draw(out, image.Rect(px, py, px+1, py+1), src, image.Point{}, draw.Over)
		}
	}
	return out
}

// Flatten composites img over an opaque black background and returns the
// result with bounds starting at (0,0).
func Flatten(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Over)
	return out
}
