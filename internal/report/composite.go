// Package report renders annotated comparison figures and persists them.
//
// A Figure is a 2x2 raster: the original photograph and its edge map on the
// top row, the background-removed photograph and its edge map on the bottom
// row. Both photographs carry the same centroid marker. Figures are appended
// to a multi-page PDF Document and written as standalone PNG files.
package report

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	sil "github.com/ironsheep/silhouette-tools/internal/imaging"
)

// Layout constants in canvas pixels.
const (
	titleScale  = 2  // basicfont glyphs are enlarged by this factor
	titleHeight = 13 // basicfont.Face7x13 line height
	cellMargin  = 12
)

// Panel positions within a Figure.
const (
	PanelOriginal = iota
	PanelOriginalEdges
	PanelSegmented
	PanelSegmentedEdges
)

// Panels is everything the renderer needs for one batch item.
//
// Both image/edge-map pairs must have the same dimensions; the renderer does
// not check this.
type Panels struct {
	Ordinal        int
	Original       image.Image
	OriginalEdges  *image.Gray
	Segmented      image.Image
	SegmentedEdges *image.Gray

	// Centroid is computed once from SegmentedEdges and marked on both
	// photographs.
	Centroid sil.Centroid
}

// Figure is a rendered 2x2 comparison.
type Figure struct {
	Ordinal int

	// Image is the composed canvas.
	Image *image.NRGBA

	// Titles of the four panels, in panel order.
	Titles [4]string

	// Panels holds the four panel images at native resolution, in panel
	// order, with markers already drawn on the two photographs.
	Panels [4]image.Image

	// Markers is the marker centre used on the original and on the
	// background-removed panel, in native image coordinates.
	Markers [2]image.Point
}

// Renderer composes figures of a fixed size.
type Renderer struct {
	Width        int
	Height       int
	MarkerRadius int
	MarkerColor  color.Color
}

// NewRenderer returns a renderer for width x height pixel figures.
func NewRenderer(width, height, markerRadius int, markerColor color.Color) *Renderer {
	return &Renderer{
		Width:        width,
		Height:       height,
		MarkerRadius: markerRadius,
		MarkerColor:  markerColor,
	}
}

// Titles returns the panel titles for an item ordinal.
func Titles(ordinal int) [4]string {
	return [4]string{
		fmt.Sprintf("Original image %d", ordinal),
		fmt.Sprintf("Original image edges %d", ordinal),
		fmt.Sprintf("Background removed %d", ordinal),
		fmt.Sprintf("Background removed edges %d", ordinal),
	}
}

// Compose lays out the four panels on a white canvas.
//
// The marker is drawn on each photograph at native resolution before the
// panels are scaled to fit their cells, so its radius is in image pixels.
// Panels keep their aspect ratio and are centred under their titles; there
// are no axes or tick marks.
func (r *Renderer) Compose(p Panels) *Figure {
	markerAt := p.Centroid
	fig := &Figure{
		Ordinal: p.Ordinal,
		Titles:  Titles(p.Ordinal),
		Panels: [4]image.Image{
			sil.DrawMarker(p.Original, markerAt, r.MarkerRadius, r.MarkerColor),
			p.OriginalEdges,
			sil.DrawMarker(p.Segmented, markerAt, r.MarkerRadius, r.MarkerColor),
			p.SegmentedEdges,
		},
		Markers: [2]image.Point{markerAt.Point(), markerAt.Point()},
	}

	canvas := imaging.New(r.Width, r.Height, color.White)
	cellW := r.Width / 2
	cellH := r.Height / 2
	for i, panel := range fig.Panels {
		cell := image.Rect(0, 0, cellW, cellH).Add(image.Pt((i%2)*cellW, (i/2)*cellH))
		r.drawCell(canvas, cell, fig.Titles[i], panel)
	}
	fig.Image = canvas
	return fig
}

// drawCell renders one titled panel into its cell of the canvas.
func (r *Renderer) drawCell(canvas *image.NRGBA, cell image.Rectangle, title string, panel image.Image) {
	label := renderTitle(title)
	lb := label.Bounds()
	labelPos := image.Pt(cell.Min.X+(cell.Dx()-lb.Dx())/2, cell.Min.Y+cellMargin)
	draw.Draw(canvas, lb.Add(labelPos), label, image.Point{}, draw.Over)

	area := image.Rect(
		cell.Min.X+cellMargin,
		labelPos.Y+lb.Dy()+cellMargin,
		cell.Max.X-cellMargin,
		cell.Max.Y-cellMargin,
	)
	if area.Empty() || panel == nil || panel.Bounds().Empty() {
		return
	}

	w, h := fitSize(panel.Bounds().Dx(), panel.Bounds().Dy(), area.Dx(), area.Dy())
	scaled := imaging.Resize(panel, w, h, imaging.Lanczos)
	pos := image.Pt(area.Min.X+(area.Dx()-w)/2, area.Min.Y+(area.Dy()-h)/2)
	draw.Draw(canvas, scaled.Bounds().Add(pos), scaled, image.Point{}, draw.Src)
}

// fitSize scales (w, h) to the largest size that fits in (maxW, maxH) while
// keeping the aspect ratio. Images smaller than the box are enlarged.
func fitSize(w, h, maxW, maxH int) (int, int) {
	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	fw := int(float64(w) * scale)
	fh := int(float64(h) * scale)
	if fw < 1 {
		fw = 1
	}
	if fh < 1 {
		fh = 1
	}
	return fw, fh
}

// renderTitle draws text in black with basicfont and enlarges it with
// nearest-neighbour scaling so it stays crisp.
func renderTitle(text string) *image.NRGBA {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	if width < 1 {
		width = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, titleHeight))

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: fixed.I(face.Ascent)},
	}
	d.DrawString(text)

	return imaging.Resize(img, width*titleScale, titleHeight*titleScale, imaging.NearestNeighbor)
}
