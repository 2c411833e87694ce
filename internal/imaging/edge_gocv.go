//go:build gocv

package imaging

import (
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"
)

// OpenCVDetector runs grayscale conversion, Gaussian smoothing and Canny
// through OpenCV.
type OpenCVDetector struct {
	Kernel int
}

func newOpenCVDetector(kernel int) (EdgeDetector, error) {
	return &OpenCVDetector{Kernel: kernel}, nil
}

// DetectEdges implements EdgeDetector.
//
// Transparent pixels are flattened onto black before the image reaches
// OpenCV so both backends see the same colours.
func (d *OpenCVDetector) DetectEdges(img image.Image, low, high int) *image.Gray {
	bounds := img.Bounds()
	result := image.NewGray(bounds)
	if bounds.Empty() {
		return result
	}

	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, bounds.Min, draw.Over)

	src, err := gocv.ImageToMatRGB(flat)
	if err != nil {
		// Only an unsupported image type fails here, which flat never is.
		panic(fmt.Sprintf("gocv: failed to convert image: %v", err))
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(d.Kernel, d.Kernel), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, float32(low), float32(high))

	out, err := edges.ToImage()
	if err != nil {
		panic(fmt.Sprintf("gocv: failed to read edge map: %v", err))
	}
	draw.Draw(result, bounds, out, image.Point{}, draw.Src)
	return result
}
