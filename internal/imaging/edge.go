package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
)

// Default hysteresis thresholds on the 0-255 gradient scale.
const (
	DefaultLowThreshold  = 50
	DefaultHighThreshold = 150
)

// EdgeDetector turns an image into a binary edge map.
//
// DetectEdges must return an *image.Gray with the same bounds as img in which
// every pixel is either 0 (no edge) or 255 (edge). It never fails for a
// well-formed image; low < high is the caller's responsibility.
type EdgeDetector interface {
	DetectEdges(img image.Image, low, high int) *image.Gray
}

// NewEdgeDetector returns the detector for a configured backend.
//
// Parameters:
//   - backend: "native" for the pure Go implementation, "opencv" for the
//     gocv implementation (only available in binaries built with -tags gocv).
//   - kernel: Odd Gaussian kernel size applied before edge detection.
//     1 disables smoothing.
func NewEdgeDetector(backend string, kernel int) (EdgeDetector, error) {
	if kernel < 1 || kernel%2 == 0 {
		return nil, fmt.Errorf("smoothing kernel must be a positive odd number, got %d", kernel)
	}
	switch backend {
	case "", "native":
		return &CannyDetector{Kernel: kernel}, nil
	case "opencv":
		return newOpenCVDetector(kernel)
	default:
		return nil, fmt.Errorf("unknown edge backend: %s", backend)
	}
}

// CannyDetector is a pure Go Canny edge detector.
//
// # Algorithm
//
//  1. Grayscale conversion: ITU-R BT.601 luminance
//     (0.299*R + 0.587*G + 0.114*B) of the premultiplied colour, rounded to 8 bits
//
//  2. Gaussian smoothing with a Kernel x Kernel window. The default kernel of 1
//     is the identity; the step only exists to suppress single-pixel noise.
//
//  3. Gradient computation: Sobel operators for X and Y gradients,
//     magnitude = |Gx| + |Gy|, direction = atan2(Gy, Gx)
//
//  4. Non-maximum suppression: Thin edges to 1-pixel width by keeping only
//     local maxima in the gradient direction
//
//  5. Hysteresis thresholding:
//     - Pixels above high are strong edges (always kept)
//     - Pixels above low are kept only if they are 8-connected, directly or
//     through other kept pixels, to a strong edge
//     - Everything else is discarded
//
// Because the strong set only shrinks as high grows, raising high at a fixed
// low never adds edge pixels.
type CannyDetector struct {
	// Kernel is the odd Gaussian kernel size. Values below 2 mean no smoothing.
	Kernel int
}

// DetectEdges implements EdgeDetector.
func (d *CannyDetector) DetectEdges(img image.Image, low, high int) *image.Gray {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	result := image.NewGray(bounds)
	if width == 0 || height == 0 {
		return result
	}

	gray := grayscale(img)
	blurred := smooth(gray, width, height, d.Kernel)

	magnitude, direction := sobel(blurred, width, height)
	suppressed := nonMaxSuppress(magnitude, direction, width, height)

	lowThresh := float64(low)
	highThresh := float64(high)

	// Seed the flood from every strong pixel, then grow through weak ones.
	stack := make([]image.Point, 0, 64)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if suppressed[y][x] > highThresh {
				result.Pix[y*result.Stride+x] = 255
				stack = append(stack, image.Point{X: x, Y: y})
			}
		}
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for ky := -1; ky <= 1; ky++ {
			for kx := -1; kx <= 1; kx++ {
				px, py := p.X+kx, p.Y+ky
				if px < 0 || px >= width || py < 0 || py >= height {
					continue
				}
				i := py*result.Stride + px
				if result.Pix[i] != 0 || suppressed[py][px] <= lowThresh {
					continue
				}
				result.Pix[i] = 255
				stack = append(stack, image.Point{X: px, Y: py})
			}
		}
	}

	return result
}

// grayscale converts an image to 8-bit luminance values stored as float64.
// If the image is already single-channel its values are used directly.
func grayscale(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, height)
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < height; y++ {
			gray[y] = make([]float64, width)
			row := g.Pix[y*g.Stride : y*g.Stride+width]
			for x, v := range row {
				gray[y][x] = float64(v)
			}
		}
		return gray
	}

	for y := 0; y < height; y++ {
		gray[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray[y][x] = math.Round(lum)
		}
	}
	return gray
}

// smooth applies a Gaussian blur with the given odd kernel size.
// A kernel of 1 returns the input unchanged.
func smooth(gray [][]float64, width, height, kernel int) [][]float64 {
	if kernel < 3 {
		return gray
	}

	src := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src.Pix[y*src.Stride+x] = uint8(gray[y][x])
		}
	}

	blurred := blur.Gaussian(src, float64(kernel-1)/2)

	result := make([][]float64, height)
	for y := 0; y < height; y++ {
		result[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			// R, G and B are equal for a gray source
			result[y][x] = float64(blurred.Pix[y*blurred.Stride+x*4])
		}
	}
	return result
}

// sobel computes the L1 gradient magnitude and direction of each pixel.
// Border pixels use clamped (replicated) edge values.
func sobel(img [][]float64, width, height int) (magnitude, direction [][]float64) {
	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude = make([][]float64, height)
	direction = make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)

		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					gx += img[py][px] * sobelX[ky+1][kx+1]
					gy += img[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Abs(gx) + math.Abs(gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}
	return magnitude, direction
}

// nonMaxSuppress keeps only pixels that are local maxima along their gradient
// direction. The outermost ring of pixels is always suppressed.
func nonMaxSuppress(magnitude, direction [][]float64, width, height int) [][]float64 {
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			if y == 0 || y == height-1 || x == 0 || x == width-1 {
				continue
			}

			angle := direction[y][x]
			mag := magnitude[y][x]

			// Determine neighbors to compare based on gradient direction
			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			} else {
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			}

			if mag > n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}
	return suppressed
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// IsBinary reports whether every pixel of an edge map is 0 or 255.
func IsBinary(edges *image.Gray) bool {
	b := edges.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := edges.GrayAt(x, y).Y
			if v != 0 && v != 255 {
				return false
			}
		}
	}
	return true
}

// CountEdges returns the number of edge pixels in an edge map.
func CountEdges(edges *image.Gray) int {
	n := 0
	b := edges.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if edges.GrayAt(x, y) != (color.Gray{}) {
				n++
			}
		}
	}
	return n
}
