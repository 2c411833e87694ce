package imaging

import "image"

// Centroid is the intensity-weighted centre of an edge map.
type Centroid struct {
	X int `json:"x"`
	Y int `json:"y"`

	// Fallback is true when the edge map was empty and the geometric centre
	// was used instead.
	Fallback bool `json:"fallback"`
}

// Point returns the centroid as an image.Point.
func (c Centroid) Point() image.Point {
	return image.Point{X: c.X, Y: c.Y}
}

// Moments holds the raw spatial moments of an edge map up to first order.
//
//   - M00: total mass (sum of pixel intensities)
//   - M10: intensity-weighted sum of X coordinates
//   - M01: intensity-weighted sum of Y coordinates
//
// Coordinates are relative to the edge map's bounds.
type Moments struct {
	M00 int64
	M10 int64
	M01 int64
}

// ComputeMoments returns the zeroth and first spatial moments of an edge map.
// The sums are exact integers, so the centroid is free of rounding drift.
func ComputeMoments(edges *image.Gray) Moments {
	var m Moments
	b := edges.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		row := edges.Pix[y*edges.Stride : y*edges.Stride+w]
		for x, v := range row {
			if v == 0 {
				continue
			}
			i := int64(v)
			m.M00 += i
			m.M10 += int64(x) * i
			m.M01 += int64(y) * i
		}
	}
	return m
}

// EstimateCentroid computes the silhouette centroid of an edge map.
//
// With m00 != 0 the result is (floor(m10/m00), floor(m01/m00)). An edge map
// with no edge pixels at all (a degenerate silhouette) falls back to the
// geometric centre (width/2, height/2) with Fallback set. This never fails,
// and for a non-empty map the result always lies inside [0,width)x[0,height).
func EstimateCentroid(edges *image.Gray) Centroid {
	b := edges.Bounds()
	m := ComputeMoments(edges)
	if m.M00 == 0 {
		return Centroid{X: b.Dx() / 2, Y: b.Dy() / 2, Fallback: true}
	}
	// Moments are non-negative, so integer division is the floor.
	return Centroid{
		X: int(m.M10 / m.M00),
		Y: int(m.M01 / m.M00),
	}
}
