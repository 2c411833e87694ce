package pipeline

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/silhouette-tools/internal/imaging"
)

// Skip records an item that produced no output.
type Skip struct {
	Ordinal int
	Path    string
	Stage   Stage
	Err     error
}

// Summary describes a finished batch.
type Summary struct {
	// Total is the number of enumerated entries.
	Total int

	// Processed lists the ordinals that produced a page and a raster, in
	// page order.
	Processed []int

	// Skipped lists the items that failed, in enumeration order.
	Skipped []Skip

	Document  string
	Pages     int
	RasterDir string

	// Fallbacks counts processed items whose edge map was empty, so the
	// marker sits at the geometric centre.
	Fallbacks int

	// OffsetMean and OffsetStdDev describe the distance in pixels between
	// each centroid and the centre of its image. Fallback centroids are
	// excluded.
	OffsetMean   float64
	OffsetStdDev float64

	// Cancelled is set when the batch stopped early because its context was
	// done.
	Cancelled bool

	offsets []float64
}

// addCentroid folds one processed item into the statistics.
func (s *Summary) addCentroid(c imaging.Centroid, size image.Point) {
	if c.Fallback {
		s.Fallbacks++
		return
	}
	dx := float64(c.X) - float64(size.X/2)
	dy := float64(c.Y) - float64(size.Y/2)
	s.offsets = append(s.offsets, math.Hypot(dx, dy))
}

// finish computes the aggregate statistics.
func (s *Summary) finish() {
	switch len(s.offsets) {
	case 0:
	case 1:
		s.OffsetMean = s.offsets[0]
	default:
		s.OffsetMean, s.OffsetStdDev = stat.MeanStdDev(s.offsets, nil)
	}
}
