// Package imaging provides the per-image analysis stages of the silhouette report.
//
// This package implements the stateless building blocks the batch pipeline
// chains together for every photograph: loading, saturation adjustment, edge
// extraction, centroid estimation and marker drawing. All operations work with
// standard Go image.Image types and use a coordinate system where (0,0) is at
// the top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based and relative to the
// image bounds:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Immutability
//
// No function mutates its input. Each stage returns a new image (or, for
// pass-through cases, the input value itself), so results of earlier stages
// can be reused safely by later ones and by the renderer.
//
// # Edge Maps
//
// Edge maps are *image.Gray values with the same bounds as their source,
// where 255 marks an edge pixel and 0 marks everything else.
//
// # Transparency
//
// Images carrying an alpha channel (the output of background removal) are
// read through their premultiplied colour: fully transparent pixels count as
// black for both edge extraction and display.
//
// # Thread Safety
//
// Every function is stateless and may be called concurrently on different
// images. EdgeDetector implementations are safe for concurrent use.
package imaging
