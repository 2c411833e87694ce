package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
)

// RasterName returns the file name used for the figure of an item ordinal.
func RasterName(ordinal int) string {
	return fmt.Sprintf("processed_image_%d.png", ordinal)
}

// WriteRaster saves fig as a PNG in dir and returns the file path. The
// directory is created if needed and an existing file is overwritten.
func WriteRaster(dir string, fig *Figure) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create raster directory: %w", err)
	}
	path := filepath.Join(dir, RasterName(fig.Ordinal))
	if err := imgio.Save(path, fig.Image, imgio.PNGEncoder()); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
