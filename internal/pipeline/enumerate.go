package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyInput is returned when the input directory has no entries to
// process. It is raised before any output file or directory is created.
var ErrEmptyInput = errors.New("no images found in input directory")

// Item is one entry of the batch.
type Item struct {
	// Ordinal is the 1-based position in enumeration order. It names the
	// item's page title and raster file, and is stable whether or not
	// earlier items fail.
	Ordinal int
	Path    string
}

// Enumerate lists the batch in dir: every entry whose name does not start
// with a dot, sorted by name. Entries are not filtered by type or extension;
// anything that is not a decodable image fails later at load.
func Enumerate(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	// os.ReadDir returns entries sorted by file name.
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		items = append(items, Item{
			Ordinal: len(items) + 1,
			Path:    filepath.Join(dir, e.Name()),
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, dir)
	}
	return items, nil
}
