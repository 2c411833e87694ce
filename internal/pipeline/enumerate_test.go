package pipeline

import (
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/silhouette-tools/internal/imaging"
)

func TestEnumerate(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", ".DS_Store", "c.txt"} {
		writeFile(t, dir, name, "x")
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	items, err := Enumerate(dir)
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}

	want := []string{"a.jpg", "b.png", "c.txt", "sub"}
	if len(items) != len(want) {
		t.Fatalf("items: got %d, want %d", len(items), len(want))
	}
	for i, item := range items {
		if item.Ordinal != i+1 {
			t.Errorf("items[%d].Ordinal: got %d, want %d", i, item.Ordinal, i+1)
		}
		if got := filepath.Base(item.Path); got != want[i] {
			t.Errorf("items[%d]: got %s, want %s", i, got, want[i])
		}
		if filepath.Dir(item.Path) != dir {
			t.Errorf("items[%d].Path: got %s, want it under %s", i, item.Path, dir)
		}
	}
}

func TestEnumerate_Empty(t *testing.T) {
	_, err := Enumerate(t.TempDir())
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("empty dir: got %v, want ErrEmptyInput", err)
	}
}

func TestEnumerate_Missing(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if errors.Is(err, ErrEmptyInput) {
		t.Error("missing directory should not be ErrEmptyInput")
	}
}

func TestSummary_Statistics(t *testing.T) {
	s := &Summary{}
	size := image.Pt(100, 100)

	s.addCentroid(imaging.Centroid{X: 53, Y: 54}, size) // offset 5
	s.addCentroid(imaging.Centroid{X: 50, Y: 65}, size) // offset 15
	s.addCentroid(imaging.Centroid{X: 50, Y: 50, Fallback: true}, size)
	s.finish()

	if s.Fallbacks != 1 {
		t.Errorf("fallbacks: got %d, want 1", s.Fallbacks)
	}
	if math.Abs(s.OffsetMean-10) > 1e-9 {
		t.Errorf("mean: got %v, want 10", s.OffsetMean)
	}
	// Sample standard deviation of {5, 15}
	if want := math.Sqrt(50); math.Abs(s.OffsetStdDev-want) > 1e-9 {
		t.Errorf("stddev: got %v, want %v", s.OffsetStdDev, want)
	}
}

func TestSummary_SingleSample(t *testing.T) {
	s := &Summary{}
	s.addCentroid(imaging.Centroid{X: 13, Y: 14}, image.Pt(20, 20))
	s.finish()

	if s.OffsetMean != 5 {
		t.Errorf("mean: got %v, want 5", s.OffsetMean)
	}
	if s.OffsetStdDev != 0 {
		t.Errorf("stddev: got %v, want 0", s.OffsetStdDev)
	}
}

func TestStageError(t *testing.T) {
	inner := errors.New("bad pixels")
	err := error(&StageError{Stage: StageLoad, Err: inner})

	if err.Error() != "load: bad pixels" {
		t.Errorf("Error: got %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("StageError should unwrap to its cause")
	}
}
