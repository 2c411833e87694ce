package imaging

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// createTestImage creates a simple test image file and returns its path.
// The file lives in a per-test temporary directory.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "test-image.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}

	return path
}

func TestLoad(t *testing.T) {
	path := createTestImage(t, 100, 60, color.NRGBA{255, 0, 0, 255})

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 60 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x60", bounds.Dx(), bounds.Dy())
	}

	got := img.NRGBAAt(10, 10)
	if got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("pixel: got %v, want red", got)
	}
}

func TestLoad_DropsAlpha(t *testing.T) {
	path := createTestImage(t, 10, 10, color.NRGBA{10, 200, 30, 40})

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := img.NRGBAAt(5, 5)
	if got.A != 255 {
		t.Errorf("alpha: got %d, want 255", got.A)
	}
	if got.R != 10 || got.G != 200 || got.B != 30 {
		t.Errorf("colour should be kept as stored, got (%d,%d,%d)", got.R, got.G, got.B)
	}
}

func TestLoad_JPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 32, 16))
	path := filepath.Join(t.TempDir(), "photo.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := jpeg.Encode(f, src, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	f.Close()

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 16 {
		t.Errorf("dimensions: got %dx%d, want 32x16", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestLoad_GrayPromoted(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range gray.Pix {
		gray.Pix[i] = 77
	}
	path := filepath.Join(t.TempDir(), "gray.png")
	f, _ := os.Create(path)
	png.Encode(f, gray)
	f.Close()

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := img.NRGBAAt(3, 3)
	if got != (color.NRGBA{77, 77, 77, 255}) {
		t.Errorf("pixel: got %v, want {77 77 77 255}", got)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	_, err := Load("/nonexistent/path/to/image.png")
	if err == nil {
		t.Error("Load should fail for non-existent file")
	}
}

func TestLoad_InvalidImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("Load should fail for invalid image data")
	}
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Error("Load should fail for a directory")
	}
}
