package report

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	sil "github.com/ironsheep/silhouette-tools/internal/imaging"
)

// pageObject matches page objects but not the /Pages tree root.
var pageObject = regexp.MustCompile(`/Type /Page\b[^s]`)

func TestOpenDocument_InvalidGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pdf")
	if _, err := OpenDocument(path, 0, 100, 100); err == nil {
		t.Error("zero width should be rejected")
	}
	if _, err := OpenDocument(path, 100, 100, 0); err == nil {
		t.Error("zero dpi should be rejected")
	}
}

func TestOpenDocument_UnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// A regular file cannot be used as a directory
	if _, err := OpenDocument(filepath.Join(blocker, "out.pdf"), 200, 100, 100); err == nil {
		t.Error("expected error for path under a regular file")
	}
}

func TestDocument_AddFigures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.pdf")
	doc, err := OpenDocument(path, 200, 100, 100)
	if err != nil {
		t.Fatalf("OpenDocument failed: %v", err)
	}

	r := NewRenderer(200, 100, 2, red)
	for i := 1; i <= 3; i++ {
		fig := r.Compose(createTestPanels(i, 30, 20, sil.Centroid{X: 15, Y: 10}))
		if err := doc.AddFigure(fig); err != nil {
			t.Fatalf("AddFigure(%d) failed: %v", i, err)
		}
	}
	if doc.Pages() != 3 {
		t.Errorf("Pages: got %d, want 3", doc.Pages())
	}
	if err := doc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("output does not start with a PDF header")
	}
	if n := len(pageObject.FindAll(data, -1)); n != 3 {
		t.Errorf("page objects: got %d, want 3", n)
	}
}

func TestDocument_CloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pdf")
	doc, err := OpenDocument(path, 200, 100, 100)
	if err != nil {
		t.Fatalf("OpenDocument failed: %v", err)
	}

	if err := doc.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Errorf("second Close: got %v, want nil", err)
	}

	fig := &Figure{Ordinal: 1, Image: image.NewNRGBA(image.Rect(0, 0, 10, 10))}
	if err := doc.AddFigure(fig); !errors.Is(err, ErrClosed) {
		t.Errorf("AddFigure after Close: got %v, want ErrClosed", err)
	}
}

func TestDocument_EmptyIsValidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	doc, err := OpenDocument(path, 200, 100, 100)
	if err != nil {
		t.Fatalf("OpenDocument failed: %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("empty document should still be a PDF")
	}
	if n := len(pageObject.FindAll(data, -1)); n != 0 {
		t.Errorf("page objects: got %d, want 0", n)
	}
	if !bytes.Contains(data, []byte("/Count 0")) {
		t.Error("page tree should have a zero count")
	}
	if !bytes.HasSuffix(bytes.TrimSpace(data), []byte("%%EOF")) {
		t.Error("output does not end with an EOF marker")
	}
	if doc.Pages() != 0 {
		t.Errorf("Pages: got %d, want 0", doc.Pages())
	}
}

func TestWriteEmptyPDF_CrossReference(t *testing.T) {
	var buf bytes.Buffer
	if err := writeEmptyPDF(&buf, "Processed images"); err != nil {
		t.Fatalf("writeEmptyPDF failed: %v", err)
	}
	data := buf.Bytes()

	// startxref must point at the xref keyword
	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindSubmatch(data)
	if m == nil {
		t.Fatal("startxref missing")
	}
	off, err := strconv.Atoi(string(m[1]))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data[off:], []byte("xref\n")) {
		t.Errorf("startxref %d does not point at the xref table", off)
	}

	// Each in-use entry must point at its object
	entries := regexp.MustCompile(`(\d{10}) 00000 n \n`).FindAllSubmatch(data, -1)
	if len(entries) != 3 {
		t.Fatalf("xref entries: got %d, want 3", len(entries))
	}
	for i, e := range entries {
		pos, _ := strconv.Atoi(string(e[1]))
		want := fmt.Sprintf("%d 0 obj", i+1)
		if !bytes.HasPrefix(data[pos:], []byte(want)) {
			t.Errorf("xref entry %d: offset %d does not start %q", i+1, pos, want)
		}
	}
}

func TestDocument_RejectedFigureLeavesDocumentUsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pdf")
	doc, err := OpenDocument(path, 200, 100, 100)
	if err != nil {
		t.Fatalf("OpenDocument failed: %v", err)
	}

	// fpdf does not embed 16-bit PNGs
	deep := image.NewNRGBA64(image.Rect(0, 0, 8, 8))
	for i := range deep.Pix {
		deep.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, deep); err != nil {
		t.Fatal(err)
	}
	err = doc.addPNG("deep", buf.Bytes())
	if err == nil {
		t.Fatal("expected 16-bit PNG to be rejected")
	}
	if errors.Is(err, ErrDocumentFailed) {
		t.Errorf("rejected figure should not fail the document: %v", err)
	}
	if doc.Pages() != 0 {
		t.Errorf("Pages after rejection: got %d, want 0", doc.Pages())
	}

	r := NewRenderer(200, 100, 2, red)
	if err := doc.AddFigure(r.Compose(createTestPanels(1, 30, 20, sil.Centroid{X: 15, Y: 10}))); err != nil {
		t.Fatalf("AddFigure after rejection failed: %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	if n := len(pageObject.FindAll(data, -1)); n != 1 {
		t.Errorf("page objects: got %d, want 1", n)
	}
}

func TestDocument_FailedWriterIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pdf")
	doc, err := OpenDocument(path, 200, 100, 100)
	if err != nil {
		t.Fatalf("OpenDocument failed: %v", err)
	}
	doc.pdf.SetError(errors.New("disk on fire"))

	r := NewRenderer(200, 100, 2, red)
	fig := r.Compose(createTestPanels(1, 30, 20, sil.Centroid{X: 15, Y: 10}))
	if err := doc.AddFigure(fig); !errors.Is(err, ErrDocumentFailed) {
		t.Errorf("AddFigure: got %v, want ErrDocumentFailed", err)
	}
	// Every later call reports the same failure
	if err := doc.AddFigure(fig); !errors.Is(err, ErrDocumentFailed) {
		t.Errorf("second AddFigure: got %v, want ErrDocumentFailed", err)
	}
	if doc.Pages() != 0 {
		t.Errorf("Pages: got %d, want 0", doc.Pages())
	}
	if err := doc.Close(); !errors.Is(err, ErrDocumentFailed) {
		t.Errorf("Close: got %v, want ErrDocumentFailed", err)
	}
}

func TestWriteRaster(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "png")
	fig := &Figure{Ordinal: 7, Image: image.NewNRGBA(image.Rect(0, 0, 20, 10))}
	fig.Image.SetNRGBA(3, 4, color.NRGBA{10, 20, 30, 255})

	path, err := WriteRaster(dir, fig)
	if err != nil {
		t.Fatalf("WriteRaster failed: %v", err)
	}
	if filepath.Base(path) != "processed_image_7.png" {
		t.Errorf("file name: got %s, want processed_image_7.png", filepath.Base(path))
	}

	img, err := sil.Load(path)
	if err != nil {
		t.Fatalf("failed to read raster back: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("raster size: got %v, want 20x10", img.Bounds())
	}
	if got := img.NRGBAAt(3, 4); got != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("pixel: got %v, want {10 20 30 255}", got)
	}
}

func TestRasterName(t *testing.T) {
	if got := RasterName(1); got != "processed_image_1.png" {
		t.Errorf("RasterName(1): got %s", got)
	}
}
