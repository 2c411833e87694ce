package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
)

// ErrClosed is returned when a figure is added to a closed Document.
var ErrClosed = errors.New("document is closed")

// ErrDocumentFailed is matched by errors that leave a Document unusable.
// Callers should stop adding figures; Close will report the same error.
var ErrDocumentFailed = errors.New("document failed")

// Document metadata.
const (
	pdfCreator = "silhouette-report"
	pdfTitle   = "Processed images"
)

// Document is a multi-page PDF with one figure per page.
//
// The output file is created by OpenDocument so an unwritable path is
// reported before any work is done; the PDF body is written by Close.
// A Document is not safe for concurrent use.
type Document struct {
	path   string
	file   *os.File
	pdf    *fpdf.Fpdf
	width  float64 // page size in points
	height float64
	title  string
	pages  int
	closed bool

	// failed is set once the PDF can no longer be written correctly.
	failed error
}

// OpenDocument creates the PDF at path with pages sized for figures of
// width x height pixels at dpi. Missing parent directories are created.
func OpenDocument(path string, width, height, dpi int) (*Document, error) {
	if width <= 0 || height <= 0 || dpi <= 0 {
		return nil, fmt.Errorf("invalid page geometry %dx%d@%d", width, height, dpi)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create document directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	// 72 points per inch
	w := float64(width) * 72 / float64(dpi)
	h := float64(height) * 72 / float64(dpi)

	// Orientation "P" keeps the custom size as given; "L" would swap it.
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator(pdfCreator, true)
	pdf.SetTitle(pdfTitle, true)

	return &Document{
		path:   path,
		file:   f,
		pdf:    pdf,
		width:  w,
		height: h,
		title:  pdfTitle,
	}, nil
}

// Path returns the output file path.
func (d *Document) Path() string { return d.path }

// Pages returns the number of figures added so far.
func (d *Document) Pages() int { return d.pages }

// AddFigure appends fig as a new full-bleed page.
//
// A figure that cannot be encoded or embedded leaves the document unchanged,
// so later figures can still be added. A failure after the page was started
// cannot be undone: the document is then unusable and every later call
// returns an error matching ErrDocumentFailed.
func (d *Document) AddFigure(fig *Figure) error {
	if d.closed {
		return ErrClosed
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fig.Image, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode figure %d: %w", fig.Ordinal, err)
	}
	return d.addPNG(fmt.Sprintf("figure-%d-%d", fig.Ordinal, d.pages), buf.Bytes())
}

// addPNG registers an encoded image and places it on a new page.
func (d *Document) addPNG(name string, data []byte) error {
	if d.failed != nil {
		return d.failed
	}
	if d.pdf.Err() {
		d.failed = fmt.Errorf("%w: %v", ErrDocumentFailed, d.pdf.Error())
		return d.failed
	}

	// Registration decodes the image, so a bad figure is rejected before
	// any page exists.
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if d.pdf.Err() {
		err := d.pdf.Error()
		d.pdf.ClearError()
		return fmt.Errorf("failed to embed %s: %w", name, err)
	}

	d.pdf.AddPage()
	d.pdf.ImageOptions(name, 0, 0, d.width, d.height, false, opts, 0, "")
	if d.pdf.Err() {
		d.failed = fmt.Errorf("%w: placing %s: %v", ErrDocumentFailed, name, d.pdf.Error())
		return d.failed
	}
	d.pages++
	return nil
}

// Close writes the PDF and closes the file. It is safe to call more than
// once; only the first call does any work.
//
// A document with no figures is written as a valid PDF with an empty page
// tree, so it contains no pages at all.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	switch {
	case d.failed != nil:
		err = d.failed
	case d.pages == 0:
		err = writeEmptyPDF(d.file, d.title)
	default:
		err = d.pdf.Output(d.file)
	}
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", d.path, err)
	}
	return nil
}

// writeEmptyPDF writes a minimal PDF 1.4 file whose page tree has no kids.
// fpdf always emits at least one page, so this case is written directly.
func writeEmptyPDF(w io.Writer, title string) error {
	var buf bytes.Buffer
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [] /Count 0 >>",
		fmt.Sprintf("<< /Creator (%s) /Title (%s) >>", pdfCreator, title),
	}

	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)

	_, err := w.Write(buf.Bytes())
	return err
}
