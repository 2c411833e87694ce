// Package segment isolates an object from its background through an external
// background removal oracle.
//
// The oracle is opaque: it receives a PNG-encoded image and returns an encoded
// image of the same size whose alpha channel marks foreground (opaque) and
// background (transparent). Remover is the capability interface for such an
// oracle; Adapter wraps one with encoding, decoding and result checks.
//
// Two oracles are provided, both built around rembg:
//
//   - HTTPRemover posts the image to a running rembg server
//   - CommandRemover runs the rembg command line tool on temporary files
//
// Tests substitute deterministic stubs with RemoverFunc.
package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png" // Register PNG format decoder

	"github.com/disintegration/imaging"
)

// ErrSegmentation is matched (via errors.Is) by every error returned from
// Adapter.Segment.
var ErrSegmentation = errors.New("segmentation failed")

// Error describes a failed segmentation call.
type Error struct {
	// Op is the step that failed: "encode", "remove", "decode" or "check".
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("segmentation %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrSegmentation as a match for any *Error.
func (e *Error) Is(target error) bool { return target == ErrSegmentation }

// Remover is a background removal oracle.
//
// Remove receives a PNG-encoded image and returns encoded image bytes with
// the background made transparent. Implementations may block for a long time;
// they should honour ctx cancellation where they can.
type Remover interface {
	Remove(ctx context.Context, png []byte) ([]byte, error)
}

// RemoverFunc adapts a plain function to the Remover interface.
type RemoverFunc func(ctx context.Context, png []byte) ([]byte, error)

// Remove calls f(ctx, png).
func (f RemoverFunc) Remove(ctx context.Context, png []byte) ([]byte, error) {
	return f(ctx, png)
}

// Adapter turns images into background-removed images using a Remover.
type Adapter struct {
	remover Remover
}

// NewAdapter creates an adapter around the given oracle.
func NewAdapter(r Remover) *Adapter {
	return &Adapter{remover: r}
}

// Segment returns a copy of img with its background rendered transparent.
//
// The image is encoded losslessly as PNG, submitted to the oracle, and the
// reply is decoded with its alpha channel intact. The result always has the
// same dimensions as img, with bounds starting at (0,0).
//
// # Errors
//
// Every failure is an *Error matching ErrSegmentation:
//   - the oracle is unreachable or returns an error
//   - the reply cannot be decoded as an image
//   - the reply's dimensions differ from the input's
func (a *Adapter) Segment(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, &Error{Op: "encode", Err: err}
	}

	out, err := a.remover.Remove(ctx, buf.Bytes())
	if err != nil {
		return nil, &Error{Op: "remove", Err: err}
	}

	decoded, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, &Error{Op: "decode", Err: err}
	}

	want := img.Bounds()
	got := decoded.Bounds()
	if got.Dx() != want.Dx() || got.Dy() != want.Dy() {
		return nil, &Error{
			Op:  "check",
			Err: fmt.Errorf("oracle returned %dx%d image for %dx%d input", got.Dx(), got.Dy(), want.Dx(), want.Dy()),
		}
	}

	return imaging.Clone(decoded), nil
}
