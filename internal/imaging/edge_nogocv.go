//go:build !gocv

package imaging

import "errors"

func newOpenCVDetector(int) (EdgeDetector, error) {
	return nil, errors.New("opencv edge backend requires a build with -tags gocv")
}
