// Package binarizer converts luminance sources into black/white bitmaps.
//
// Two thresholding algorithms are provided. GlobalHistogram picks a single
// black point from a coarse histogram of the whole image and suits evenly lit
// input. Hybrid thresholds 8x8 blocks against the average of their
// neighbourhood and copes with shadows and gradients. Both satisfy
// gozxing.Binarizer so that gozxing readers can consume them directly.
package binarizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/makiuchi-d/gozxing"

	"github.com/MeKo-Tech/barscan/internal/luminance"
)

var (
	// ErrBinarizationFailed is returned when a source has no usable contrast
	// for the chosen algorithm.
	ErrBinarizationFailed = errors.New("binarization failed")

	// ErrUnknownKind is returned for a Kind outside the defined set.
	ErrUnknownKind = errors.New("unknown binarizer")
)

// Kind selects a thresholding algorithm.
type Kind int

const (
	Hybrid Kind = iota
	GlobalHistogram
)

func (k Kind) String() string {
	switch k {
	case Hybrid:
		return "hybrid"
	case GlobalHistogram:
		return "global-histogram"
	default:
		return fmt.Sprintf("binarizer(%d)", int(k))
	}
}

// ParseKind accepts "hybrid" and "global-histogram" (or "histogram", "global").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hybrid":
		return Hybrid, nil
	case "global-histogram", "global_histogram", "histogram", "global":
		return GlobalHistogram, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// New builds a binarizer of the given kind over src and computes its black
// matrix, so that a degenerate source fails here rather than inside a reader.
func New(kind Kind, src luminance.Source) (gozxing.Binarizer, error) {
	var b interface {
		gozxing.Binarizer
		blackMatrix() (*gozxing.BitMatrix, error)
	}
	switch kind {
	case Hybrid:
		b = newHybrid(src)
	case GlobalHistogram:
		b = newGlobalHistogram(src)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if _, err := b.blackMatrix(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBinarizationFailed, kind, err)
	}
	return b, nil
}

// Binarize pairs src with a binarizer of the given kind.
func Binarize(kind Kind, src luminance.Source) (*gozxing.BinaryBitmap, error) {
	b, err := New(kind, src)
	if err != nil {
		return nil, err
	}
	bmp, err := gozxing.NewBinaryBitmap(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBinarizationFailed, err)
	}
	return bmp, nil
}
