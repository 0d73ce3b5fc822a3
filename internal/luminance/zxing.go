package luminance

import (
	"errors"
	"strings"

	"github.com/makiuchi-d/gozxing"
)

var errTransformUnsupported = errors.New("luminance: crop and rotation are not supported")

// ZXing exposes src through the gozxing LuminanceSource interface so that
// gozxing binarizers and readers can consume it.
func ZXing(src Source) gozxing.LuminanceSource {
	if z, ok := src.(*zxingSource); ok {
		return z.src
	}
	return &zxingAdapter{src: src}
}

// FromZXing wraps a gozxing LuminanceSource as a Source.
func FromZXing(src gozxing.LuminanceSource) Source {
	if a, ok := src.(*zxingAdapter); ok {
		return a.src
	}
	return &zxingSource{src: src}
}

type zxingAdapter struct {
	src Source
}

func (a *zxingAdapter) GetRow(y int, row []byte) ([]byte, error) {
	r, err := a.src.Row(y)
	if err != nil {
		return nil, err
	}
	if len(row) >= len(r) {
		copy(row, r)
		return row[:len(r)], nil
	}
	return r, nil
}

func (a *zxingAdapter) GetMatrix() []byte { return a.src.Matrix() }
func (a *zxingAdapter) GetWidth() int { return a.src.Width() }
func (a *zxingAdapter) GetHeight() int { return a.src.Height() }
func (a *zxingAdapter) IsCropSupported() bool { return false }

func (a *zxingAdapter) Crop(_, _, _, _ int) (gozxing.LuminanceSource, error) {
	return nil, errTransformUnsupported
}

func (a *zxingAdapter) IsRotateSupported() bool { return false }

func (a *zxingAdapter) Invert() gozxing.LuminanceSource {
	return ZXing(a.src.Invert())
}

func (a *zxingAdapter) RotateCounterClockwise() (gozxing.LuminanceSource, error) {
	return nil, errTransformUnsupported
}

func (a *zxingAdapter) RotateCounterClockwise45() (gozxing.LuminanceSource, error) {
	return nil, errTransformUnsupported
}

// String renders the source as ASCII art, darkest pixels as '#'.
func (a *zxingAdapter) String() string {
	w, h := a.src.Width(), a.src.Height()
	m := a.src.Matrix()
	var sb strings.Builder
	sb.Grow(h * (w + 1))
	for y := 0; y < h; y++ {
		for _, v := range m[y*w : (y+1)*w] {
			switch {
			case v < 0x40:
				sb.WriteByte('#')
			case v < 0x80:
				sb.WriteByte('+')
			case v < 0xC0:
				sb.WriteByte('.')
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

type zxingSource struct {
	src gozxing.LuminanceSource
}

func (s *zxingSource) Width() int { return s.src.GetWidth() }
func (s *zxingSource) Height() int { return s.src.GetHeight() }

func (s *zxingSource) Row(y int) ([]byte, error) {
	if y < 0 || y >= s.src.GetHeight() {
		return nil, ErrRowOutOfRange
	}
	r, err := s.src.GetRow(y, nil)
	if err != nil {
		return nil, err
	}
	out := make([]byte, s.src.GetWidth())
	copy(out, r)
	return out, nil
}

func (s *zxingSource) Matrix() []byte {
	m := s.src.GetMatrix()
	out := make([]byte, len(m))
	copy(out, m)
	return out
}

func (s *zxingSource) Invert() Source { return &invertedSource{src: s} }
