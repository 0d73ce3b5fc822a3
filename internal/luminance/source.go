// Package luminance adapts RGBA pixel buffers to 8-bit luminance sources
// consumed by the binarizers and symbol readers.
package luminance

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a pixel buffer has non-positive
	// dimensions or a data length that does not match them.
	ErrInvalidInput = errors.New("invalid pixel buffer")

	// ErrRowOutOfRange is returned by Row for y outside [0, Height).
	ErrRowOutOfRange = errors.New("row out of range")
)

// BytesPerPixel is the stride of one RGBA pixel in a PixelBuffer.
const BytesPerPixel = 4

// PixelBuffer is a caller-owned RGBA image laid out row-major, top to bottom.
// Alpha is carried but ignored.
type PixelBuffer struct {
	Width  int
	Height int
	Data   []byte
}

// Validate reports whether the buffer dimensions and data length agree.
func (b PixelBuffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidInput, b.Width, b.Height)
	}
	if want := b.Width * b.Height * BytesPerPixel; len(b.Data) != want {
		return fmt.Errorf("%w: data length %d, want %d", ErrInvalidInput, len(b.Data), want)
	}
	return nil
}

// Source exposes an image as 8-bit luminance, 0 black through 255 white.
// Row(y)[x] == Matrix()[y*Width()+x] holds for every source.
type Source interface {
	Width() int
	Height() int
	// Row returns a fresh slice of Width() luminance values for row y.
	Row(y int) ([]byte, error)
	// Matrix returns a fresh slice of Width()*Height() luminance values.
	Matrix() []byte
	// Invert returns a source reporting 255-v for every pixel.
	Invert() Source
}

// FromPixels wraps buf as a Source. The buffer is read, never written.
func FromPixels(buf PixelBuffer) (Source, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	return &rgbaSource{width: buf.Width, height: buf.Height, data: buf.Data}, nil
}

// Luma converts one RGB triple with the fixed-point BT.601 weights.
func Luma(r, g, b byte) byte {
	return byte((306*uint32(r) + 601*uint32(g) + 117*uint32(b)) >> 10)
}

type rgbaSource struct {
	width  int
	height int
	data   []byte
}

func (s *rgbaSource) Width() int { return s.width }
func (s *rgbaSource) Height() int { return s.height }

func (s *rgbaSource) Row(y int) ([]byte, error) {
	if y < 0 || y >= s.height {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrRowOutOfRange, y, s.height)
	}
	row := make([]byte, s.width)
	s.fillRow(y, row)
	return row, nil
}

func (s *rgbaSource) Matrix() []byte {
	m := make([]byte, s.width*s.height)
	for y := 0; y < s.height; y++ {
		s.fillRow(y, m[y*s.width:(y+1)*s.width])
	}
	return m
}

func (s *rgbaSource) fillRow(y int, dst []byte) {
	off := y * s.width * BytesPerPixel
	for x := range dst {
		p := s.data[off : off+3]
		dst[x] = Luma(p[0], p[1], p[2])
		off += BytesPerPixel
	}
}

func (s *rgbaSource) Invert() Source { return &invertedSource{src: s} }

// invertedSource computes 255-v on access; the wrapped source is untouched.
type invertedSource struct {
	src Source
}

func (s *invertedSource) Width() int { return s.src.Width() }
func (s *invertedSource) Height() int { return s.src.Height() }

func (s *invertedSource) Row(y int) ([]byte, error) {
	row, err := s.src.Row(y)
	if err != nil {
		return nil, err
	}
	invert(row)
	return row, nil
}

func (s *invertedSource) Matrix() []byte {
	m := s.src.Matrix()
	invert(m)
	return m
}

// Invert unwraps the decorator.
func (s *invertedSource) Invert() Source { return s.src }

func invert(b []byte) {
	for i, v := range b {
		b[i] = 255 - v
	}
}

// Invert returns src with every luminance value v replaced by 255-v.
func Invert(src Source) Source {
	return src.Invert()
}
