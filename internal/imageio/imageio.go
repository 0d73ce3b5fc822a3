// Package imageio decodes image files into the pixel layout the scanner
// consumes. It registers the standard and golang.org/x/image codecs and
// honours EXIF orientation.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP

	"github.com/MeKo-Tech/barscan/internal/luminance"
)

// ErrUnsupportedFormat is returned for files whose extension or content is
// not a registered image format.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// SupportedExtensions lists file extensions accepted by LoadFile.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// DecodeError records which step of loading an image failed.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("image %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Metadata captures lightweight file and pixel information.
type Metadata struct {
	Path      string `json:"path,omitempty"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// IsSupported reports whether the path has a supported image extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Decode reads a whole image from r. The returned string is the registered
// format name ("png", "jpeg", ...).
func Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", &DecodeError{Op: "read", Err: err}
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes an in-memory image file.
func DecodeBytes(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &DecodeError{Op: "decode", Err: errors.New("empty input")}
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			err = ErrUnsupportedFormat
		}
		return nil, "", &DecodeError{Op: "decode", Err: err}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", &DecodeError{Op: "decode", Err: err}
	}
	return img, format, nil
}

// LoadFile opens and decodes an image file.
func LoadFile(path string) (image.Image, Metadata, error) {
	if path == "" {
		return nil, Metadata{}, &DecodeError{Op: "load", Err: errors.New("empty path")}
	}
	if !IsSupported(path) {
		return nil, Metadata{}, &DecodeError{Op: "load", Err: fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))}
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: reading a user-supplied image path is the point
	if err != nil {
		return nil, Metadata{}, &DecodeError{Op: "load", Err: err}
	}

	img, format, err := DecodeBytes(data)
	if err != nil {
		return nil, Metadata{}, err
	}

	b := img.Bounds()
	return img, Metadata{
		Path:      path,
		Format:    format,
		SizeBytes: int64(len(data)),
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, nil
}

// ToPixels converts img to the straight-alpha RGBA buffer the scanner reads.
func ToPixels(img image.Image) luminance.PixelBuffer {
	return luminance.PixelsFromImage(img)
}
