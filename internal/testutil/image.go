package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/luminance"
)

// SymbolConfig describes a synthetic barcode image.
type SymbolConfig struct {
	Text       string
	Format     barcode.Format
	Width      int
	Height     int
	Margin     int // quiet zone; 0 keeps the writer default
	Foreground color.Color
	Background color.Color
}

// DefaultSymbolConfig returns a 200x200 black-on-white QR configuration.
func DefaultSymbolConfig(text string) SymbolConfig {
	return SymbolConfig{
		Text:       text,
		Format:     barcode.FormatQR,
		Width:      200,
		Height:     200,
		Foreground: color.Black,
		Background: color.White,
	}
}

// GenerateSymbol renders a symbol with the gozxing writer for its format.
func GenerateSymbol(cfg SymbolConfig) (*image.NRGBA, error) {
	var w gozxing.Writer
	switch cfg.Format {
	case barcode.FormatQR:
		w = qrcode.NewQRCodeWriter()
	case barcode.FormatEAN13:
		w = oned.NewEAN13Writer()
	case barcode.FormatEAN8:
		w = oned.NewEAN8Writer()
	case barcode.FormatUPCA:
		w = oned.NewUPCAWriter()
	case barcode.FormatCode128:
		w = oned.NewCode128Writer()
	case barcode.FormatCode39:
		w = oned.NewCode39Writer()
	default:
		return nil, fmt.Errorf("no writer for %s", cfg.Format)
	}
	zf, _ := barcode.ZXingFormat(cfg.Format)

	hints := make(map[gozxing.EncodeHintType]interface{})
	if cfg.Margin > 0 {
		hints[gozxing.EncodeHintType_MARGIN] = cfg.Margin
	}
	bm, err := w.Encode(cfg.Text, zf, cfg.Width, cfg.Height, hints)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cfg.Format, err)
	}

	fg, bg := cfg.Foreground, cfg.Background
	if fg == nil {
		fg = color.Black
	}
	if bg == nil {
		bg = color.White
	}
	img := image.NewNRGBA(image.Rect(0, 0, bm.GetWidth(), bm.GetHeight()))
	for y := 0; y < bm.GetHeight(); y++ {
		for x := 0; x < bm.GetWidth(); x++ {
			if bm.Get(x, y) {
				img.Set(x, y, fg)
			} else {
				img.Set(x, y, bg)
			}
		}
	}
	return img, nil
}

// Symbol is GenerateSymbol for tests.
func Symbol(t *testing.T, cfg SymbolConfig) *image.NRGBA {
	t.Helper()
	img, err := GenerateSymbol(cfg)
	require.NoError(t, err)
	return img
}

// QRImage renders text as a size x size black-on-white QR code.
func QRImage(t *testing.T, text string, size int) *image.NRGBA {
	t.Helper()
	cfg := DefaultSymbolConfig(text)
	cfg.Width, cfg.Height = size, size
	return Symbol(t, cfg)
}

// EAN13Image renders a 13-digit EAN code.
func EAN13Image(t *testing.T, digits string) *image.NRGBA {
	t.Helper()
	cfg := DefaultSymbolConfig(digits)
	cfg.Format = barcode.FormatEAN13
	cfg.Width, cfg.Height = 300, 120
	return Symbol(t, cfg)
}

// Invert returns a photographic negative of img.
func Invert(img image.Image) *image.NRGBA {
	return imaging.Invert(img)
}

// NoiseImage fills a w x h image with seeded random opaque pixels.
func NoiseImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // G404: deterministic test data
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
	return img
}

// BlankImage returns a w x h image of a single colour.
func BlankImage(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

// Pixels converts img into the buffer layout the scanner consumes.
func Pixels(img image.Image) luminance.PixelBuffer {
	return luminance.PixelsFromImage(img)
}

// EncodePNG returns img as PNG bytes.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// SaveImage saves an image to the specified path. The encoder is chosen from
// the file extension.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)
	require.NoError(t, imaging.Save(img, path), "Failed to save image %s", path)
}

// WriteSymbolFile renders cfg and saves it as dir/name, returning the path.
func WriteSymbolFile(t *testing.T, dir, name string, cfg SymbolConfig) string {
	t.Helper()
	path := filepath.Join(dir, name)
	SaveImage(t, Symbol(t, cfg), path)
	return path
}
