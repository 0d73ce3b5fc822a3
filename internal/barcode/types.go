package barcode

import (
	"fmt"
	"strings"

	gozxing "github.com/makiuchi-d/gozxing"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatPDF417
	FormatCode128
	FormatCode39
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

// AllFormats lists every symbology a Reader can decode. PDF_417 is part of
// the vocabulary but has no reader in gozxing and is not listed.
var AllFormats = []Format{
	FormatQR, FormatDataMatrix, FormatAztec,
	FormatCode128, FormatCode39, FormatEAN8, FormatEAN13,
	FormatUPCA, FormatUPCE, FormatITF, FormatCodabar,
}

// String returns the symbology tag reported to clients, e.g. "QR_CODE".
func (f Format) String() string {
	switch f {
	case FormatQR:
		return "QR_CODE"
	case FormatDataMatrix:
		return "DATA_MATRIX"
	case FormatAztec:
		return "AZTEC"
	case FormatPDF417:
		return "PDF_417"
	case FormatCode128:
		return "CODE_128"
	case FormatCode39:
		return "CODE_39"
	case FormatEAN8:
		return "EAN_8"
	case FormatEAN13:
		return "EAN_13"
	case FormatUPCA:
		return "UPC_A"
	case FormatUPCE:
		return "UPC_E"
	case FormatITF:
		return "ITF"
	case FormatCodabar:
		return "CODABAR"
	default:
		return "UNKNOWN"
	}
}

// Is2D reports whether f is a matrix symbology.
func (f Format) Is2D() bool {
	switch f {
	case FormatQR, FormatDataMatrix, FormatAztec, FormatPDF417:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler using the symbology tag.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via ParseFormat.
func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFormat accepts symbology tags ("EAN_13") as well as the short
// spellings used on the command line ("ean13", "ean-13").
func ParseFormat(s string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "_", "-")
	switch key {
	case "qr", "qr-code", "qrcode":
		return FormatQR, nil
	case "datamatrix", "data-matrix":
		return FormatDataMatrix, nil
	case "aztec":
		return FormatAztec, nil
	case "pdf417", "pdf-417":
		return FormatPDF417, nil
	case "code128", "code-128":
		return FormatCode128, nil
	case "code39", "code-39":
		return FormatCode39, nil
	case "ean8", "ean-8":
		return FormatEAN8, nil
	case "ean13", "ean-13":
		return FormatEAN13, nil
	case "upca", "upc-a":
		return FormatUPCA, nil
	case "upce", "upc-e":
		return FormatUPCE, nil
	case "itf", "interleaved2of5", "i2/5":
		return FormatITF, nil
	case "codabar":
		return FormatCodabar, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Decodable reports whether a Reader has a decoder for f.
func (f Format) Decodable() bool {
	for _, a := range AllFormats {
		if a == f {
			return true
		}
	}
	return false
}

// ParseFormats parses a list of format names, skipping blanks. Names of
// formats without a decoder fail with ErrUnsupportedFormat.
func ParseFormats(names []string) ([]Format, error) {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		f, err := ParseFormat(n)
		if err != nil {
			return nil, err
		}
		if !f.Decodable() {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
		}
		out = append(out, f)
	}
	return out, nil
}

// Hints narrows and tunes a decode.
type Hints struct {
	// TryHarder trades speed for a more exhaustive search.
	TryHarder bool

	// PossibleFormats restricts decoding; empty means every known format.
	PossibleFormats []Format
}

// DefaultHints returns the hints used by the scanner unless overridden.
func DefaultHints() Hints {
	return Hints{
		TryHarder: true,
		PossibleFormats: []Format{
			FormatQR, FormatCode128, FormatEAN13, FormatEAN8, FormatCode39,
			FormatUPCA, FormatUPCE, FormatDataMatrix, FormatAztec, FormatITF,
		},
	}
}

// Allows reports whether f may be returned under these hints.
func (h Hints) Allows(f Format) bool {
	if len(h.PossibleFormats) == 0 {
		return true
	}
	for _, p := range h.PossibleFormats {
		if p == f {
			return true
		}
	}
	return false
}

// Point is an image coordinate reported by a reader, such as a finder
// pattern centre or a bar edge.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Result represents a decoded barcode.
type Result struct {
	Text   string
	Format Format
	Points []Point
}

// ZXingFormat maps f to the gozxing symbology constant.
func ZXingFormat(f Format) (gozxing.BarcodeFormat, bool) {
	switch f {
	case FormatQR:
		return gozxing.BarcodeFormat_QR_CODE, true
	case FormatDataMatrix:
		return gozxing.BarcodeFormat_DATA_MATRIX, true
	case FormatAztec:
		return gozxing.BarcodeFormat_AZTEC, true
	case FormatPDF417:
		return gozxing.BarcodeFormat_PDF_417, true
	case FormatCode128:
		return gozxing.BarcodeFormat_CODE_128, true
	case FormatCode39:
		return gozxing.BarcodeFormat_CODE_39, true
	case FormatEAN8:
		return gozxing.BarcodeFormat_EAN_8, true
	case FormatEAN13:
		return gozxing.BarcodeFormat_EAN_13, true
	case FormatUPCA:
		return gozxing.BarcodeFormat_UPC_A, true
	case FormatUPCE:
		return gozxing.BarcodeFormat_UPC_E, true
	case FormatITF:
		return gozxing.BarcodeFormat_ITF, true
	case FormatCodabar:
		return gozxing.BarcodeFormat_CODABAR, true
	default:
		return 0, false
	}
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	case gozxing.BarcodeFormat_AZTEC:
		return FormatAztec
	case gozxing.BarcodeFormat_PDF_417:
		return FormatPDF417
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_EAN_8:
		return FormatEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return FormatUPCE
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	default:
		return FormatUnknown
	}
}
