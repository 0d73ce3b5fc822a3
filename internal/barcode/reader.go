package barcode

import (
	"errors"
	"fmt"
	"strings"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

var (
	// ErrNotFound means no symbol of a hinted format was located.
	ErrNotFound = errors.New("no barcode found")

	// ErrCorrupt means a symbol was located but failed checksum or format
	// validation.
	ErrCorrupt = errors.New("barcode found but failed validation")

	// ErrUnknownFormat is returned by ParseFormat for unrecognised names.
	ErrUnknownFormat = errors.New("unknown barcode format")

	// ErrUnsupportedFormat is returned by ParseFormats for a known format
	// that no reader can decode.
	ErrUnsupportedFormat = errors.New("unsupported barcode format")
)

// Decoder reads one symbol from a binarized bitmap.
type Decoder interface {
	Decode(bitmap *gozxing.BinaryBitmap, hints Hints) (Result, error)
}

var (
	matrixOrder = []Format{FormatQR, FormatDataMatrix, FormatAztec}
	linearOrder = []Format{
		FormatEAN13, FormatUPCA, FormatEAN8, FormatUPCE,
		FormatCode39, FormatCode128, FormatITF, FormatCodabar,
	}
)

// Reader dispatches a bitmap across the gozxing reader of every hinted
// format and returns the first success. Per-format readers are created on
// first use and kept for later decodes. A Reader is not safe for concurrent
// use.
type Reader struct {
	readers map[Format]gozxing.Reader
}

// NewReader returns an empty Reader.
func NewReader() *Reader {
	return &Reader{readers: make(map[Format]gozxing.Reader)}
}

var _ Decoder = (*Reader)(nil)

// Decode tries each hinted format in dispatch order. Matrix symbologies go
// first when TryHarder is set, linear ones first otherwise.
func (r *Reader) Decode(bitmap *gozxing.BinaryBitmap, hints Hints) (Result, error) {
	if bitmap == nil {
		return Result{}, fmt.Errorf("%w: nil bitmap", ErrNotFound)
	}

	zhints := make(map[gozxing.DecodeHintType]interface{})
	if hints.TryHarder {
		zhints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	var corrupt []string
	for _, f := range dispatchOrder(hints) {
		res, err := r.decodeWith(f, bitmap, zhints)
		if err == nil {
			return normalize(res, hints), nil
		}
		if errors.Is(err, ErrCorrupt) {
			corrupt = append(corrupt, f.String())
		}
	}
	if len(corrupt) > 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrCorrupt, strings.Join(corrupt, ","))
	}
	return Result{}, ErrNotFound
}

// Reset clears state kept by the underlying readers.
func (r *Reader) Reset() {
	for _, zr := range r.readers {
		zr.Reset()
	}
}

func (r *Reader) decodeWith(f Format, bitmap *gozxing.BinaryBitmap,
	hints map[gozxing.DecodeHintType]interface{}) (res *gozxing.Result, err error) {
	zr := r.reader(f)
	if zr == nil {
		return nil, ErrNotFound
	}
	defer func() {
		// gozxing readers occasionally index past malformed symbols.
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("%w: %s reader: %v", ErrCorrupt, f, p)
		}
		if err != nil {
			zr.Reset()
		}
	}()

	res, err = zr.Decode(bitmap, hints)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

func (r *Reader) reader(f Format) gozxing.Reader {
	if zr, ok := r.readers[f]; ok {
		return zr
	}
	var zr gozxing.Reader
	switch f {
	case FormatQR:
		zr = qrcode.NewQRCodeReader()
	case FormatDataMatrix:
		zr = datamatrix.NewDataMatrixReader()
	case FormatAztec:
		zr = aztec.NewAztecReader()
	case FormatEAN13:
		zr = oned.NewEAN13Reader()
	case FormatUPCA:
		zr = oned.NewUPCAReader()
	case FormatEAN8:
		zr = oned.NewEAN8Reader()
	case FormatUPCE:
		zr = oned.NewUPCEReader()
	case FormatCode39:
		zr = oned.NewCode39Reader()
	case FormatCode128:
		zr = oned.NewCode128Reader()
	case FormatITF:
		zr = oned.NewITFReader()
	case FormatCodabar:
		zr = oned.NewCodaBarReader()
	default:
		return nil
	}
	r.readers[f] = zr
	return zr
}

// dispatchOrder lists the formats to try. UPC-A is read through the EAN-13
// reader whenever EAN-13 is also allowed.
func dispatchOrder(h Hints) []Format {
	var linear []Format
	for _, f := range linearOrder {
		if !h.Allows(f) {
			continue
		}
		if f == FormatUPCA && h.Allows(FormatEAN13) {
			continue
		}
		linear = append(linear, f)
	}
	var matrix []Format
	for _, f := range matrixOrder {
		if h.Allows(f) {
			matrix = append(matrix, f)
		}
	}
	if h.TryHarder {
		return append(matrix, linear...)
	}
	return append(linear, matrix...)
}

// normalize converts a gozxing result. An EAN-13 read with a leading zero is
// a UPC-A symbol and is reported as such whenever UPC-A is allowed, which
// includes the default hints. Only EAN-13-only hints keep the EAN_13 tag.
func normalize(r *gozxing.Result, h Hints) Result {
	out := Result{
		Text:   r.GetText(),
		Format: mapFormatFromZXing(r.GetBarcodeFormat()),
	}
	if out.Format == FormatEAN13 && strings.HasPrefix(out.Text, "0") && h.Allows(FormatUPCA) {
		out.Format = FormatUPCA
		out.Text = out.Text[1:]
	}
	for _, p := range r.GetResultPoints() {
		if p == nil {
			continue
		}
		out.Points = append(out.Points, Point{X: p.GetX(), Y: p.GetY()})
	}
	return out
}

func classify(err error) error {
	var ce gozxing.ChecksumException
	var fe gozxing.FormatException
	if errors.As(err, &ce) || errors.As(err, &fe) {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return fmt.Errorf("%w: %v", ErrNotFound, err)
}
