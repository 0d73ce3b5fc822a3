// Package scanner decodes one barcode from an RGBA pixel buffer by trying a
// fixed sequence of polarity and binarizer strategies.
package scanner

import (
	"image"
	"log/slog"
	"slices"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/binarizer"
	"github.com/MeKo-Tech/barscan/internal/luminance"
)

// Result is a successful scan.
type Result struct {
	Text     string          `json:"text"`
	Format   barcode.Format  `json:"format"`
	Points   []barcode.Point `json:"points,omitempty"`
	Strategy Strategy        `json:"strategy"`
	Attempts int             `json:"attempts"`
}

// Observer receives timing and outcome of every attempt and scan. It is
// called synchronously from Scan.
type Observer interface {
	ObserveAttempt(s Strategy, err error, d time.Duration)
	ObserveScan(res Result, err error, d time.Duration)
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithHints overrides barcode.DefaultHints.
func WithHints(h barcode.Hints) Option {
	return func(s *Scanner) {
		s.hints = barcode.Hints{
			TryHarder:       h.TryHarder,
			PossibleFormats: slices.Clone(h.PossibleFormats),
		}
	}
}

// WithLogger sets the logger for per-attempt debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(s *Scanner) { s.observer = o }
}

// WithDiagnostics includes per-strategy failures in the exhaustion message.
func WithDiagnostics(enabled bool) Option {
	return func(s *Scanner) { s.diagnostics = enabled }
}

// WithDecoderFactory replaces the symbol reader. The factory is called once
// per Scan.
func WithDecoderFactory(f func() barcode.Decoder) Option {
	return func(s *Scanner) {
		if f != nil {
			s.newDecoder = f
		}
	}
}

// Scanner holds immutable configuration only; Scan may be called from
// multiple goroutines.
type Scanner struct {
	hints       barcode.Hints
	logger      *slog.Logger
	observer    Observer
	diagnostics bool
	newDecoder  func() barcode.Decoder
}

// New returns a Scanner using barcode.DefaultHints and the gozxing reader.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		hints:      barcode.DefaultHints(),
		logger:     slog.Default(),
		newDecoder: func() barcode.Decoder { return barcode.NewReader() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hints returns the decode hints in use.
func (s *Scanner) Hints() barcode.Hints {
	return barcode.Hints{TryHarder: s.hints.TryHarder, PossibleFormats: slices.Clone(s.hints.PossibleFormats)}
}

// Scan decodes the first symbol found in buf. It fails with ErrInvalidInput
// for a malformed buffer and with an *ExhaustedError when no strategy
// succeeds.
func (s *Scanner) Scan(buf luminance.PixelBuffer) (Result, error) {
	start := time.Now()
	res, err := s.scan(buf)
	if s.observer != nil {
		s.observer.ObserveScan(res, err, time.Since(start))
	}
	return res, err
}

// ScanImage converts img to a pixel buffer and scans it.
func (s *Scanner) ScanImage(img image.Image) (Result, error) {
	if img == nil || img.Bounds().Empty() {
		return s.Scan(luminance.PixelBuffer{})
	}
	return s.Scan(luminance.PixelsFromImage(img))
}

func (s *Scanner) scan(buf luminance.PixelBuffer) (Result, error) {
	original, err := luminance.FromPixels(buf)
	if err != nil {
		return Result{}, err
	}

	dec := s.newDecoder()
	var inverted luminance.Source
	failures := make([]*AttemptError, 0, len(strategies))

	for i, st := range strategies {
		src := original
		if st.Polarity == Inverted {
			if inverted == nil {
				inverted = original.Invert()
			}
			src = inverted
		}

		t0 := time.Now()
		res, err := s.attempt(dec, st, src)
		if s.observer != nil {
			s.observer.ObserveAttempt(st, err, time.Since(t0))
		}
		if err == nil {
			res.Strategy = st
			res.Attempts = i + 1
			s.logger.Debug("barcode decoded",
				"strategy", st.String(),
				"format", res.Format.String(),
				"attempts", res.Attempts)
			return res, nil
		}

		fail := &AttemptError{Strategy: st, Err: err}
		failures = append(failures, fail)
		s.logger.Debug("strategy failed",
			"strategy", st.String(),
			"kind", string(fail.Kind()),
			"error", err)
	}

	return Result{}, &ExhaustedError{attempts: failures, detailed: s.diagnostics}
}

func (s *Scanner) attempt(dec barcode.Decoder, st Strategy, src luminance.Source) (Result, error) {
	bmp, err := binarizer.Binarize(st.Binarizer, src)
	if err != nil {
		return Result{}, err
	}
	r, err := dec.Decode(bmp, s.hints)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: r.Text, Format: r.Format, Points: r.Points}, nil
}
