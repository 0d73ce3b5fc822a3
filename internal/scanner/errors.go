package scanner

import (
	"errors"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/binarizer"
	"github.com/MeKo-Tech/barscan/internal/luminance"
)

// Only ErrInvalidInput and ErrAllStrategiesExhausted are returned by Scan.
// The remaining kinds describe individual attempts and are reachable through
// ExhaustedError.Attempts.
var (
	ErrInvalidInput           = luminance.ErrInvalidInput
	ErrBinarizationFailed     = binarizer.ErrBinarizationFailed
	ErrSymbolNotFound         = barcode.ErrNotFound
	ErrSymbolCorrupt          = barcode.ErrCorrupt
	ErrAllStrategiesExhausted = errors.New("could not decode using any strategy")
)

// ErrorKind is a stable label for an error class, used in logs and metrics.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindInvalidInput       ErrorKind = "invalid_input"
	KindBinarizationFailed ErrorKind = "binarization_failed"
	KindSymbolNotFound     ErrorKind = "symbol_not_found"
	KindSymbolCorrupt      ErrorKind = "symbol_corrupt"
	KindExhausted          ErrorKind = "all_strategies_exhausted"
	KindUnknown            ErrorKind = "unknown"
)

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrAllStrategiesExhausted):
		return KindExhausted
	case errors.Is(err, ErrBinarizationFailed):
		return KindBinarizationFailed
	case errors.Is(err, ErrSymbolCorrupt):
		return KindSymbolCorrupt
	case errors.Is(err, ErrSymbolNotFound):
		return KindSymbolNotFound
	default:
		return KindUnknown
	}
}

// AttemptError records why one strategy failed.
type AttemptError struct {
	Strategy Strategy
	Err      error
}

func (e *AttemptError) Error() string {
	return e.Strategy.String() + ": " + e.Err.Error()
}

func (e *AttemptError) Unwrap() error { return e.Err }

// Kind classifies the underlying failure.
func (e *AttemptError) Kind() ErrorKind { return KindOf(e.Err) }

// ExhaustedError is returned once every strategy has failed. Its message is
// the bare ErrAllStrategiesExhausted text unless the scanner was built with
// diagnostics enabled.
type ExhaustedError struct {
	attempts []*AttemptError
	detailed bool
}

func (e *ExhaustedError) Error() string {
	if !e.detailed || len(e.attempts) == 0 {
		return ErrAllStrategiesExhausted.Error()
	}
	parts := make([]string, len(e.attempts))
	for i, a := range e.attempts {
		parts[i] = a.Error()
	}
	return ErrAllStrategiesExhausted.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap exposes only the aggregate sentinel.
func (e *ExhaustedError) Unwrap() error { return ErrAllStrategiesExhausted }

// Attempts returns the per-strategy failures in attempt order.
func (e *ExhaustedError) Attempts() []*AttemptError {
	out := make([]*AttemptError, len(e.attempts))
	copy(out, e.attempts)
	return out
}
