package scanner

import (
	"fmt"

	"github.com/MeKo-Tech/barscan/internal/binarizer"
)

// Polarity selects whether a strategy reads the image as supplied or as its
// photographic negative.
type Polarity int

const (
	Original Polarity = iota
	Inverted
)

func (p Polarity) String() string {
	switch p {
	case Original:
		return "original"
	case Inverted:
		return "inverted"
	default:
		return fmt.Sprintf("polarity(%d)", int(p))
	}
}

// Strategy pairs a polarity with a binarizer.
type Strategy struct {
	Polarity  Polarity
	Binarizer binarizer.Kind
}

func (s Strategy) String() string {
	return s.Polarity.String() + "+" + s.Binarizer.String()
}

// MarshalText renders the strategy as "polarity+binarizer".
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// strategies is ordered from cheapest and most likely to most expensive.
var strategies = [...]Strategy{
	{Original, binarizer.Hybrid},
	{Original, binarizer.GlobalHistogram},
	{Inverted, binarizer.Hybrid},
	{Inverted, binarizer.GlobalHistogram},
}

// Strategies returns the fixed attempt order.
func Strategies() []Strategy {
	out := make([]Strategy, len(strategies))
	copy(out, strategies[:])
	return out
}
