// Package constellation maps fixed-length bit strings to 2-D constellation
// coordinates for visualisation.
package constellation

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/roman-kulish/link-budget/internal/modulation"
)

// MaxBits is the longest symbol Map accepts. The value of the bit string must
// fit an uint64 together with the 2^n scale of the PSK and ASK rules.
const MaxBits = 63

// CSS symbols are laid out on a grid this wide. The grid is a placeholder, not
// a chirp spread spectrum constellation.
const cssGridWidth = 5

var (
	ErrUnsupportedFamily = modulation.ErrUnsupportedFamily
	ErrOddLengthForQAM   = errors.New("QAM symbol must have an even number of bits")
	ErrInvalidBits       = errors.New("invalid bit string")
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%.4g, %.4g)", p.X, p.Y)
}

// Mapping pairs an input symbol with its coordinate or the mapping failure
type Mapping struct {
	Bits  string
	Point Point
	Err   error
}

// Map returns the coordinate of a bit string under family fam:
//
//	QAM  (I - mid, Q - mid), I and Q from the two halves, mid = (2^(n/2) - 1) / 2
//	PSK  (cos a, sin a), a = 2*pi*v / 2^n
//	ASK  (2*v / (2^n - 1) - 1, 0)
//	FSK  (v, 0)
//	CSS  (v mod 5, v div 5)
func Map(bits string, fam modulation.Family) (Point, error) {
	v, err := parseBits(bits)
	if err != nil {
		return Point{}, err
	}
	n := len(bits)

	switch fam {
	case modulation.QAM:
		return mapQAM(v, n)
	case modulation.PSK:
		angle := 2 * math.Pi * float64(v) / math.Exp2(float64(n))
		return Point{X: math.Cos(angle), Y: math.Sin(angle)}, nil
	case modulation.ASK:
		amplitude := float64(v)/(math.Exp2(float64(n))-1)*2 - 1
		return Point{X: amplitude}, nil
	case modulation.FSK:
		return Point{X: float64(v)}, nil
	case modulation.CSS:
		return Point{X: float64(v % cssGridWidth), Y: float64(v / cssGridWidth)}, nil
	default:
		return Point{}, fmt.Errorf("%w: '%s'", ErrUnsupportedFamily, fam)
	}
}

// MapAll maps every symbol and preserves input order. A failed symbol is
// reported in its Mapping and does not stop the batch.
func MapAll(symbols []string, fam modulation.Family) []Mapping {
	out := make([]Mapping, len(symbols))
	for i, s := range symbols {
		p, err := Map(s, fam)
		out[i] = Mapping{Bits: s, Point: p, Err: err}
	}
	return out
}

func mapQAM(v uint64, n int) (Point, error) {
	if n%2 != 0 {
		return Point{}, fmt.Errorf("%w: %d bits given", ErrOddLengthForQAM, n)
	}

	half := uint(n / 2)
	i := v >> half
	q := v & (1<<half - 1)
	mid := (math.Exp2(float64(half)) - 1) / 2

	return Point{X: float64(i) - mid, Y: float64(q) - mid}, nil
}

func parseBits(bits string) (uint64, error) {
	if len(bits) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidBits)
	}
	if len(bits) > MaxBits {
		return 0, fmt.Errorf("%w: %d bits exceed the maximum of %d", ErrInvalidBits, len(bits), MaxBits)
	}
	for _, c := range bits {
		if c != '0' && c != '1' {
			return 0, fmt.Errorf("%w: '%s' contains %q", ErrInvalidBits, bits, c)
		}
	}

	v, err := strconv.ParseUint(bits, 2, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidBits, err)
	}
	return v, nil
}
