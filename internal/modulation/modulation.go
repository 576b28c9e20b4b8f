package modulation

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

const (
	QAM Family = "QAM"
	PSK Family = "PSK"
	ASK Family = "ASK"
	FSK Family = "FSK"
	CSS Family = "CSS" // Chirp Spread Spectrum
)

var (
	// ErrInvalidOrder is returned for modulation orders that are not 2^k, k >= 1
	ErrInvalidOrder = errors.New("invalid modulation order")

	// ErrUnsupportedFamily is returned for family tags outside of QAM, PSK, ASK, FSK and CSS
	ErrUnsupportedFamily = errors.New("unsupported modulation family")
)

var validFamilies = map[Family]struct{}{
	QAM: {},
	PSK: {},
	ASK: {},
	FSK: {},
	CSS: {},
}

// Family is a modulation family tag used by the symbol mapper
type Family string

func (f Family) String() string {
	return string(f)
}

// Families returns all supported families in a stable order
func Families() []Family {
	return []Family{QAM, PSK, ASK, FSK, CSS}
}

// ParseFamily parses a family tag, case-insensitive
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := validFamilies[f]; !ok {
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedFamily, s)
	}
	return f, nil
}

func (f *Family) UnmarshalText(text []byte) error {
	parsed, err := ParseFamily(string(text))
	if err != nil {
		return err
	}

	*f = parsed
	return nil
}

// Order is a modulation order M, the number of distinct symbols. A valid Order
// is always a power of two greater than one.
type Order int

// NewOrder validates m and returns it as an Order
func NewOrder(m int) (Order, error) {
	if m <= 1 {
		return 0, fmt.Errorf("%w: %d carries no information, must be greater than 1", ErrInvalidOrder, m)
	}
	if m&(m-1) != 0 {
		return 0, fmt.Errorf("%w: %d is not a power of two", ErrInvalidOrder, m)
	}
	return Order(m), nil
}

// BitsPerSymbol returns log2(M). It is exact because M is a power of two.
func (o Order) BitsPerSymbol() int {
	return bits.TrailingZeros(uint(o))
}

func (o Order) Int() int {
	return int(o)
}
