// Package snr computes the minimum signal-to-noise ratio required by a
// modulation scheme carrying a given number of bits per symbol.
//
// The formulas model different target metrics and are not interchangeable:
//
//   - PSKSymbolErrorRate: closed-form M-PSK symbol error rate, inverted for a
//     target SER with the inverse Gaussian tail function.
//   - ShannonCapacity: the capacity bound SNR = 2^b - 1.
//   - SimplifiedLinear: rule-of-thumb QAM requirement b + offset (dB).
//   - SimplifiedLog: rule-of-thumb PSK requirement 10*log10(M) (dB).
package snr

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	PSKSymbolErrorRate Formula = "psk-ser"
	ShannonCapacity    Formula = "shannon"
	SimplifiedLinear   Formula = "linear"
	SimplifiedLog      Formula = "log"

	// DefaultFixedOffsetDB is the offset used by SimplifiedLinear
	DefaultFixedOffsetDB = 5.0
)

var (
	// ErrUndefinedRequirement is returned when a formula is evaluated outside
	// of its numeric domain, e.g. PSK with M < 2 or a non-positive linear SNR.
	ErrUndefinedRequirement = errors.New("undefined SNR requirement")

	// ErrMissingParameter is returned when a formula needs a target error rate
	// and none was supplied.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrInvalidParameter is returned for parameters outside of their valid range
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnknownFormula is returned when parsing an unknown formula name
	ErrUnknownFormula = errors.New("unknown SNR formula")
)

var formulaAliases = map[string]Formula{
	"psk-ser":  PSKSymbolErrorRate,
	"psk_ser":  PSKSymbolErrorRate,
	"shannon":  ShannonCapacity,
	"capacity": ShannonCapacity,
	"linear":   SimplifiedLinear,
	"qam":      SimplifiedLinear,
	"log":      SimplifiedLog,
	"psk":      SimplifiedLog,
}

// Formula selects the SNR requirement model
type Formula string

func (f Formula) String() string {
	return string(f)
}

// NeedsTargetErrorRate reports whether Params.TargetErrorRate must be set
func (f Formula) NeedsTargetErrorRate() bool {
	return f == PSKSymbolErrorRate
}

// Formulas returns all supported formulas in a stable order
func Formulas() []Formula {
	return []Formula{PSKSymbolErrorRate, ShannonCapacity, SimplifiedLinear, SimplifiedLog}
}

// ParseFormula parses a formula name. Matching is case-insensitive and accepts
// a few aliases, e.g. "qam" for SimplifiedLinear.
func ParseFormula(s string) (Formula, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if f, ok := formulaAliases[key]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: '%s'", ErrUnknownFormula, s)
}

func (f *Formula) UnmarshalText(text []byte) error {
	parsed, err := ParseFormula(string(text))
	if err != nil {
		return err
	}

	*f = parsed
	return nil
}

func (f Formula) MarshalText() ([]byte, error) {
	return []byte(f), nil
}

// Params holds the optional inputs of the formulas
type Params struct {
	// TargetErrorRate is the target symbol error rate, 0 < p < 1. Required by
	// PSKSymbolErrorRate only; nil means "not supplied".
	TargetErrorRate *float64

	// FixedOffsetDB is the offset added by SimplifiedLinear
	FixedOffsetDB float64
}

// DefaultParams returns Params without a target error rate and with the
// default SimplifiedLinear offset
func DefaultParams() Params {
	return Params{FixedOffsetDB: DefaultFixedOffsetDB}
}

// Check validates p against the needs of formula f
func (p Params) Check(f Formula) error {
	if p.TargetErrorRate != nil {
		ser := *p.TargetErrorRate
		if math.IsNaN(ser) || ser <= 0 || ser >= 1 {
			return fmt.Errorf("%w: target error rate must be in (0, 1): %g given", ErrInvalidParameter, ser)
		}
	}
	if f.NeedsTargetErrorRate() && p.TargetErrorRate == nil {
		return fmt.Errorf("%w: formula '%s' requires a target error rate", ErrMissingParameter, f)
	}
	if math.IsNaN(p.FixedOffsetDB) || math.IsInf(p.FixedOffsetDB, 0) {
		return fmt.Errorf("%w: fixed offset must be finite", ErrInvalidParameter)
	}
	return nil
}

// RequiredDB returns the minimum SNR in dB needed for a modulation carrying
// bitsPerSymbol bits per symbol under formula f. The result is always finite;
// domain violations are reported as ErrUndefinedRequirement.
func RequiredDB(bitsPerSymbol float64, f Formula, p Params) (float64, error) {
	if err := p.Check(f); err != nil {
		return 0, err
	}
	if math.IsNaN(bitsPerSymbol) || math.IsInf(bitsPerSymbol, 0) {
		return 0, fmt.Errorf("%w: bits per symbol must be finite", ErrUndefinedRequirement)
	}

	var db float64
	var err error
	switch f {
	case PSKSymbolErrorRate:
		db, err = pskSymbolErrorRateDB(bitsPerSymbol, *p.TargetErrorRate)
	case ShannonCapacity:
		db, err = shannonCapacityDB(bitsPerSymbol)
	case SimplifiedLinear:
		db, err = simplifiedLinearDB(bitsPerSymbol, p.FixedOffsetDB)
	case SimplifiedLog:
		db, err = simplifiedLogDB(bitsPerSymbol)
	default:
		return 0, fmt.Errorf("%w: '%s'", ErrUnknownFormula, f)
	}
	if err != nil {
		return 0, err
	}

	if math.IsNaN(db) || math.IsInf(db, 0) {
		return 0, fmt.Errorf("%w: formula '%s' produced a non-finite value for %g bits/symbol", ErrUndefinedRequirement, f, bitsPerSymbol)
	}
	return db, nil
}

// QInv is the inverse of the Gaussian right-tail function Q,
// Q^-1(p) = sqrt(2) * erfc^-1(2p)
func QInv(p float64) float64 {
	return math.Sqrt2 * math.Erfcinv(2*p)
}

// ToDB converts a linear power ratio to decibels
func ToDB(linear float64) float64 {
	return 10 * math.Log10(linear)
}

// FromDB converts decibels to a linear power ratio
func FromDB(db float64) float64 {
	return math.Pow(10, db/10)
}

func linearToDB(f Formula, linear float64) (float64, error) {
	if math.IsNaN(linear) || linear <= 0 {
		return 0, fmt.Errorf("%w: formula '%s' yields non-positive linear SNR %g", ErrUndefinedRequirement, f, linear)
	}
	return ToDB(linear), nil
}

func pskSymbolErrorRateDB(bitsPerSymbol, ser float64) (float64, error) {
	m := math.Exp2(bitsPerSymbol)
	if m < 2 {
		return 0, fmt.Errorf("%w: PSK needs M >= 2, got M = %g", ErrUndefinedRequirement, m)
	}

	denom := math.Sqrt2 * math.Sin(math.Pi/m)
	if denom <= 0 {
		return 0, fmt.Errorf("%w: sin(pi/M) vanishes for M = %g", ErrUndefinedRequirement, m)
	}

	q := QInv(ser / 2)
	linear := math.Pow(q/denom, 2)
	return linearToDB(PSKSymbolErrorRate, linear)
}

func shannonCapacityDB(bitsPerSymbol float64) (float64, error) {
	if bitsPerSymbol <= 0 {
		return 0, fmt.Errorf("%w: capacity bound needs bits per symbol > 0, got %g", ErrUndefinedRequirement, bitsPerSymbol)
	}
	return linearToDB(ShannonCapacity, math.Exp2(bitsPerSymbol)-1)
}

func simplifiedLinearDB(bitsPerSymbol, offset float64) (float64, error) {
	if bitsPerSymbol <= 0 {
		return 0, fmt.Errorf("%w: bits per symbol must be > 0, got %g", ErrUndefinedRequirement, bitsPerSymbol)
	}
	return bitsPerSymbol + offset, nil
}

func simplifiedLogDB(bitsPerSymbol float64) (float64, error) {
	if bitsPerSymbol <= 0 {
		return 0, fmt.Errorf("%w: bits per symbol must be > 0, got %g", ErrUndefinedRequirement, bitsPerSymbol)
	}
	// 10*log10(2^b) without forming 2^b, which overflows for large b
	return 10 * bitsPerSymbol * math.Log10(2), nil
}
