package budget

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roman-kulish/link-budget/internal/snr"
)

const (
	DefaultOperatingSNRDB           = 20.0
	DefaultSpectralEfficiencyFactor = 1.0
	DefaultCodingRate               = 1.0
)

const (
	// DeratingLinear scales the target rate by operating/required SNR in dB
	DeratingLinear Derating = "linear"

	// DeratingNone always reports the target rate
	DeratingNone Derating = "none"

	// DeratingCapacity caps the target rate at the Shannon capacity of the
	// required bandwidth at the operating SNR
	DeratingCapacity Derating = "capacity"
)

var ErrInvalidConfig = errors.New("invalid link budget config")

// Derating selects how effective throughput is reduced when the operating SNR
// falls short of the requirement
type Derating string

func ParseDerating(s string) (Derating, error) {
	switch d := Derating(strings.ToLower(strings.TrimSpace(s))); d {
	case DeratingLinear, DeratingNone, DeratingCapacity:
		return d, nil
	case "":
		return DeratingLinear, nil
	default:
		return "", fmt.Errorf("%w: unknown derating policy '%s'", ErrInvalidConfig, s)
	}
}

func (d *Derating) UnmarshalText(text []byte) error {
	parsed, err := ParseDerating(string(text))
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

// Config holds the per-call parameters of the engine. Nothing is shared
// between calls, so every Compute is reproducible from its inputs.
type Config struct {
	OperatingSNRDB           float64  `yaml:"operatingSnrDb" json:"operatingSnrDb"`
	SpectralEfficiencyFactor float64  `yaml:"spectralEfficiencyFactor" json:"spectralEfficiencyFactor"`
	FixedOffsetDB            float64  `yaml:"fixedOffsetDb" json:"fixedOffsetDb"`
	CodingRate               float64  `yaml:"codingRate" json:"codingRate"`
	TargetErrorRate          *float64 `yaml:"targetErrorRate,omitempty" json:"targetErrorRate,omitempty"`
	Derating                 Derating `yaml:"derating" json:"derating"`
}

func DefaultConfig() Config {
	return Config{
		OperatingSNRDB:           DefaultOperatingSNRDB,
		SpectralEfficiencyFactor: DefaultSpectralEfficiencyFactor,
		FixedOffsetDB:            snr.DefaultFixedOffsetDB,
		CodingRate:               DefaultCodingRate,
		Derating:                 DeratingLinear,
	}
}

// Params returns the SNR formula parameters carried by the config
func (c Config) Params() snr.Params {
	return snr.Params{
		TargetErrorRate: c.TargetErrorRate,
		FixedOffsetDB:   c.FixedOffsetDB,
	}
}

func (c Config) Validate() error {
	if !isFinite(c.OperatingSNRDB) {
		return fmt.Errorf("%w: operating SNR must be finite", ErrInvalidConfig)
	}
	if !isFinite(c.SpectralEfficiencyFactor) || c.SpectralEfficiencyFactor <= 0 {
		return fmt.Errorf("%w: spectral efficiency factor must be > 0: %g given", ErrInvalidConfig, c.SpectralEfficiencyFactor)
	}
	if !isFinite(c.CodingRate) || c.CodingRate <= 0 || c.CodingRate > 1 {
		return fmt.Errorf("%w: coding rate must be in (0, 1]: %g given", ErrInvalidConfig, c.CodingRate)
	}
	if _, err := ParseDerating(string(c.Derating)); err != nil {
		return err
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
