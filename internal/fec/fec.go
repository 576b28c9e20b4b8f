// Package fec wraps a systematic Reed-Solomon block code. Its rate feeds the
// link budget coding rate and its encoded blocks are mapped to symbols.
package fec

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/reedsolomon"
)

// MaxShards is the largest total shard count of the GF(2^8) code
const MaxShards = 256

var (
	ErrInvalidScheme = errors.New("invalid FEC scheme")
	ErrEmptyPayload  = errors.New("empty FEC payload")
)

// Config is the YAML form of a scheme
type Config struct {
	DataShards   int `yaml:"dataShards" json:"dataShards"`
	ParityShards int `yaml:"parityShards" json:"parityShards"`
}

// Enabled reports whether any shard is configured
func (c Config) Enabled() bool {
	return c.DataShards != 0 || c.ParityShards != 0
}

func (c Config) Validate() error {
	if c.DataShards < 1 {
		return fmt.Errorf("%w: data shards must be >= 1: %d given", ErrInvalidScheme, c.DataShards)
	}
	if c.ParityShards < 1 {
		return fmt.Errorf("%w: parity shards must be >= 1: %d given", ErrInvalidScheme, c.ParityShards)
	}
	if c.DataShards+c.ParityShards > MaxShards {
		return fmt.Errorf("%w: at most %d shards in total: %d given", ErrInvalidScheme, MaxShards, c.DataShards+c.ParityShards)
	}
	return nil
}

// ParseConfig parses the "k:m" form, e.g. "4:2"
func ParseConfig(s string) (Config, error) {
	k, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Config{}, fmt.Errorf("%w: expected data:parity, got '%s'", ErrInvalidScheme, s)
	}

	data, err := strconv.Atoi(k)
	if err != nil {
		return Config{}, fmt.Errorf("%w: data shards: %w", ErrInvalidScheme, err)
	}
	parity, err := strconv.Atoi(m)
	if err != nil {
		return Config{}, fmt.Errorf("%w: parity shards: %w", ErrInvalidScheme, err)
	}

	c := Config{DataShards: data, ParityShards: parity}
	if err = c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

type Scheme struct {
	config Config
	enc    reedsolomon.Encoder
}

// NewScheme creates a code with k data and m parity shards
func NewScheme(k, m int) (*Scheme, error) {
	c := Config{DataShards: k, ParityShards: m}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	enc, err := reedsolomon.New(k, m)
	if err != nil {
		return nil, fmt.Errorf("creating Reed-Solomon encoder: %w", err)
	}
	return &Scheme{config: c, enc: enc}, nil
}

func (s *Scheme) Config() Config {
	return s.config
}

// Rate is the code rate k / (k + m)
func (s *Scheme) Rate() float64 {
	return float64(s.config.DataShards) / float64(s.config.DataShards+s.config.ParityShards)
}

func (s *Scheme) String() string {
	return fmt.Sprintf("RS(%d,%d)", s.config.DataShards+s.config.ParityShards, s.config.DataShards)
}

// Block is an encoded payload: DataShards data shards followed by
// ParityShards parity shards of equal length
type Block struct {
	Shards [][]byte
	Size   int
}

// Bytes concatenates all shards, data first
func (b Block) Bytes() []byte {
	return bytes.Join(b.Shards, nil)
}

// Encode splits payload into data shards and computes the parity shards
func (s *Scheme) Encode(payload []byte) (Block, error) {
	if len(payload) == 0 {
		return Block{}, ErrEmptyPayload
	}

	shards, err := s.enc.Split(bytes.Clone(payload))
	if err != nil {
		return Block{}, fmt.Errorf("splitting payload: %w", err)
	}
	if err = s.enc.Encode(shards); err != nil {
		return Block{}, fmt.Errorf("encoding parity: %w", err)
	}
	return Block{Shards: shards, Size: len(payload)}, nil
}

// Verify reports whether the parity shards of b match its data
func (s *Scheme) Verify(b Block) (bool, error) {
	ok, err := s.enc.Verify(b.Shards)
	if err != nil {
		return false, fmt.Errorf("verifying block: %w", err)
	}
	return ok, nil
}

// Decode rebuilds missing shards, marked nil, and returns the payload
func (s *Scheme) Decode(b Block) ([]byte, error) {
	shards := make([][]byte, len(b.Shards))
	copy(shards, b.Shards)

	if err := s.enc.ReconstructData(shards); err != nil {
		return nil, fmt.Errorf("reconstructing block: %w", err)
	}

	var buf bytes.Buffer
	if err := s.enc.Join(&buf, shards, b.Size); err != nil {
		return nil, fmt.Errorf("joining shards: %w", err)
	}
	return buf.Bytes(), nil
}
