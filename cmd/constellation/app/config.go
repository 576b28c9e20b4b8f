package app

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/roman-kulish/link-budget/internal/constellation"
	"github.com/roman-kulish/link-budget/internal/fec"
	"github.com/roman-kulish/link-budget/internal/modulation"
	"github.com/roman-kulish/link-budget/internal/render"
)

const DefaultText = "antenna"

type Config struct {
	LogLevel      slog.Level
	Text          string
	Bits          []string
	Family        modulation.Family
	BitsPerSymbol int
	FEC           fec.Config
	OutputFile    string
	Theme         render.ColorTheme
	NoLabels      bool
	NoColor       bool
	Metrics       string
}

func NewConfig() *Config {
	return &Config{
		LogLevel: slog.LevelInfo,
		Text:     DefaultText,
		Family:   modulation.QAM,
		Theme:    render.DefaultColorTheme,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return NewConfigFromArgs(os.Args[0], os.Args[1:])
}

func NewConfigFromArgs(name string, args []string) (*Config, error) {
	c := NewConfig()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	var logLevel, bits, family, fecScheme, theme string
	fs.StringVar(&logLevel, "log-level", "info", "Log level. [debug, info, warn, error]")
	fs.StringVar(&c.Text, "text", DefaultText, "Text to map, one 8-bit symbol per byte unless -bits-per-symbol is set")
	fs.StringVar(&bits, "bits", "", "Comma separated bit strings to map instead of text (e.g. 0000,0101)")
	fs.StringVar(&family, "family", string(modulation.QAM), "Modulation family. [qam, psk, ask, fsk, css]")
	fs.IntVar(&c.BitsPerSymbol, "bits-per-symbol", 0, "Re-chunk the text bytes into symbols of this many bits")
	fs.StringVar(&fecScheme, "fec", "", "Reed-Solomon data:parity shards appended to the text (e.g. 4:2)")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the scatter plot image (.png, .jpeg)")
	fs.StringVar(&theme, "theme", string(render.DefaultColorTheme), "Color theme. [classic, grayscale, jungle, thermal, marine]")
	fs.BoolVar(&c.NoLabels, "no-labels", false, "Do not annotate points with their bits")
	fs.BoolVar(&c.NoColor, "no-color", false, "Disable coloured table output")
	fs.StringVar(&c.Metrics, "metrics", "", "Path to the Prometheus textfile")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var errs []error
	fs.Visit(func(f *flag.Flag) {
		var err error
		switch f.Name {
		case "log-level":
			err = c.LogLevel.UnmarshalText([]byte(logLevel))
		case "bits":
			c.Bits = splitBits(bits)
		case "family":
			c.Family, err = modulation.ParseFamily(family)
		case "fec":
			c.FEC, err = fec.ParseConfig(fecScheme)
		case "theme":
			c.Theme, err = render.ParseColorTheme(theme)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("-%s: %w", f.Name, err))
		}
	})
	if err := errors.Join(errs...); err != nil {
		fs.Usage()
		return nil, err
	}

	if err := c.Validate(); err != nil {
		fs.Usage()
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if len(c.Bits) == 0 && c.Text == "" {
		return errors.New("text or bits are required")
	}
	if len(c.Bits) > 0 && (c.FEC.Enabled() || c.BitsPerSymbol != 0) {
		return errors.New("-fec and -bits-per-symbol apply to text only")
	}
	if c.BitsPerSymbol < 0 || c.BitsPerSymbol > constellation.MaxBits {
		return fmt.Errorf("%w: bits per symbol must be in [1, %d]: %d given", constellation.ErrInvalidBits, constellation.MaxBits, c.BitsPerSymbol)
	}
	if c.FEC.Enabled() {
		if err := c.FEC.Validate(); err != nil {
			return err
		}
	}
	if c.OutputFile != "" {
		if _, err := render.FormatFromPath(c.OutputFile); err != nil {
			return fmt.Errorf("output file: %w", err)
		}
	}
	return nil
}

func splitBits(s string) []string {
	var out []string
	for _, field := range strings.Split(s, ",") {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}
