package app

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/link-budget/internal/budget"
	"github.com/roman-kulish/link-budget/internal/fec"
	"github.com/roman-kulish/link-budget/internal/render"
	"github.com/roman-kulish/link-budget/internal/snr"
)

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"

	DefaultDataRate DataRate = 100e6
)

var DefaultOrders = []int{2, 4, 8, 16, 32, 64, 512, 1024, 2048, 4096}

var validOutputFormats = map[OutputFormat]struct{}{
	OutputTable: {},
	OutputJSON:  {},
}

type OutputFormat string

// DataRate is a bit rate in bits per second. It accepts plain numbers such as
// 100e6 and SI strings such as 100Mbps.
type DataRate float64

func ParseDataRate(s string) (DataRate, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return DataRate(v), nil
	}

	v, unit, err := humanize.ParseSI(s)
	if err != nil {
		return 0, fmt.Errorf("invalid data rate '%s': %w", s, err)
	}
	switch strings.ToLower(unit) {
	case "", "bps", "b/s", "bit/s":
	default:
		return 0, fmt.Errorf("invalid data rate unit '%s'", unit)
	}
	return DataRate(v), nil
}

func (r *DataRate) UnmarshalYAML(value *yaml.Node) error {
	rate, err := ParseDataRate(value.Value)
	if err != nil {
		return fmt.Errorf("app.DataRate: %w", err)
	}

	*r = rate
	return nil
}

func (r DataRate) String() string {
	return humanize.SIWithDigits(float64(r), 2, "bps")
}

// Config represents the link budget tool configuration
type Config struct {
	Settings Settings     `yaml:"settings"`
	Budget   BudgetConfig `yaml:"budget"`
	FEC      fec.Config   `yaml:"fec"`
	Output   OutputConfig `yaml:"output"`

	// Archive browsing, command line only
	ListRuns bool       `yaml:"-"`
	ShowRun  int64      `yaml:"-"`
	Filter   RunsFilter `yaml:"-"`
}

// RunsFilter narrows down the -list-runs output
type RunsFilter struct {
	Formula snr.Formula
	Since   time.Duration
}

// Settings represents global application settings
type Settings struct {
	LogLevel slog.Level `yaml:"logLevel"`
}

// BudgetConfig represents the engine inputs
type BudgetConfig struct {
	DataRate    DataRate    `yaml:"dataRate"`
	Orders      []int       `yaml:"orders"`
	Formula     snr.Formula `yaml:"formula"`
	Concurrency int         `yaml:"concurrency"`

	budget.Config `yaml:",inline"`
}

// OutputConfig represents the reporting sinks
type OutputConfig struct {
	Format   OutputFormat      `yaml:"format"`
	NoColor  bool              `yaml:"noColor"`
	Chart    string            `yaml:"chart"`
	Theme    render.ColorTheme `yaml:"theme"`
	Database string            `yaml:"database"`
	Metrics  string            `yaml:"metrics"`
}

func NewConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: slog.LevelInfo},
		Budget: BudgetConfig{
			DataRate: DefaultDataRate,
			Orders:   append([]int(nil), DefaultOrders...),
			Formula:  snr.ShannonCapacity,
			Config:   budget.DefaultConfig(),
		},
		Output: OutputConfig{
			Format: OutputTable,
			Theme:  render.DefaultColorTheme,
		},
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	c := NewConfig()
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return c, nil
}

func NewConfigFromCLI() (*Config, error) {
	return NewConfigFromArgs(os.Args[0], os.Args[1:])
}

// NewConfigFromArgs builds the configuration from an optional YAML file (-c)
// and command line flags. A flag only overrides the file when it was set.
func NewConfigFromArgs(name string, args []string) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	var (
		configPath, logLevel, rate, orders, formula, derating, fecScheme string
		format, chart, theme, database, metrics                          string
		targetErrorRate, operatingSNR, sef, offset, codingRate           float64
		concurrency                                                      int
		noColor, listRuns                                                bool
		showRun                                                          int64
		since                                                            time.Duration
	)
	fs.StringVar(&configPath, "c", "", "Path to the configuration file")
	fs.StringVar(&logLevel, "log-level", "info", "Log level. [debug, info, warn, error]")
	fs.StringVar(&rate, "rate", DefaultDataRate.String(), "Target data rate, e.g. 100e6 or 100Mbps")
	fs.StringVar(&orders, "orders", joinOrders(DefaultOrders), "Comma separated modulation orders")
	fs.StringVar(&formula, "formula", string(snr.ShannonCapacity), "SNR formula. [psk-ser, shannon, linear, log]")
	fs.Float64Var(&targetErrorRate, "ser", 0, "Target symbol error rate, required by psk-ser (format 1e-3)")
	fs.Float64Var(&operatingSNR, "snr", budget.DefaultOperatingSNRDB, "Operating SNR in dB")
	fs.Float64Var(&sef, "sef", budget.DefaultSpectralEfficiencyFactor, "Spectral efficiency factor")
	fs.Float64Var(&offset, "offset", snr.DefaultFixedOffsetDB, "Fixed offset in dB used by the linear formula")
	fs.Float64Var(&codingRate, "coding-rate", budget.DefaultCodingRate, "Coding rate in (0, 1]")
	fs.StringVar(&derating, "derating", string(budget.DeratingLinear), "Throughput derating. [linear, none, capacity]")
	fs.StringVar(&fecScheme, "fec", "", "Reed-Solomon data:parity shards, overrides the coding rate (e.g. 223:32)")
	fs.IntVar(&concurrency, "concurrency", 0, "Number of orders evaluated in parallel, 0 or 1 evaluates sequentially")
	fs.StringVar(&format, "format", string(OutputTable), "Output format. [table, json]")
	fs.BoolVar(&noColor, "no-color", false, "Disable coloured table output")
	fs.StringVar(&chart, "chart", "", "Path to the chart image (.png, .jpeg)")
	fs.StringVar(&theme, "theme", string(render.DefaultColorTheme), "Chart color theme. [classic, grayscale, jungle, thermal, marine]")
	fs.StringVar(&database, "db", "", "Path to the run archive database")
	fs.StringVar(&metrics, "metrics", "", "Path to the Prometheus textfile")
	fs.BoolVar(&listRuns, "list-runs", false, "List archived runs and exit")
	fs.Int64Var(&showRun, "show-run", 0, "Print an archived run and exit")
	fs.DurationVar(&since, "since", 0, "With -list-runs, only list runs created within this duration (e.g. 24h)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c := NewConfig()
	if configPath != "" {
		var err error
		if c, err = LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	c.ListRuns = listRuns
	c.ShowRun = showRun

	var errs []error
	fs.Visit(func(f *flag.Flag) {
		var err error
		switch f.Name {
		case "log-level":
			err = c.Settings.LogLevel.UnmarshalText([]byte(logLevel))
		case "rate":
			c.Budget.DataRate, err = ParseDataRate(rate)
		case "orders":
			c.Budget.Orders, err = parseOrders(orders)
		case "formula":
			c.Budget.Formula, err = snr.ParseFormula(formula)
			c.Filter.Formula = c.Budget.Formula
		case "since":
			c.Filter.Since = since
		case "ser":
			c.Budget.TargetErrorRate = &targetErrorRate
		case "snr":
			c.Budget.OperatingSNRDB = operatingSNR
		case "sef":
			c.Budget.SpectralEfficiencyFactor = sef
		case "offset":
			c.Budget.FixedOffsetDB = offset
		case "coding-rate":
			c.Budget.CodingRate = codingRate
		case "derating":
			c.Budget.Derating, err = budget.ParseDerating(derating)
		case "fec":
			c.FEC, err = fec.ParseConfig(fecScheme)
		case "concurrency":
			c.Budget.Concurrency = concurrency
		case "format":
			c.Output.Format = OutputFormat(strings.ToLower(format))
		case "no-color":
			c.Output.NoColor = noColor
		case "chart":
			c.Output.Chart = chart
		case "theme":
			c.Output.Theme, err = render.ParseColorTheme(theme)
		case "db":
			c.Output.Database = database
		case "metrics":
			c.Output.Metrics = metrics
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
	if c.ListRuns || c.ShowRun != 0 {
		if c.Output.Database == "" {
			return errors.New("db path is required to browse the archive")
		}
		if c.ShowRun < 0 {
			return fmt.Errorf("invalid run id: %d", c.ShowRun)
		}
		if c.Filter.Since < 0 {
			return fmt.Errorf("since must not be negative: %s given", c.Filter.Since)
		}
		return nil
	}

	rate := float64(c.Budget.DataRate)
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return fmt.Errorf("%w: %g", budget.ErrInvalidDataRate, rate)
	}
	if len(c.Budget.Orders) == 0 {
		return errors.New("at least one modulation order is required")
	}
	if _, err := snr.ParseFormula(string(c.Budget.Formula)); err != nil {
		return err
	}
	if c.Budget.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative: %d given", c.Budget.Concurrency)
	}
	if err := c.Budget.Config.Validate(); err != nil {
		return err
	}
	if c.FEC.Enabled() {
		if err := c.FEC.Validate(); err != nil {
			return err
		}
	}
	if _, ok := validOutputFormats[c.Output.Format]; !ok {
		return fmt.Errorf("invalid output format: %s", c.Output.Format)
	}
	if _, err := render.ParseColorTheme(string(c.Output.Theme)); err != nil {
		return err
	}
	if c.Output.Chart != "" {
		if _, err := render.FormatFromPath(c.Output.Chart); err != nil {
			return fmt.Errorf("chart: %w", err)
		}
	}
	return nil
}

func parseOrders(s string) ([]int, error) {
	var orders []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		m, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid modulation order '%s': %w", field, err)
		}
		orders = append(orders, m)
	}
	return orders, nil
}

func joinOrders(orders []int) string {
	s := make([]string, len(orders))
	for i, m := range orders {
		s[i] = strconv.Itoa(m)
	}
	return strings.Join(s, ",")
}
