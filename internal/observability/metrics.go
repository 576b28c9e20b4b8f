// Package observability exposes Prometheus metrics for link budget
// evaluation and symbol mapping.
package observability

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/link-budget/internal/budget"
	"github.com/roman-kulish/link-budget/internal/constellation"
	"github.com/roman-kulish/link-budget/internal/modulation"
	"github.com/roman-kulish/link-budget/internal/snr"
)

const (
	StatusOK                = "ok"
	StatusInvalidOrder      = "invalid_order"
	StatusUndefinedSNR      = "undefined_snr"
	StatusUnsupportedFamily = "unsupported_family"
	StatusOddLengthForQAM   = "odd_length_qam"
	StatusInvalidBits       = "invalid_bits"
	StatusError             = "error"
)

// Collector bundles the metrics of both tools. It satisfies budget.Recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Orders      *prometheus.CounterVec
	SNRRequired *prometheus.GaugeVec
	Durations   *prometheus.HistogramVec
	Symbols     *prometheus.CounterVec
}

var _ budget.Recorder = (*Collector)(nil)

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	orders, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "linkbudget_orders_total",
		Help: "Total number of evaluated modulation orders, labeled by SNR formula and status.",
	}, []string{"formula", "status"}), "linkbudget_orders_total")
	if err != nil {
		return nil, err
	}

	required, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "linkbudget_snr_required_db",
		Help: "Most recent SNR requirement in dB, labeled by SNR formula and modulation order.",
	}, []string{"formula", "order"}), "linkbudget_snr_required_db")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linkbudget_compute_duration_seconds",
		Help:    "Link budget computation latency in seconds.",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	}, []string{"formula"}), "linkbudget_compute_duration_seconds")
	if err != nil {
		return nil, err
	}

	symbols, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "constellation_symbols_total",
		Help: "Total number of mapped symbols, labeled by modulation family and status.",
	}, []string{"family", "status"}), "constellation_symbols_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:    gatherer,
		Orders:      orders,
		SNRRequired: required,
		Durations:   durations,
		Symbols:     symbols,
	}, nil
}

func (c *Collector) ObserveEntry(f snr.Formula, e budget.Entry) {
	if c == nil {
		return
	}

	c.Orders.WithLabelValues(f.String(), EntryStatus(e)).Inc()
	if e.Result != nil {
		c.SNRRequired.WithLabelValues(f.String(), strconv.Itoa(e.Order)).Set(e.Result.SNRRequiredDB)
	}
}

func (c *Collector) ObserveDuration(f snr.Formula, d time.Duration) {
	if c == nil {
		return
	}
	c.Durations.WithLabelValues(f.String()).Observe(d.Seconds())
}

func (c *Collector) ObserveMapping(fam modulation.Family, m constellation.Mapping) {
	if c == nil {
		return
	}
	c.Symbols.WithLabelValues(fam.String(), MappingStatus(m)).Inc()
}

// WriteTextfile writes all gathered metrics to path in the text exposition
// format, e.g. for the node exporter textfile collector
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// EntryStatus classifies an entry for the status label
func EntryStatus(e budget.Entry) string {
	switch {
	case e.Err == nil:
		return StatusOK
	case errors.Is(e.Err, budget.ErrInvalidModulationOrder):
		return StatusInvalidOrder
	case errors.Is(e.Err, snr.ErrUndefinedRequirement):
		return StatusUndefinedSNR
	default:
		return StatusError
	}
}

// MappingStatus classifies a mapping for the status label
func MappingStatus(m constellation.Mapping) string {
	switch {
	case m.Err == nil:
		return StatusOK
	case errors.Is(m.Err, constellation.ErrUnsupportedFamily):
		return StatusUnsupportedFamily
	case errors.Is(m.Err, constellation.ErrOddLengthForQAM):
		return StatusOddLengthForQAM
	case errors.Is(m.Err, constellation.ErrInvalidBits):
		return StatusInvalidBits
	default:
		return StatusError
	}
}

// register adds c to reg. A collector already registered under the same
// descriptor is returned instead when it has the same type.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}
