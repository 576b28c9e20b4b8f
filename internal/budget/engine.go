// Package budget derives per-order link budgets: symbol rate, SNR requirement,
// occupied bandwidth and the throughput achievable at the operating SNR.
package budget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/link-budget/internal/modulation"
	"github.com/roman-kulish/link-budget/internal/snr"
)

var (
	// ErrInvalidModulationOrder marks orders that are not 2^k, k >= 1
	ErrInvalidModulationOrder = modulation.ErrInvalidOrder

	ErrInvalidDataRate = errors.New("invalid target data rate")
)

// Recorder receives every evaluated entry and the duration of every call
type Recorder interface {
	ObserveEntry(f snr.Formula, e Entry)
	ObserveDuration(f snr.Formula, d time.Duration)
}

type Engine struct {
	logger      *slog.Logger
	recorder    Recorder
	concurrency int
}

// WithLogger sets the logger used to report skipped orders
func WithLogger(logger *slog.Logger) func(e *Engine) {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithRecorder(r Recorder) func(e *Engine) {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithConcurrency limits the number of orders ComputeConcurrent evaluates at
// once. Values below one mean GOMAXPROCS.
func WithConcurrency(n int) func(e *Engine) {
	return func(e *Engine) {
		e.concurrency = n
	}
}

func New(options ...func(*Engine)) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(e)
	}
	if e.concurrency < 1 {
		e.concurrency = runtime.GOMAXPROCS(0)
	}
	return e
}

// Compute evaluates every order in sequence. The output has one Entry per
// input order, in input order. Per-order problems are reported in Entry.Err
// and never abort the batch; only invalid call parameters, such as a missing
// target error rate, are returned as an error.
func (e *Engine) Compute(rateBps float64, orders []int, f snr.Formula, cfg Config) (Entries, error) {
	f, err := e.prepare(rateBps, f, cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer e.observeDuration(f, start)

	entries := make(Entries, len(orders))
	for i, m := range orders {
		entries[i] = e.evaluate(m, rateBps, f, cfg)
	}
	return entries, nil
}

// ComputeConcurrent is Compute with orders evaluated in parallel. Results are
// written to indexed slots so the output order matches the input.
func (e *Engine) ComputeConcurrent(ctx context.Context, rateBps float64, orders []int, f snr.Formula, cfg Config) (Entries, error) {
	f, err := e.prepare(rateBps, f, cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer e.observeDuration(f, start)

	entries := make(Entries, len(orders))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, m := range orders {
		i, m := i, m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries[i] = e.evaluate(m, rateBps, f, cfg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("computing link budget: %w", err)
	}
	return entries, nil
}

// prepare validates the call parameters and returns the canonical formula
func (e *Engine) prepare(rateBps float64, f snr.Formula, cfg Config) (snr.Formula, error) {
	if !isFinite(rateBps) || rateBps <= 0 {
		return "", fmt.Errorf("%w: must be a positive number of bits per second: %g given", ErrInvalidDataRate, rateBps)
	}

	f, err := snr.ParseFormula(string(f))
	if err != nil {
		return "", err
	}
	if err = cfg.Validate(); err != nil {
		return "", err
	}
	if err = cfg.Params().Check(f); err != nil {
		return "", err
	}
	return f, nil
}

func (e *Engine) evaluate(m int, rateBps float64, f snr.Formula, cfg Config) Entry {
	entry := Entry{Order: m}

	defer func() {
		if entry.Err != nil {
			e.logger.Warn("skipping modulation order", "order", m, "formula", f, "reason", entry.Err)
		}
		if e.recorder != nil {
			e.recorder.ObserveEntry(f, entry)
		}
	}()

	order, err := modulation.NewOrder(m)
	if err != nil {
		entry.Err = err
		return entry
	}

	bits := order.BitsPerSymbol()
	baud := rateBps / (float64(bits) * cfg.CodingRate)

	required, err := snr.RequiredDB(float64(bits), f, cfg.Params())
	if err != nil {
		entry.Err = fmt.Errorf("order %d: %w", m, err)
		return entry
	}

	bandwidth := baud / cfg.SpectralEfficiencyFactor

	entry.Result = &Result{
		Order:                  m,
		BitsPerSymbol:          bits,
		BaudRate:               baud,
		SNRRequiredDB:          required,
		BandwidthHz:            bandwidth,
		EffectiveThroughputBps: effectiveThroughput(cfg.Derating, rateBps, bandwidth, cfg.OperatingSNRDB, required),
	}

	e.logger.Debug("evaluated modulation order",
		"order", m,
		"bitsPerSymbol", bits,
		"snrRequiredDb", required,
		"bandwidthHz", bandwidth)

	return entry
}

func (e *Engine) observeDuration(f snr.Formula, start time.Time) {
	if e.recorder != nil {
		e.recorder.ObserveDuration(f, time.Since(start))
	}
}
