package budget

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/roman-kulish/link-budget/internal/snr"
)

func TestEngine_Compute_Scenario(t *testing.T) {
	entries, err := New().Compute(100e6, []int{2, 4, 8}, snr.SimplifiedLog, DefaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	expected := []struct {
		order int
		bits  int
		baud  float64
		snrDB float64
	}{
		{2, 1, 100e6, 3.01},
		{4, 2, 50e6, 6.02},
		{8, 3, 100e6 / 3, 9.03},
	}

	for i, want := range expected {
		e := entries[i]
		if e.Err != nil {
			t.Fatalf("Entry %d: unexpected error: %v", i, e.Err)
		}

		r := e.Result
		if r.Order != want.order {
			t.Errorf("Entry %d: expected order %d, got %d", i, want.order, r.Order)
		}
		if r.BitsPerSymbol != want.bits {
			t.Errorf("Entry %d: expected %d bits per symbol, got %d", i, want.bits, r.BitsPerSymbol)
		}
		if math.Abs(r.BaudRate-want.baud) > 1e-6 {
			t.Errorf("Entry %d: expected baud rate %g, got %g", i, want.baud, r.BaudRate)
		}
		if math.Abs(r.SNRRequiredDB-want.snrDB) > 0.01 {
			t.Errorf("Entry %d: expected %.2f dB, got %.4f dB", i, want.snrDB, r.SNRRequiredDB)
		}
		if r.BandwidthHz != r.BaudRate {
			t.Errorf("Entry %d: expected bandwidth equal to baud rate at factor 1, got %g", i, r.BandwidthHz)
		}
		if r.EffectiveThroughputBps != 100e6 {
			t.Errorf("Entry %d: expected full throughput, got %g", i, r.EffectiveThroughputBps)
		}
	}
}

func TestEngine_Compute_PartialFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	entries, err := New(WithLogger(logger)).Compute(1e6, []int{1, 2, 4}, snr.ShannonCapacity, DefaultConfig())
	if err != nil {
		t.Fatalf("Batch must not abort: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	if !errors.Is(entries[0].Err, ErrInvalidModulationOrder) {
		t.Errorf("Expected ErrInvalidModulationOrder for order 1, got %v", entries[0].Err)
	}
	if entries[0].Order != 1 || entries[0].Result != nil {
		t.Errorf("Failed entry must keep its order and carry no result: %+v", entries[0])
	}

	for _, e := range entries[1:] {
		if e.Err != nil || e.Result == nil {
			t.Errorf("Order %d: expected a valid result, got %v", e.Order, e.Err)
		}
	}

	if got := len(entries.Results()); got != 2 {
		t.Errorf("Expected 2 results, got %d", got)
	}
	if got := len(entries.Failures()); got != 1 {
		t.Errorf("Expected 1 failure, got %d", got)
	}

	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "order=1") {
		t.Errorf("Expected a warning for order 1, got log %q", buf.String())
	}
}

func TestEngine_Compute_InvalidOrders(t *testing.T) {
	entries, err := New().Compute(1e6, []int{0, -2, 3, 6, 16}, snr.SimplifiedLinear, DefaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, e := range entries[:4] {
		if !errors.Is(e.Err, ErrInvalidModulationOrder) {
			t.Errorf("Order %d: expected ErrInvalidModulationOrder, got %v", e.Order, e.Err)
		}
	}
	if entries[4].Err != nil {
		t.Errorf("Order 16: unexpected error: %v", entries[4].Err)
	}
}

func TestEngine_Compute_FatalErrors(t *testing.T) {
	badRate := DefaultConfig()
	badRate.CodingRate = 1.5

	badFactor := DefaultConfig()
	badFactor.SpectralEfficiencyFactor = 0

	badSER := DefaultConfig()
	ser := 2.0
	badSER.TargetErrorRate = &ser

	tests := []struct {
		name    string
		rate    float64
		formula snr.Formula
		cfg     Config
		wantErr error
	}{
		{"psk without target error rate", 1e6, snr.PSKSymbolErrorRate, DefaultConfig(), snr.ErrMissingParameter},
		{"out of range target error rate", 1e6, snr.PSKSymbolErrorRate, badSER, snr.ErrInvalidParameter},
		{"zero data rate", 0, snr.ShannonCapacity, DefaultConfig(), ErrInvalidDataRate},
		{"NaN data rate", math.NaN(), snr.ShannonCapacity, DefaultConfig(), ErrInvalidDataRate},
		{"coding rate above one", 1e6, snr.ShannonCapacity, badRate, ErrInvalidConfig},
		{"zero efficiency factor", 1e6, snr.ShannonCapacity, badFactor, ErrInvalidConfig},
		{"unknown formula", 1e6, snr.Formula("cubic"), DefaultConfig(), snr.ErrUnknownFormula},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := New().Compute(tt.rate, []int{2, 4}, tt.formula, tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if entries != nil {
				t.Errorf("Expected no entries on fatal error, got %d", len(entries))
			}
		})
	}
}

func TestEngine_Compute_Idempotence(t *testing.T) {
	orders := []int{2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096}
	ser := 1e-3

	for _, f := range snr.Formulas() {
		for _, d := range []Derating{DeratingLinear, DeratingNone, DeratingCapacity} {
			t.Run(string(f)+"/"+string(d), func(t *testing.T) {
				cfg := DefaultConfig()
				cfg.TargetErrorRate = &ser
				cfg.Derating = d
				cfg.OperatingSNRDB = 40

				entries, err := New().Compute(123.456e6, orders, f, cfg)
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}

				for _, r := range entries.Results() {
					if cfg.OperatingSNRDB >= r.SNRRequiredDB && r.EffectiveThroughputBps != 123.456e6 {
						t.Errorf("M=%d: expected exact target rate, got %g", r.Order, r.EffectiveThroughputBps)
					}
					if r.EffectiveThroughputBps > 123.456e6 {
						t.Errorf("M=%d: throughput %g exceeds target", r.Order, r.EffectiveThroughputBps)
					}
				}
			})
		}
	}
}

func TestEngine_Compute_Monotonicity(t *testing.T) {
	orders := []int{2, 4, 8, 16, 32, 64, 128, 256, 512, 1024}

	for _, f := range []snr.Formula{snr.ShannonCapacity, snr.SimplifiedLog} {
		t.Run(string(f), func(t *testing.T) {
			entries, err := New().Compute(10e6, orders, f, DefaultConfig())
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			results := entries.Results()
			for i := 1; i < len(results); i++ {
				if results[i].SNRRequiredDB <= results[i-1].SNRRequiredDB {
					t.Errorf("Expected SNR at M=%d (%.4f) to exceed M=%d (%.4f)",
						results[i].Order, results[i].SNRRequiredDB, results[i-1].Order, results[i-1].SNRRequiredDB)
				}
			}
		})
	}
}

func TestEngine_Compute_Derating(t *testing.T) {
	// SimplifiedLog at M=1024 requires ~30.10 dB
	tests := []struct {
		name      string
		derating  Derating
		operating float64
		formula   snr.Formula
		order     int
		expected  func(r Result) float64
	}{
		{
			name:      "linear",
			derating:  DeratingLinear,
			operating: 20,
			expected:  func(r Result) float64 { return 1e6 * 20 / r.SNRRequiredDB },
		},
		{
			name:      "linear power ratio below 0 dB operating SNR",
			derating:  DeratingLinear,
			operating: -3,
			expected:  func(r Result) float64 { return 1e6 * snr.FromDB(-3-r.SNRRequiredDB) },
		},
		{
			// Shannon at M=2 requires 0 dB
			name:      "linear power ratio at 0 dB requirement",
			derating:  DeratingLinear,
			operating: -3,
			formula:   snr.ShannonCapacity,
			order:     2,
			expected:  func(Result) float64 { return 1e6 * snr.FromDB(-3) },
		},
		{
			name:      "none",
			derating:  DeratingNone,
			operating: 20,
			expected:  func(Result) float64 { return 1e6 },
		},
		{
			name:      "capacity",
			derating:  DeratingCapacity,
			operating: 0,
			expected:  func(r Result) float64 { return r.BandwidthHz * math.Log2(2) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Derating = tt.derating
			cfg.OperatingSNRDB = tt.operating

			formula, order := tt.formula, tt.order
			if formula == "" {
				formula, order = snr.SimplifiedLog, 1024
			}

			entries, err := New().Compute(1e6, []int{order}, formula, cfg)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			r := entries[0].Result
			if r == nil {
				t.Fatalf("Expected a result, got %v", entries[0].Err)
			}
			if want := tt.expected(*r); math.Abs(r.EffectiveThroughputBps-want) > 1e-6 {
				t.Errorf("Expected %g bps, got %g bps", want, r.EffectiveThroughputBps)
			}
		})
	}
}

func TestEngine_Compute_DeratingMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OperatingSNRDB = -3

	entries, err := New().Compute(100e6, []int{2, 4, 8, 16}, snr.ShannonCapacity, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	results := entries.Results()
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}
	if got := results[0].EffectiveThroughputBps; math.Abs(got-5.01187e7) > 1e3 {
		t.Errorf("Expected about 5.01e7 bps at M=2, got %g", got)
	}
	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1].EffectiveThroughputBps, results[i].EffectiveThroughputBps
		if cur <= 0 || cur >= prev {
			t.Errorf("Expected M=%d throughput %g to be positive and below M=%d throughput %g",
				results[i].Order, cur, results[i-1].Order, prev)
		}
	}
}

func TestEngine_Compute_CodingRateAndEfficiency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CodingRate = 0.5
	cfg.SpectralEfficiencyFactor = 2

	entries, err := New().Compute(8e6, []int{16}, snr.SimplifiedLinear, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	r := entries[0].Result
	if r.BaudRate != 4e6 {
		t.Errorf("Expected 4 MBd, got %g", r.BaudRate)
	}
	if r.BandwidthHz != 2e6 {
		t.Errorf("Expected 2 MHz, got %g", r.BandwidthHz)
	}
	if r.SNRRequiredDB != 4+snr.DefaultFixedOffsetDB {
		t.Errorf("Expected %g dB, got %g", 4+snr.DefaultFixedOffsetDB, r.SNRRequiredDB)
	}
}

type recorder struct {
	mu        sync.Mutex
	entries   []Entry
	durations int
}

func (r *recorder) ObserveEntry(_ snr.Formula, e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recorder) ObserveDuration(snr.Formula, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations++
}

func TestEngine_ComputeConcurrent(t *testing.T) {
	orders := []int{4096, 1, 2, 3, 1024, 8, 16, 0, 64}
	rec := &recorder{}
	engine := New(WithConcurrency(3), WithRecorder(rec))

	sequential, err := engine.Compute(50e6, orders, snr.ShannonCapacity, DefaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	concurrent, err := engine.ComputeConcurrent(context.Background(), 50e6, orders, snr.ShannonCapacity, DefaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(concurrent) != len(orders) {
		t.Fatalf("Expected %d entries, got %d", len(orders), len(concurrent))
	}
	for i := range orders {
		s, c := sequential[i], concurrent[i]
		if c.Order != orders[i] {
			t.Errorf("Slot %d: expected order %d, got %d", i, orders[i], c.Order)
		}
		if (s.Err == nil) != (c.Err == nil) {
			t.Errorf("Slot %d: failure mismatch %v vs %v", i, s.Err, c.Err)
			continue
		}
		if s.Result != nil && *s.Result != *c.Result {
			t.Errorf("Slot %d: result mismatch %+v vs %+v", i, *s.Result, *c.Result)
		}
	}

	if len(rec.entries) != 2*len(orders) {
		t.Errorf("Expected %d recorded entries, got %d", 2*len(orders), len(rec.entries))
	}
	if rec.durations != 2 {
		t.Errorf("Expected 2 recorded durations, got %d", rec.durations)
	}
}

func TestEngine_ComputeConcurrent_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().ComputeConcurrent(ctx, 1e6, []int{2, 4, 8}, snr.SimplifiedLog, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestFields(t *testing.T) {
	r := Result{Order: 4, BitsPerSymbol: 2, BaudRate: 1, SNRRequiredDB: 2, BandwidthHz: 3, EffectiveThroughputBps: 4}

	fields := Fields()
	if len(fields) != len(r.Values()) {
		t.Fatalf("Expected %d fields, got %d", len(r.Values()), len(fields))
	}

	units := map[string]string{}
	for _, f := range fields {
		units[f.Name] = f.Unit
	}
	for name, unit := range map[string]string{"baudRate": "Bd", "snrRequiredDb": "dB", "bandwidthHz": "Hz", "effectiveThroughputBps": "bit/s"} {
		if units[name] != unit {
			t.Errorf("Field %s: expected unit %s, got %s", name, unit, units[name])
		}
	}
}
