package budget

import (
	"fmt"
)

// Result is the link budget of a single modulation order. All values are in
// SI base units; conversion happens at the reporting boundary.
type Result struct {
	Order                  int     `json:"order"`
	BitsPerSymbol          int     `json:"bitsPerSymbol"`
	BaudRate               float64 `json:"baudRate"`
	SNRRequiredDB          float64 `json:"snrRequiredDb"`
	BandwidthHz            float64 `json:"bandwidthHz"`
	EffectiveThroughputBps float64 `json:"effectiveThroughputBps"`
}

// Derated reports whether the effective throughput is below targetBps
func (r Result) Derated(targetBps float64) bool {
	return r.EffectiveThroughputBps < targetBps
}

// Entry is one slot of the engine output: a Result or the reason the order
// could not be evaluated
type Entry struct {
	Order  int
	Result *Result
	Err    error
}

func (e Entry) Failed() bool {
	return e.Err != nil
}

func (e Entry) String() string {
	if e.Err != nil {
		return fmt.Sprintf("M=%d: %v", e.Order, e.Err)
	}
	return fmt.Sprintf("M=%d: %.2f dB, %g Bd, %g Hz, %g bps",
		e.Order, e.Result.SNRRequiredDB, e.Result.BaudRate, e.Result.BandwidthHz, e.Result.EffectiveThroughputBps)
}

// Entries is the ordered output of a single Compute call
type Entries []Entry

// Results returns the successful results in input order
func (es Entries) Results() []Result {
	out := make([]Result, 0, len(es))
	for _, e := range es {
		if e.Result != nil {
			out = append(out, *e.Result)
		}
	}
	return out
}

// Failures returns the failed entries in input order
func (es Entries) Failures() Entries {
	var out Entries
	for _, e := range es {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	return out
}

// Field describes a Result field with its stable name and physical unit
type Field struct {
	Name        string
	Unit        string
	Description string
}

var fields = []Field{
	{Name: "order", Unit: "M", Description: "modulation order"},
	{Name: "bitsPerSymbol", Unit: "bit", Description: "bits carried per symbol"},
	{Name: "baudRate", Unit: "Bd", Description: "symbol rate needed for the target data rate"},
	{Name: "snrRequiredDb", Unit: "dB", Description: "minimum signal-to-noise ratio"},
	{Name: "bandwidthHz", Unit: "Hz", Description: "occupied bandwidth"},
	{Name: "effectiveThroughputBps", Unit: "bit/s", Description: "throughput at the operating SNR"},
}

// Fields lists the Result fields in reporting order
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Values returns the Result fields in the order of Fields
func (r Result) Values() []float64 {
	return []float64{
		float64(r.Order),
		float64(r.BitsPerSymbol),
		r.BaudRate,
		r.SNRRequiredDB,
		r.BandwidthHz,
		r.EffectiveThroughputBps,
	}
}
