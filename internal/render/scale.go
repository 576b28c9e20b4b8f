package render

import (
	"math"
	"strconv"
)

// niceStep returns a step of 1, 2 or 5 times a power of ten that splits span
// into at most n intervals
func niceStep(span float64, n int) float64 {
	if span <= 0 || n < 1 || math.IsNaN(span) || math.IsInf(span, 0) {
		return 1
	}

	raw := span / float64(n)
	magnitude := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5} {
		if step := m * magnitude; step >= raw {
			return step
		}
	}
	return 10 * magnitude
}

// paddedRange widens [lo, hi] by pad times its span on both sides. An empty
// range is widened to one unit around its value.
func paddedRange(lo, hi, pad float64) (float64, float64) {
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi-lo == 0 {
		lo, hi = lo-1, hi+1
	}
	margin := (hi - lo) * pad
	return lo - margin, hi + margin
}

// axis maps a data range to a pixel range. For a vertical axis pixelLo is the
// bottom of the plot, so pixelHi < pixelLo.
type axis struct {
	min, max         float64
	pixelLo, pixelHi int
}

func (a axis) px(v float64) float64 {
	if a.max == a.min {
		return float64(a.pixelLo+a.pixelHi) / 2
	}
	return float64(a.pixelLo) + (v-a.min)/(a.max-a.min)*float64(a.pixelHi-a.pixelLo)
}

// ticks returns the tick values of the axis and their step
func (a axis) ticks(n int) ([]float64, float64) {
	step := niceStep(a.max-a.min, n)
	start := math.Ceil(a.min/step) * step

	var out []float64
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if v > a.max+step*1e-9 {
			break
		}
		if math.Abs(v) < step*1e-9 {
			v = 0
		}
		out = append(out, v)
	}
	return out, step
}

// formatTick formats v with as many decimals as step needs
func formatTick(v, step float64) string {
	decimals := 0
	if step > 0 && step < 1 {
		decimals = int(math.Ceil(-math.Log10(step)))
	}
	for ; decimals < 10; decimals++ {
		scaled := step * math.Pow(10, float64(decimals))
		if math.Abs(scaled-math.Round(scaled)) < 1e-9 {
			break
		}
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
