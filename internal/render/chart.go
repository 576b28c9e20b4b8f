package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/link-budget/internal/budget"
)

const lineWidth = 2.0

type marker func(cv *canvas, x, y, r float64, col color.Color)

// series is one line of the chart. Values are indexed like the results.
type series struct {
	name   string
	values []float64
	right  bool // plotted against the dB scale
	marker marker
}

// ChartRenderer draws link budget results against the bits per symbol of each
// modulation order
type ChartRenderer struct {
	config Config
}

func NewChartRenderer(config Config) *ChartRenderer {
	return &ChartRenderer{config: config.withDefaults()}
}

// Render plots baud rate and bandwidth on the left scale and the required SNR
// on the right scale. Failed orders are listed in the information bar.
func (r *ChartRenderer) Render(title string, entries budget.Entries) (*image.RGBA, error) {
	results := entries.Results()
	failures := entries.Failures()

	info := []string{fmt.Sprintf("Orders: %d; computed: %d; failed: %d", len(entries), len(results), len(failures))}
	infoColor := color.Color(color.Black)
	if len(failures) > 0 {
		infoColor = errorColor
		for i, f := range failures {
			if i == maxListedFailures {
				info = append(info, fmt.Sprintf("... and %d more", len(failures)-maxListedFailures))
				break
			}
			info = append(info, f.String())
		}
	}

	ann, err := newAnnotator(r.config.FontSize)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	config := r.config
	config.BorderConfig.Bottom += (len(info) - 1) * ann.lineHeight()

	width, height := config.imageSize()
	cv := newCanvas(width, height)
	area := config.plotArea()
	ann.attach(cv.img)

	xs := make([]float64, len(results))
	baud := make([]float64, len(results))
	bandwidth := make([]float64, len(results))
	required := make([]float64, len(results))
	for i, res := range results {
		xs[i] = float64(res.BitsPerSymbol)
		baud[i] = res.BaudRate
		bandwidth[i] = res.BandwidthHz
		required[i] = res.SNRRequiredDB
	}

	xLo, xHi := 0.0, 4.0
	hzHi := 1.0
	dbLo, dbHi := 0.0, 10.0
	if len(results) > 0 {
		xLo, xHi = paddedRange(minOf(xs), maxOf(xs), 0.05)
		hzHi = math.Max(maxOf(baud), maxOf(bandwidth)) * 1.1
		dbLo, dbHi = paddedRange(math.Min(0, minOf(required)), maxOf(required), 0.1)
	}

	xAxis := axis{min: xLo, max: xHi, pixelLo: area.Min.X, pixelHi: area.Max.X}
	hzAxis := axis{min: 0, max: hzHi, pixelLo: area.Max.Y, pixelHi: area.Min.Y}
	dbAxis := axis{min: dbLo, max: dbHi, pixelLo: area.Max.Y, pixelHi: area.Min.Y}

	if err = r.drawScales(cv, ann, area, results, xAxis, hzAxis, dbAxis); err != nil {
		return nil, err
	}

	lines := []series{
		{name: "Baud Rate (Bd)", values: baud, marker: (*canvas).circle},
		{name: "Bandwidth (Hz)", values: bandwidth, marker: (*canvas).square},
		{name: "SNR Required (dB)", values: required, right: true, marker: (*canvas).diamond},
	}
	palette := config.ColorTheme.Palette(len(lines))

	for i, s := range lines {
		yAxis := hzAxis
		if s.right {
			yAxis = dbAxis
		}

		points := make([][2]float64, len(s.values))
		for j, v := range s.values {
			points[j] = [2]float64{xAxis.px(xs[j]), yAxis.px(v)}
		}
		cv.polyline(points, lineWidth, palette[i])
		for _, p := range points {
			s.marker(cv, p[0], p[1], config.PointRadius, palette[i])
		}
	}

	if err = r.drawLegend(cv, ann, area, lines, palette); err != nil {
		return nil, err
	}
	if err = ann.drawCentered(title, area.Min.X+area.Dx()/2, config.BorderConfig.Top/2+ann.fontHeight()/2, color.Black); err != nil {
		return nil, err
	}
	if err = drawInfoBar(ann, cv.img, config.BorderConfig.Left, info, infoColor); err != nil {
		return nil, err
	}

	return cv.img, nil
}

func (r *ChartRenderer) drawScales(cv *canvas, ann *annotator, area image.Rectangle, results []budget.Result, xAxis, hzAxis, dbAxis axis) error {
	// one tick per computed order, labelled with M
	for _, res := range results {
		x := int(math.Round(xAxis.px(float64(res.BitsPerSymbol))))
		cv.vline(x, area.Min.Y, area.Max.Y, gridColor)
		cv.vline(x, area.Max.Y, area.Max.Y+tickMarkSize, axisColor)
		if err := ann.drawCentered(strconv.Itoa(res.Order), x, area.Max.Y+tickMarkSize+ann.fontHeight(), axisColor); err != nil {
			return fmt.Errorf("drawing X scale: %w", err)
		}
	}

	hzTicks, _ := hzAxis.ticks(area.Dy() / pixelsPerTick)
	for _, v := range hzTicks {
		y := int(math.Round(hzAxis.px(v)))
		cv.hline(area.Min.X, area.Max.X, y, gridColor)
		cv.hline(area.Min.X-tickMarkSize, area.Min.X, y, axisColor)
		label := humanize.SIWithDigits(v, 1, "Hz")
		if err := ann.drawMiddle(label, area.Min.X-tickMarkSize-3-ann.textWidth(label), y, axisColor); err != nil {
			return fmt.Errorf("drawing left scale: %w", err)
		}
	}

	dbTicks, dbStep := dbAxis.ticks(area.Dy() / pixelsPerTick)
	for _, v := range dbTicks {
		y := int(math.Round(dbAxis.px(v)))
		cv.hline(area.Max.X, area.Max.X+tickMarkSize, y, axisColor)
		if err := ann.drawMiddle(formatTick(v, dbStep)+" dB", area.Max.X+tickMarkSize+3, y, axisColor); err != nil {
			return fmt.Errorf("drawing right scale: %w", err)
		}
	}

	frame(cv, area)

	if err := ann.drawCentered("Modulation order (M)", area.Min.X+area.Dx()/2, area.Max.Y+tickMarkSize+2*ann.lineHeight(), color.Black); err != nil {
		return fmt.Errorf("drawing X title: %w", err)
	}
	return nil
}

// drawLegend lists the series in the top left corner of the plot area
func (r *ChartRenderer) drawLegend(cv *canvas, ann *annotator, area image.Rectangle, lines []series, palette []color.Color) error {
	x := area.Min.X + 10
	y := area.Min.Y + 10
	for i, s := range lines {
		cy := y + i*ann.lineHeight() + ann.lineHeight()/2
		cv.line(float64(x), float64(cy), float64(x+20), float64(cy), lineWidth, palette[i])
		s.marker(cv, float64(x+10), float64(cy), r.config.PointRadius-1, palette[i])
		if err := ann.drawMiddle(s.name, x+26, cy, color.Black); err != nil {
			return fmt.Errorf("drawing legend: %w", err)
		}
	}
	return nil
}

func minOf(values []float64) float64 {
	out := math.Inf(1)
	for _, v := range values {
		out = math.Min(out, v)
	}
	return out
}

func maxOf(values []float64) float64 {
	out := math.Inf(-1)
	for _, v := range values {
		out = math.Max(out, v)
	}
	return out
}
