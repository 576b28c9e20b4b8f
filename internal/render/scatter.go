package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/roman-kulish/link-budget/internal/constellation"
	"github.com/roman-kulish/link-budget/internal/modulation"
)

const maxListedFailures = 3

// ScatterRenderer draws symbol mappings as an annotated scatter plot
type ScatterRenderer struct {
	config Config
}

func NewScatterRenderer(config Config) *ScatterRenderer {
	return &ScatterRenderer{config: config.withDefaults()}
}

// axisTitles returns the axis titles of a family. Only QAM has in-phase and
// quadrature components.
func axisTitles(fam modulation.Family) (string, string) {
	if fam == modulation.QAM {
		return "I (In-phase)", "Q (Quadrature)"
	}
	return "X", "Y"
}

// Render plots every successful mapping with its bit string and lists failed
// mappings in the information bar
func (r *ScatterRenderer) Render(title string, fam modulation.Family, mappings []constellation.Mapping) (*image.RGBA, error) {
	var points []constellation.Mapping
	var failures []constellation.Mapping
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, m := range mappings {
		if m.Err != nil {
			failures = append(failures, m)
			continue
		}
		points = append(points, m)
		minX, maxX = math.Min(minX, m.Point.X), math.Max(maxX, m.Point.X)
		minY, maxY = math.Min(minY, m.Point.Y), math.Max(maxY, m.Point.Y)
	}
	if len(points) == 0 {
		minX, maxX, minY, maxY = -1, 1, -1, 1
	}

	info := []string{fmt.Sprintf("Family: %s; symbols: %d; mapped: %d; failed: %d", fam, len(mappings), len(points), len(failures))}
	infoColor := color.Color(color.Black)
	if len(failures) > 0 {
		infoColor = errorColor
		for i, f := range failures {
			if i == maxListedFailures {
				info = append(info, fmt.Sprintf("... and %d more", len(failures)-maxListedFailures))
				break
			}
			info = append(info, fmt.Sprintf("'%s': %v", f.Bits, f.Err))
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

	// keep the origin in view so the axes are drawn
	minX, maxX = math.Min(minX, 0), math.Max(maxX, 0)
	minY, maxY = math.Min(minY, 0), math.Max(maxY, 0)

	xLo, xHi := paddedRange(minX, maxX, 0.1)
	yLo, yHi := paddedRange(minY, maxY, 0.1)
	xAxis := axis{min: xLo, max: xHi, pixelLo: area.Min.X, pixelHi: area.Max.X}
	yAxis := axis{min: yLo, max: yHi, pixelLo: area.Max.Y, pixelHi: area.Min.Y}

	if err = r.drawScales(cv, ann, area, xAxis, yAxis, fam); err != nil {
		return nil, err
	}

	for _, m := range points {
		x, y := xAxis.px(m.Point.X), yAxis.px(m.Point.Y)
		cv.circle(x, y, config.PointRadius, config.ColorTheme.Color(symbolLevel(m.Bits)))

		if config.NoLabels {
			continue
		}
		lx, ly := int(x+config.PointRadius)+2, int(y-config.PointRadius)-2
		if err = ann.drawString(m.Bits, lx, ly, color.Black); err != nil {
			return nil, err
		}
	}

	if err = ann.drawCentered(title, area.Min.X+area.Dx()/2, config.BorderConfig.Top/2+ann.fontHeight()/2, color.Black); err != nil {
		return nil, err
	}
	if err = drawInfoBar(ann, cv.img, config.BorderConfig.Left, info, infoColor); err != nil {
		return nil, err
	}

	return cv.img, nil
}

func (r *ScatterRenderer) drawScales(cv *canvas, ann *annotator, area image.Rectangle, xAxis, yAxis axis, fam modulation.Family) error {
	xTicks, xStep := xAxis.ticks(area.Dx() / pixelsPerTick)
	yTicks, yStep := yAxis.ticks(area.Dy() / pixelsPerTick)

	for _, v := range xTicks {
		x := int(math.Round(xAxis.px(v)))
		cv.vline(x, area.Min.Y, area.Max.Y, gridColor)
		cv.vline(x, area.Max.Y, area.Max.Y+tickMarkSize, axisColor)
		if err := ann.drawCentered(formatTick(v, xStep), x, area.Max.Y+tickMarkSize+ann.fontHeight(), axisColor); err != nil {
			return fmt.Errorf("drawing X scale: %w", err)
		}
	}
	for _, v := range yTicks {
		y := int(math.Round(yAxis.px(v)))
		cv.hline(area.Min.X, area.Max.X, y, gridColor)
		cv.hline(area.Min.X-tickMarkSize, area.Min.X, y, axisColor)
		if err := ann.drawMiddle(formatTick(v, yStep), area.Min.X-tickMarkSize-3-ann.textWidth(formatTick(v, yStep)), y, axisColor); err != nil {
			return fmt.Errorf("drawing Y scale: %w", err)
		}
	}

	// axes through the origin
	x0, y0 := int(math.Round(xAxis.px(0))), int(math.Round(yAxis.px(0)))
	cv.vline(x0, area.Min.Y, area.Max.Y, axisColor)
	cv.hline(area.Min.X, area.Max.X, y0, axisColor)
	frame(cv, area)

	xTitle, yTitle := axisTitles(fam)
	if err := ann.drawCentered(xTitle, area.Min.X+area.Dx()/2, area.Max.Y+tickMarkSize+2*ann.lineHeight(), color.Black); err != nil {
		return fmt.Errorf("drawing X title: %w", err)
	}
	if err := ann.drawString(yTitle, 4, area.Min.Y-ann.lineHeight()/2, color.Black); err != nil {
		return fmt.Errorf("drawing Y title: %w", err)
	}
	return nil
}

// symbolLevel returns the value of bits normalised to [0, 1]
func symbolLevel(bits string) float64 {
	v, err := strconv.ParseUint(bits, 2, 64)
	if err != nil || len(bits) == 0 {
		return 0
	}
	top := math.Exp2(float64(len(bits))) - 1
	if top <= 0 {
		return 0
	}
	return float64(v) / top
}
