package render

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi      = 72.0
	fontSize = 12.0
	spacing  = 1.2
)

var parseFont = sync.OnceValues(func() (*truetype.Font, error) {
	return freetype.ParseFont(goregular.TTF)
})

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
	fontSize float64
}

func newAnnotator(size float64) (*annotator, error) {
	parsedFont, err := parseFont()
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context:  ctx,
		fontSize: size,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    size,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) attach(img *image.RGBA) {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)
}

func (a *annotator) textWidth(s string) int {
	return font.MeasureString(a.fontFace, s).Round()
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) lineHeight() int {
	return int(float64(a.fontHeight()) * spacing)
}

// drawString draws s with its baseline at y
func (a *annotator) drawString(s string, x, y int, col color.Color) error {
	a.context.SetSrc(image.NewUniform(col))
	if _, err := a.context.DrawString(s, freetype.Pt(x, y)); err != nil {
		return fmt.Errorf("drawing label '%s': %w", s, err)
	}
	return nil
}

func (a *annotator) drawCentered(s string, cx, y int, col color.Color) error {
	return a.drawString(s, cx-a.textWidth(s)/2, y, col)
}

// drawMiddle draws s vertically centred on y
func (a *annotator) drawMiddle(s string, x, y int, col color.Color) error {
	metrics := a.fontFace.Metrics()
	return a.drawString(s, x, y+a.fontHeight()/2-metrics.Descent.Round(), col)
}
