// Package render draws constellation scatter plots and link budget charts as
// raster images.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	defaultWidth       = 640
	defaultHeight      = 480
	defaultPointRadius = 5.0
	pixelsPerTick      = 80
	tickMarkSize       = 5

	// Default border sizes in pixels
	defaultTopBorder    = 50
	defaultLeftBorder   = 90
	defaultBottomBorder = 80
	defaultRightBorder  = 90
)

var (
	ErrInvalidImageFormat = errors.New("invalid image format")

	gridColor  = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	axisColor  = color.RGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff}
	errorColor = color.RGBA{R: 0xc0, G: 0x20, B: 0x20, A: 0xff}
)

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

type ImageFormat string

func ParseImageFormat(s string) (ImageFormat, error) {
	f := ImageFormat(strings.ToLower(strings.TrimSpace(s)))
	if f == "jpg" {
		f = ImageJPEG
	}
	if _, ok := validImageFormats[f]; !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidImageFormat, s)
	}
	return f, nil
}

// FormatFromPath derives the image format from the file extension of path
func FormatFromPath(path string) (ImageFormat, error) {
	return ParseImageFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encode writes img to w in the given format
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	var err error
	switch format {
	case ImagePNG:
		err = png.Encode(w, img)
	case ImageJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{
			Quality: 98,
		})
	default:
		return fmt.Errorf("%w: %s", ErrInvalidImageFormat, format)
	}
	if err != nil {
		return fmt.Errorf("encoding %s image: %w", format, err)
	}
	return nil
}

// BorderConfig defines the sizes of white space around the plot area
type BorderConfig struct {
	Top    int // Space for the title
	Left   int // Space for the left scale
	Bottom int // Space for the bottom scale and the information bar
	Right  int // Space for the right scale
}

// Config holds the layout and styling options shared by both renderers
type Config struct {
	Width       int     // Plot area width in pixels
	Height      int     // Plot area height in pixels
	FontSize    float64 // Font size in points
	PointRadius float64 // Marker radius in pixels
	ColorTheme  ColorTheme
	NoLabels    bool // Disables per-point labels

	BorderConfig BorderConfig
}

func (c Config) withDefaults() Config {
	if c.Width == 0 {
		c.Width = defaultWidth
	}
	if c.Height == 0 {
		c.Height = defaultHeight
	}
	if c.FontSize == 0 {
		c.FontSize = fontSize
	}
	if c.PointRadius == 0 {
		c.PointRadius = defaultPointRadius
	}
	if c.ColorTheme == "" {
		c.ColorTheme = DefaultColorTheme
	}
	if c.BorderConfig.Top == 0 {
		c.BorderConfig.Top = defaultTopBorder
	}
	if c.BorderConfig.Left == 0 {
		c.BorderConfig.Left = defaultLeftBorder
	}
	if c.BorderConfig.Bottom == 0 {
		c.BorderConfig.Bottom = defaultBottomBorder
	}
	if c.BorderConfig.Right == 0 {
		c.BorderConfig.Right = defaultRightBorder
	}
	return c
}

// plotArea returns the rectangle inside the borders
func (c Config) plotArea() image.Rectangle {
	return image.Rect(
		c.BorderConfig.Left,
		c.BorderConfig.Top,
		c.BorderConfig.Left+c.Width,
		c.BorderConfig.Top+c.Height,
	)
}

func (c Config) imageSize() (int, int) {
	return c.Width + c.BorderConfig.Left + c.BorderConfig.Right,
		c.Height + c.BorderConfig.Top + c.BorderConfig.Bottom
}

// frame draws the plot border
func frame(cv *canvas, area image.Rectangle) {
	cv.hline(area.Min.X, area.Max.X, area.Min.Y, axisColor)
	cv.hline(area.Min.X, area.Max.X, area.Max.Y, axisColor)
	cv.vline(area.Min.X, area.Min.Y, area.Max.Y, axisColor)
	cv.vline(area.Max.X, area.Min.Y, area.Max.Y, axisColor)
}

// drawInfoBar writes lines of text under the bottom scale
func drawInfoBar(ann *annotator, img *image.RGBA, left int, lines []string, col color.Color) error {
	y := img.Bounds().Max.Y - len(lines)*ann.lineHeight()
	for _, line := range lines {
		y += ann.lineHeight()
		if err := ann.drawString(line, left, y-ann.lineHeight()/4, col); err != nil {
			return fmt.Errorf("drawing info bar: %w", err)
		}
	}
	return nil
}
