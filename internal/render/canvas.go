package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

const circleSegments = 24

// canvas draws anti-aliased shapes onto a white RGBA image
type canvas struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

func newCanvas(width, height int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	return &canvas{
		img: img,
		z:   vector.NewRasterizer(width, height),
	}
}

// fill paints the current rasterizer path and resets it
func (c *canvas) fill(col color.Color) {
	size := c.img.Bounds().Size()
	c.z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
	c.z.Reset(size.X, size.Y)
}

func (c *canvas) rect(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *canvas) hline(x0, x1, y int, col color.Color) {
	c.rect(image.Rect(x0, y, x1+1, y+1), col)
}

func (c *canvas) vline(x, y0, y1 int, col color.Color) {
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	c.rect(image.Rect(x, y0, x+1, y1+1), col)
}

// line strokes a segment of the given width as a quad
func (c *canvas) line(x0, y0, x1, y1, width float64, col color.Color) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}

	nx, ny := -dy/length*width/2, dx/length*width/2

	c.z.MoveTo(float32(x0+nx), float32(y0+ny))
	c.z.LineTo(float32(x1+nx), float32(y1+ny))
	c.z.LineTo(float32(x1-nx), float32(y1-ny))
	c.z.LineTo(float32(x0-nx), float32(y0-ny))
	c.z.ClosePath()
	c.fill(col)
}

func (c *canvas) polyline(points [][2]float64, width float64, col color.Color) {
	for i := 1; i < len(points); i++ {
		c.line(points[i-1][0], points[i-1][1], points[i][0], points[i][1], width, col)
	}
}

func (c *canvas) circle(cx, cy, r float64, col color.Color) {
	for i := 0; i < circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		x, y := float32(cx+r*math.Cos(a)), float32(cy+r*math.Sin(a))
		if i == 0 {
			c.z.MoveTo(x, y)
			continue
		}
		c.z.LineTo(x, y)
	}
	c.z.ClosePath()
	c.fill(col)
}

func (c *canvas) square(cx, cy, r float64, col color.Color) {
	c.z.MoveTo(float32(cx-r), float32(cy-r))
	c.z.LineTo(float32(cx+r), float32(cy-r))
	c.z.LineTo(float32(cx+r), float32(cy+r))
	c.z.LineTo(float32(cx-r), float32(cy+r))
	c.z.ClosePath()
	c.fill(col)
}

func (c *canvas) diamond(cx, cy, r float64, col color.Color) {
	c.z.MoveTo(float32(cx), float32(cy-r))
	c.z.LineTo(float32(cx+r), float32(cy))
	c.z.LineTo(float32(cx), float32(cy+r))
	c.z.LineTo(float32(cx-r), float32(cy))
	c.z.ClosePath()
	c.fill(col)
}
