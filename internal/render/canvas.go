package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/jmylchreest/waysay/internal/theme"
)

// Canvas wraps a raw ARGB8888 pixel slice (the little-endian byte order the
// compositor expects: B, G, R, A) as a drawable image.
type Canvas struct {
	Pix    []byte
	W      int
	H      int
	Stride int
}

// NewCanvas wraps pix, which must hold stride*height bytes.
func NewCanvas(pix []byte, width, height, stride int) *Canvas {
	return &Canvas{Pix: pix, W: width, H: height, Stride: stride}
}

func (c *Canvas) ColorModel() color.Model { return color.RGBAModel }

func (c *Canvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.W, c.H) }

func (c *Canvas) At(x, y int) color.Color {
	if !(image.Point{x, y}).In(c.Bounds()) {
		return color.RGBA{}
	}
	i := y*c.Stride + x*4
	return color.RGBA{B: c.Pix[i], G: c.Pix[i+1], R: c.Pix[i+2], A: c.Pix[i+3]}
}

func (c *Canvas) Set(x, y int, col color.Color) {
	if !(image.Point{x, y}).In(c.Bounds()) {
		return
	}
	r, g, b, a := col.RGBA()
	i := y*c.Stride + x*4
	c.Pix[i] = uint8(b >> 8)
	c.Pix[i+1] = uint8(g >> 8)
	c.Pix[i+2] = uint8(r >> 8)
	c.Pix[i+3] = uint8(a >> 8)
}

// FillRect paints a solid rectangle, clipped to the canvas.
func (c *Canvas) FillRect(r image.Rectangle, col theme.Color) {
	r = r.Intersect(c.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := y*c.Stride + r.Min.X*4
		for x := r.Min.X; x < r.Max.X; x++ {
			c.Pix[i] = col.B
			c.Pix[i+1] = col.G
			c.Pix[i+2] = col.R
			c.Pix[i+3] = col.A
			i += 4
		}
	}
}

// Fill paints the whole canvas. Every frame starts with this so no stale
// bytes from a recycled buffer ever reach the screen.
func (c *Canvas) Fill(col theme.Color) {
	c.FillRect(c.Bounds(), col)
}

// DrawText composites text with its top-left corner at (x, y).
func (c *Canvas) DrawText(s *Shaper, x, y int, col theme.Color, text string) {
	d := font.Drawer{
		Dst:  c,
		Src:  image.NewUniform(color.RGBA{R: col.R, G: col.G, B: col.B, A: col.A}),
		Face: s.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + s.ascent()},
	}
	d.DrawString(text)
}
