package render

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Shaper is the text-shaping service: it measures strings and rasterizes
// glyph masks at a fixed size. The bar treats it as a pure function of its
// input; it holds no mutable state after construction.
type Shaper struct {
	face font.Face
}

// NewShaper builds a shaper for the embedded Go Regular face at the given
// pixel size.
func NewShaper(size float64) (*Shaper, error) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse embedded font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return &Shaper{face: face}, nil
}

// Measure returns the advance width of text in whole pixels.
func (s *Shaper) Measure(text string) int {
	return font.MeasureString(s.face, text).Ceil()
}

// LineHeight returns the vertical distance between baselines.
func (s *Shaper) LineHeight() int {
	return s.face.Metrics().Height.Ceil()
}

// ascent returns the baseline offset from the top of a line box.
func (s *Shaper) ascent() fixed.Int26_6 {
	return s.face.Metrics().Ascent
}
