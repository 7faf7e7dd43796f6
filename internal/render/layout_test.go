package render

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/waysay/internal/config"
	"github.com/jmylchreest/waysay/internal/theme"
)

func testShaper(t *testing.T) *Shaper {
	t.Helper()
	s, err := NewShaper(FontSize)
	require.NoError(t, err)
	return s
}

func paint(l *Layout, pal theme.Palette, s *Shaper) []byte {
	pix := make([]byte, l.Width*l.Height*4)
	l.Paint(pix, l.Width*4, pal, s)
	return pix
}

func TestLayoutDeterministic(t *testing.T) {
	s := testShaper(t)
	buttons := []config.Button{{Label: "Yes", Command: "echo did"}, {Label: "No", Command: "echo not"}}
	pal := theme.Default().Error

	a := Compute(500, 64, "Do it?", buttons, s)
	b := Compute(500, 64, "Do it?", buttons, s)

	assert.Equal(t, a.HitMap, b.HitMap)
	assert.Equal(t, a.RequiredHeight, b.RequiredHeight)
	assert.True(t, bytes.Equal(paint(a, pal, s), paint(b, pal, s)),
		"identical inputs must produce byte-identical pixels")
}

func TestHitMapGeometry(t *testing.T) {
	s := testShaper(t)
	buttons := []config.Button{
		{Label: "Retry", Command: "true"},
		{Label: "Ignore", Command: "true"},
		{Label: "Abort", Command: "true"},
	}

	l := Compute(800, 96, "Something went wrong", buttons, s)
	require.NotEmpty(t, l.HitMap.Targets)

	bounds := image.Rect(0, 0, 800, 96)
	for i, a := range l.HitMap.Targets {
		assert.True(t, a.Rect.In(bounds), "target %d out of bounds: %v", i, a.Rect)
		for j, b := range l.HitMap.Targets[i+1:] {
			assert.True(t, a.Rect.Intersect(b.Rect).Empty(),
				"targets %d and %d overlap", i, i+1+j)
		}
	}
}

func TestMessageOnlyHasNoTargets(t *testing.T) {
	s := testShaper(t)

	l := Compute(640, 32, "Hello, world!", nil, s)

	assert.Empty(t, l.HitMap.Targets)
	assert.False(t, l.HitMap.Message.Empty())

	// A click anywhere resolves to nothing.
	_, ok := l.HitMap.Hit(320, 16)
	assert.False(t, ok)
}

func TestTwoButtonsLeftToRight(t *testing.T) {
	s := testShaper(t)
	buttons := []config.Button{{Label: "Yes", Command: "echo did"}, {Label: "No", Command: "echo not"}}

	l := Compute(500, 64, "Do it?", buttons, s)

	// Two buttons plus the dismiss target.
	require.Len(t, l.HitMap.Targets, 3)
	yes, no, dismiss := l.HitMap.Targets[0], l.HitMap.Targets[1], l.HitMap.Targets[2]
	assert.Equal(t, 0, yes.Index)
	assert.Equal(t, 1, no.Index)
	assert.Equal(t, DismissIndex, dismiss.Index)
	assert.Less(t, yes.Rect.Min.X, no.Rect.Min.X)
	assert.Less(t, no.Rect.Min.X, dismiss.Rect.Min.X)

	mid := yes.Rect.Min.Add(yes.Rect.Max).Div(2)
	target, ok := l.HitMap.Hit(float64(mid.X), float64(mid.Y))
	require.True(t, ok)
	assert.Equal(t, 0, target.Index)
}

func TestButtonRowWrapGrowsRequiredHeight(t *testing.T) {
	s := testShaper(t)
	buttons := []config.Button{
		{Label: "A rather long button label", Command: "true"},
		{Label: "Another long button label", Command: "true"},
		{Label: "Yet another long label", Command: "true"},
	}

	narrow := Compute(260, 96, "Pick one", buttons, s)
	wide := Compute(1600, 96, "Pick one", buttons, s)

	assert.Greater(t, narrow.RequiredHeight, wide.RequiredHeight,
		"wrapped button rows must require a taller surface")
}

func TestMessageWrapGrowsRequiredHeight(t *testing.T) {
	s := testShaper(t)
	long := "This is a fairly long message that cannot possibly fit on a single line of a narrow bar"

	narrow := Compute(240, 32, long, nil, s)
	wide := Compute(2000, 32, long, nil, s)

	assert.Greater(t, narrow.RequiredHeight, wide.RequiredHeight)
	assert.GreaterOrEqual(t, wide.RequiredHeight, DefaultHeight)
}

func TestPaintFillsEveryPixel(t *testing.T) {
	s := testShaper(t)
	pal := theme.Default().Info

	l := Compute(64, 32, "", nil, s)
	pix := make([]byte, 64*32*4)
	l.Paint(pix, 64*4, pal, s)

	// No message, no buttons: every pixel is the background color.
	for i := 0; i < len(pix); i += 4 {
		assert.Equal(t, pal.Background.B, pix[i])
		assert.Equal(t, pal.Background.G, pix[i+1])
		assert.Equal(t, pal.Background.R, pix[i+2])
		assert.Equal(t, pal.Background.A, pix[i+3])
		if t.Failed() {
			break
		}
	}
}
