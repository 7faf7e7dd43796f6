// Package render computes the bar's layout and paints it. Given identical
// inputs and dimensions it produces byte-identical pixels and an identical
// hit-map; there is no hidden state.
package render

import (
	"image"
	"strings"

	"github.com/jmylchreest/waysay/internal/config"
	"github.com/jmylchreest/waysay/internal/theme"
)

// Geometry constants, carried over from the original bar.
const (
	FontSize      = 16
	PaddingX      = 10
	PaddingY      = 2
	ButtonGap     = 10
	DefaultHeight = 32
)

// DismissIndex marks a hit target that dismisses the bar instead of running
// a button command.
const DismissIndex = -1

// Target maps a pixel rectangle to an activation.
type Target struct {
	Rect  image.Rectangle
	Index int // button index, or DismissIndex
}

// HitMap resolves pointer positions against the most recent committed
// frame. It is rebuilt whenever geometry changes and read-only in between.
type HitMap struct {
	Message image.Rectangle
	Targets []Target
}

// Hit returns the target containing the surface-local point, if any. The
// message region is not interactive.
func (h *HitMap) Hit(x, y float64) (Target, bool) {
	p := image.Point{int(x), int(y)}
	for _, t := range h.Targets {
		if p.In(t.Rect) {
			return t, true
		}
	}
	return Target{}, false
}

type buttonBox struct {
	label string
	index int
	rect  image.Rectangle
}

// Layout is the computed geometry for one set of dimensions.
type Layout struct {
	Width  int
	Height int

	// RequiredHeight is the height the content actually needs. When it
	// exceeds Height (message lines or wrapped button rows), the session
	// must renegotiate the surface size before committing.
	RequiredHeight int

	HitMap HitMap

	lines   []string
	buttons []buttonBox
}

// Compute lays out the message and buttons for the given dimensions. Pure:
// no drawing happens here.
func Compute(width, height int, message string, buttons []config.Button, s *Shaper) *Layout {
	l := &Layout{Width: width, Height: height}
	lineH := s.LineHeight()
	textW := width - 2*PaddingX

	l.lines = wrap(message, textW, s)
	messageH := 2*PaddingY + len(l.lines)*lineH
	l.HitMap.Message = image.Rect(0, 0, width, min(messageH, height))

	// The dismiss button rides along after the user's buttons, but only
	// when there are buttons at all; a plain message is dismissed via
	// escape or the compositor closing the surface.
	labels := make([]buttonBox, 0, len(buttons)+1)
	for i, b := range buttons {
		labels = append(labels, buttonBox{label: b.Label, index: i})
	}
	if len(buttons) > 0 {
		labels = append(labels, buttonBox{label: "x", index: DismissIndex})
	}

	buttonH := lineH + 2*PaddingY
	rows := 0
	if len(labels) > 0 {
		// First pass: greedy left-to-right row assignment.
		x := PaddingX
		rowOf := make([]int, len(labels))
		for i := range labels {
			w := min(s.Measure(labels[i].label)+2*PaddingX, width-2*PaddingX)
			if w < 1 {
				w = 1
			}
			if x > PaddingX && x+w > width-PaddingX {
				rows++
				x = PaddingX
			}
			rowOf[i] = rows
			labels[i].rect = image.Rect(x, 0, x+w, buttonH)
			x += w + ButtonGap
		}
		rows++

		// Second pass: anchor the rows to the bottom edge.
		areaH := rows * (buttonH + PaddingY)
		top := height - areaH
		for i := range labels {
			dy := top + rowOf[i]*(buttonH+PaddingY)
			labels[i].rect = labels[i].rect.Add(image.Point{0, dy})
		}
		l.buttons = labels
		l.RequiredHeight = messageH + areaH
	} else {
		l.RequiredHeight = messageH
	}
	if l.RequiredHeight < DefaultHeight {
		l.RequiredHeight = DefaultHeight
	}

	for _, b := range l.buttons {
		l.HitMap.Targets = append(l.HitMap.Targets, Target{Rect: b.rect, Index: b.index})
	}
	return l
}

// Paint draws the frame into pix (ARGB8888, stride bytes per row). The
// buffer is fully written.
func (l *Layout) Paint(pix []byte, stride int, pal theme.Palette, s *Shaper) {
	c := NewCanvas(pix, l.Width, l.Height, stride)
	c.Fill(pal.Background)

	lineH := s.LineHeight()
	for i, line := range l.lines {
		c.DrawText(s, PaddingX, PaddingY+i*lineH, pal.Text, line)
	}

	for _, b := range l.buttons {
		c.FillRect(b.rect, pal.Button)
		tw := s.Measure(b.label)
		tx := b.rect.Min.X + (b.rect.Dx()-tw)/2
		ty := b.rect.Min.Y + (b.rect.Dy()-lineH)/2
		c.DrawText(s, tx, ty, pal.Text, b.label)
	}
}

// wrap splits message into lines no wider than maxWidth. A single word
// wider than the limit gets its own line rather than being broken.
func wrap(message string, maxWidth int, s *Shaper) []string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if s.Measure(candidate) > maxWidth {
			lines = append(lines, line)
			line = w
			continue
		}
		line = candidate
	}
	return append(lines, line)
}
