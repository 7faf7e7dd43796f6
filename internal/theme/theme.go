// Package theme provides the color palettes the bar is drawn with, one per
// message type, with an optional TOML override file.
package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// Color is an ARGB color. In TOML it is written as "#aarrggbb" or
// "#rrggbb" (opaque).
type Color struct {
	A, R, G, B uint8
}

// UnmarshalText parses the "#aarrggbb" form.
func (c *Color) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) == 0 || s[0] != '#' {
		return fmt.Errorf("color %q: want #rrggbb or #aarrggbb", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return fmt.Errorf("color %q: %v", s, err)
	}
	switch len(s) - 1 {
	case 6:
		c.A = 0xff
	case 8:
		c.A = uint8(v >> 24)
	default:
		return fmt.Errorf("color %q: want 6 or 8 hex digits", s)
	}
	c.R = uint8(v >> 16)
	c.G = uint8(v >> 8)
	c.B = uint8(v)
	return nil
}

// MarshalText renders the "#aarrggbb" form.
func (c Color) MarshalText() ([]byte, error) {
	return fmt.Appendf(nil, "#%02x%02x%02x%02x", c.A, c.R, c.G, c.B), nil
}

// Palette is the color set for one message type.
type Palette struct {
	Background Color `toml:"background"`
	Button     Color `toml:"button"`
	Text       Color `toml:"text"`
}

// Theme maps message types to palettes.
type Theme struct {
	Error   Palette `toml:"error"`
	Warning Palette `toml:"warning"`
	Info    Palette `toml:"info"`
}

// Default returns the built-in theme.
func Default() *Theme {
	white := Color{0xff, 0xff, 0xff, 0xff}
	return &Theme{
		Error: Palette{
			Background: Color{0xff, 0xc8, 0x00, 0x00},
			Button:     Color{0xff, 0x64, 0x00, 0x00},
			Text:       white,
		},
		Warning: Palette{
			Background: Color{0xff, 0xb0, 0x6a, 0x00},
			Button:     Color{0xff, 0x70, 0x42, 0x00},
			Text:       white,
		},
		Info: Palette{
			Background: Color{0xff, 0x28, 0x55, 0x77},
			Button:     Color{0xff, 0x1a, 0x3a, 0x52},
			Text:       white,
		},
	}
}

// Path returns the default theme file location.
func Path() string {
	return filepath.Join(xdg.ConfigHome, "waysay", "theme.toml")
}

// Load reads the theme file at path (the default location when empty).
// A missing file yields the built-in theme.
func Load(path string) (*Theme, error) {
	if path == "" {
		path = Path()
	}

	th := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return th, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, th); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return th, nil
}

// ForType returns the palette for a message type, defaulting to error.
func (t *Theme) ForType(messageType string) Palette {
	switch messageType {
	case "warning":
		return t.Warning
	case "info":
		return t.Info
	default:
		return t.Error
	}
}
