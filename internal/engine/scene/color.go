package scene

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Color is a linear RGB color with components in [0,1].
type Color struct {
	R, G, B float32
}

var (
	White = Color{1, 1, 1}
	Black = Color{}
)

// ParseColor accepts "#rgb", "#rrggbb" or a CSS color name ("white").
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := colornames.Map[s]; ok {
		return Color{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{
		R: float32(v>>16&0xff) / 255,
		G: float32(v>>8&0xff) / 255,
		B: float32(v&0xff) / 255,
	}, nil
}

// MustParseColor is ParseColor for literals; it panics on bad input.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Scale multiplies every component by f.
func (c Color) Scale(f float32) Color {
	return Color{c.R * f, c.G * f, c.B * f}
}

// Bytes returns the color as 8-bit components, clamping out-of-range values.
func (c Color) Bytes() (r, g, b uint8) {
	return channel(c.R), channel(c.G), channel(c.B)
}

// Hex formats the color as "#rrggbb", clamping out-of-range components.
func (c Color) Hex() string {
	r, g, b := c.Bytes()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func channel(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
