package markup

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// defaultHex holds the console colors Dwarf Fortress ships with.
var defaultHex = map[Color]string{
	Black:        "#000000",
	Blue:         "#000080",
	Cyan:         "#008080",
	Green:        "#008000",
	Purple:       "#800080",
	Red:          "#800000",
	White:        "#C0C0C0",
	Yellow:       "#808000",
	BrightBlack:  "#808080",
	BrightBlue:   "#0000FF",
	BrightCyan:   "#00FFFF",
	BrightGreen:  "#00FF00",
	BrightPurple: "#FF00FF",
	BrightRed:    "#FF0000",
	BrightWhite:  "#FFFFFF",
	BrightYellow: "#FFFF00",
}

// Palette maps the sixteen canonical color names to hex values. It is
// immutable once built.
type Palette struct {
	hex   map[Color]string
	names map[string]Color
}

// DefaultPalette returns the stock sixteen-color palette.
func DefaultPalette() *Palette {
	p, _ := NewPalette(nil)
	return p
}

// NewPalette builds a palette from the defaults with the given overrides
// applied. Override keys must be canonical names and values #RRGGBB.
func NewPalette(overrides map[string]string) (*Palette, error) {
	p := &Palette{
		hex:   make(map[Color]string, len(defaultHex)),
		names: make(map[string]Color, len(defaultHex)),
	}
	for name, value := range defaultHex {
		p.hex[name] = value
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := Color(k)
		if _, ok := defaultHex[name]; !ok {
			return nil, fmt.Errorf("palette override %q is not one of the sixteen console colors", k)
		}
		value := strings.TrimSpace(overrides[k])
		if !hexColorPattern.MatchString(value) {
			return nil, fmt.Errorf("palette override %s=%q must be #RRGGBB", k, value)
		}
		p.hex[name] = strings.ToUpper(value)
	}

	for name, value := range p.hex {
		// Two names may share a value after overrides; keep the first in
		// ANSI order so reverse lookups are deterministic.
		if _, taken := p.names[value]; !taken || ansiIndex(name) < ansiIndex(p.names[value]) {
			p.names[value] = name
		}
	}
	return p, nil
}

func ansiIndex(c Color) int {
	for i, name := range ANSIColors {
		if name == c {
			return i
		}
	}
	return len(ANSIColors)
}

// Hex returns the hex value for a color name. ColorDefault is never found.
func (p *Palette) Hex(c Color) (string, bool) {
	v, ok := p.hex[c]
	return v, ok
}

// Name returns the color whose value is hex, case-insensitively.
func (p *Palette) Name(hex string) (Color, bool) {
	c, ok := p.names[strings.ToUpper(hex)]
	return c, ok
}

// Colors returns the palette names in ANSI order.
func (p *Palette) Colors() []Color {
	out := make([]Color, len(ANSIColors))
	copy(out, ANSIColors[:])
	return out
}
