package screen

import (
	"fmt"
	"image/color"

	headlessterm "github.com/danielgatis/go-headless-term"

	"github.com/odvcencio/termmarkup/pkg/markup"
)

const anyUnderline = headlessterm.CellFlagUnderline |
	headlessterm.CellFlagDoubleUnderline |
	headlessterm.CellFlagCurlyUnderline |
	headlessterm.CellFlagDottedUnderline |
	headlessterm.CellFlagDashedUnderline

func translateCell(c *headlessterm.Cell) markup.Cell {
	out := markup.Cell{
		Glyph:         glyphOf(c.Char),
		Foreground:    colorName(c.Fg),
		Background:    colorName(c.Bg),
		Bold:          c.HasFlag(headlessterm.CellFlagBold),
		Italic:        c.HasFlag(headlessterm.CellFlagItalic),
		Underline:     c.Flags&anyUnderline != 0,
		Strikethrough: c.HasFlag(headlessterm.CellFlagStrike),
	}
	if c.IsWideSpacer() {
		out.Glyph = ""
		out.Continuation = true
	}
	return out
}

func glyphOf(r rune) string {
	if r == 0 {
		return " "
	}
	return string(r)
}

// colorName maps an emulator color to a palette name. Colors outside the
// sixteen console colors get a descriptive name that no palette holds, so the
// encoder reports them instead of guessing a substitute.
func colorName(c color.Color) markup.Color {
	switch v := c.(type) {
	case nil:
		return markup.ColorDefault
	case *headlessterm.NamedColor:
		if v.Name >= 0 && v.Name < len(markup.ANSIColors) {
			return markup.ANSIColors[v.Name]
		}
		// Foreground, background, cursor and the dim variants all render
		// as the renderer's own default.
		return markup.ColorDefault
	case *headlessterm.IndexedColor:
		if v.Index >= 0 && v.Index < len(markup.ANSIColors) {
			return markup.ANSIColors[v.Index]
		}
		return markup.Color(fmt.Sprintf("color%d", v.Index))
	case color.RGBA:
		return markup.Color(fmt.Sprintf("#%02x%02x%02x", v.R, v.G, v.B))
	default:
		r, g, b, _ := c.RGBA()
		return markup.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
	}
}
