// Package preview draws markup screens on a real terminal. It is the
// renderer behind the watch command, standing in for the game-side client.
package preview

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/odvcencio/termmarkup/pkg/markup"
)

const (
	clearScreen = "\x1b[2J"
	cursorHome  = "\x1b[H"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
)

// Renderer turns grids into terminal output for one color profile.
type Renderer struct {
	palette *markup.Palette
	profile termenv.Profile
}

// New returns a renderer. A nil palette uses markup.DefaultPalette.
func New(palette *markup.Palette, profile termenv.Profile) *Renderer {
	if palette == nil {
		palette = markup.DefaultPalette()
	}
	return &Renderer{palette: palette, profile: profile}
}

// Frame returns a full redraw of g: clear, home, then every row with runs of
// equal style written as one styled string.
func (r *Renderer) Frame(g markup.Grid) string {
	rows, cols := g.Dimensions()

	var b strings.Builder
	b.Grow(rows * cols * 2)
	b.WriteString(clearScreen)
	b.WriteString(cursorHome)
	b.WriteString(hideCursor)

	for row := 0; row < rows; row++ {
		if row > 0 {
			b.WriteString("\r\n")
		}
		var run strings.Builder
		var runStyle markup.Cell
		flush := func() {
			if run.Len() > 0 {
				b.WriteString(r.style(runStyle).Styled(run.String()))
				run.Reset()
			}
		}
		for col := 0; col < cols; col++ {
			cell := g.CellAt(row, col)
			if cell.Continuation {
				continue
			}
			if run.Len() > 0 && !cell.SameStyle(runStyle) {
				flush()
			}
			runStyle = cell
			run.WriteString(visibleGlyph(cell.Glyph))
		}
		flush()
	}
	b.WriteString(showCursor)
	return b.String()
}

// Render writes Frame(g) to w.
func (r *Renderer) Render(w io.Writer, g markup.Grid) error {
	_, err := io.WriteString(w, r.Frame(g))
	return err
}

func (r *Renderer) style(c markup.Cell) termenv.Style {
	s := r.profile.String()
	if hex, ok := r.hex(c.Foreground); ok {
		s = s.Foreground(r.profile.Color(hex))
	}
	if hex, ok := r.hex(c.Background); ok {
		s = s.Background(r.profile.Color(hex))
	}
	if c.Bold {
		s = s.Bold()
	}
	if c.Italic {
		s = s.Italic()
	}
	if c.Underline {
		s = s.Underline()
	}
	if c.Strikethrough {
		s = s.CrossOut()
	}
	return s
}

func (r *Renderer) hex(c markup.Color) (string, bool) {
	if c.IsDefault() {
		return "", false
	}
	return r.palette.Hex(c)
}

// visibleGlyph keeps every cell one column wide on screen. Empty and
// zero-width glyphs would shift the rest of the row left.
func visibleGlyph(g string) string {
	if g == "" || runewidth.StringWidth(g) == 0 {
		return " "
	}
	return g
}
