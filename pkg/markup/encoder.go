package markup

import (
	"strings"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
)

// DefaultFillGlyph is written once per cell into the background layer.
const DefaultFillGlyph = "█"

const (
	colorOpenPrefix = "<color="
	colorClose      = "</color>"
)

// styleTag is one boolean attribute of the foreground layer.
type styleTag struct {
	open, close string
	isSet       func(Cell) bool
	set         func(*Cell, bool)
}

// styleTags are evaluated in this order for every cell.
var styleTags = [...]styleTag{
	{"<b>", "</b>", func(c Cell) bool { return c.Bold }, func(c *Cell, v bool) { c.Bold = v }},
	{"<i>", "</i>", func(c Cell) bool { return c.Italic }, func(c *Cell, v bool) { c.Italic = v }},
	{"<u>", "</u>", func(c Cell) bool { return c.Underline }, func(c *Cell, v bool) { c.Underline = v }},
	{"<s>", "</s>", func(c Cell) bool { return c.Strikethrough }, func(c *Cell, v bool) { c.Strikethrough = v }},
}

// Encoder renders grids into background and foreground markup. It holds no
// per-call state and may be shared.
type Encoder struct {
	palette             *Palette
	fill                string
	closeBeforeOverride bool
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithFillGlyph sets the background fill glyph. Empty keeps the default.
func WithFillGlyph(glyph string) Option {
	return func(e *Encoder) {
		if glyph != "" {
			e.fill = glyph
		}
	}
}

// WithCloseBeforeOverride makes a direct change between two concrete colors
// emit </color> before the new open tag, for renderers that nest color tags
// instead of letting the latest one win.
func WithCloseBeforeOverride(enabled bool) Option {
	return func(e *Encoder) {
		e.closeBeforeOverride = enabled
	}
}

// NewEncoder returns an encoder for palette. A nil palette uses DefaultPalette.
func NewEncoder(palette *Palette, opts ...Option) *Encoder {
	if palette == nil {
		palette = DefaultPalette()
	}
	e := &Encoder{palette: palette, fill: DefaultFillGlyph}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Palette returns the palette used for color lookups.
func (e *Encoder) Palette() *Palette {
	return e.palette
}

// FillGlyph returns the background fill glyph.
func (e *Encoder) FillGlyph() string {
	return e.fill
}

// Encode scans g row-major and returns the background and foreground layers.
//
// Comparison state carries across row boundaries, so a run that wraps a line
// keeps its tag open over the newline. Tags still open after the last cell are
// left open. A color that is not in the palette fails the whole call with
// ErrCodeUnknownColor.
func (e *Encoder) Encode(g Grid) (background, foreground string, err error) {
	rows, cols := g.Dimensions()
	if rows <= 0 || cols <= 0 {
		return "", "", nil
	}

	var bg, fg strings.Builder
	bg.Grow(rows * (cols*len(e.fill) + 1))
	fg.Grow(rows * (cols + 1))

	// Starting from an all-default cell emits the opening tags of cell (0,0)
	// before its content, then compares every later cell to its predecessor.
	prev := Cell{}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cur := g.CellAt(row, col)

			if err := e.colorTransition(&bg, prev.Background, cur.Background, row, col); err != nil {
				return "", "", err
			}
			if err := e.colorTransition(&fg, prev.Foreground, cur.Foreground, row, col); err != nil {
				return "", "", err
			}
			for _, tag := range styleTags {
				was, is := tag.isSet(prev), tag.isSet(cur)
				switch {
				case is && !was:
					fg.WriteString(tag.open)
				case was && !is:
					fg.WriteString(tag.close)
				}
			}

			bg.WriteString(e.fill)
			fg.WriteString(cur.text())
			prev = cur
		}
		bg.WriteByte('\n')
		fg.WriteByte('\n')
	}

	return bg.String(), fg.String(), nil
}

func (e *Encoder) colorTransition(b *strings.Builder, from, to Color, row, col int) error {
	from, to = from.normalized(), to.normalized()
	if from == to {
		return nil
	}
	if to == ColorDefault {
		b.WriteString(colorClose)
		return nil
	}

	hex, ok := e.palette.Hex(to)
	if !ok {
		return apperrors.New(apperrors.ErrCodeUnknownColor, "color is not in the palette").
			WithContext("color", string(to)).
			WithContext("row", row).
			WithContext("col", col)
	}
	if from != ColorDefault && e.closeBeforeOverride {
		b.WriteString(colorClose)
	}
	b.WriteString(colorOpenPrefix)
	b.WriteString(hex)
	b.WriteByte('>')
	return nil
}
