package markup

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
)

// Decoder parses layers produced by an Encoder back into a Screen.
//
// It models the renderer the encoder targets: an open color tag replaces the
// active color and a single </color> returns to default no matter how many
// color tags were opened. Anything that is not a recognised tag is text.
//
// The layers carry no escaping, so screen text that spells a tag, such as
// the glyphs "<b>", decodes as that tag rather than as three glyphs.
type Decoder struct {
	palette *Palette
}

// NewDecoder returns a decoder that resolves hex values through palette.
func NewDecoder(palette *Palette) *Decoder {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Decoder{palette: palette}
}

type decodeState struct {
	color Color
	cell  Cell
}

// Decode rebuilds a screen from a background and foreground layer pair.
// The background layer fixes the dimensions: one row per line, one column per
// fill glyph. Foreground glyphs of width two also cover the following column.
func (d *Decoder) Decode(background, foreground string) (*Screen, error) {
	bgLines := splitLayer(background)
	fgLines := splitLayer(foreground)

	rows := len(bgLines)
	cols := 0
	bgRows := make([][]Color, rows)
	var bgState decodeState
	for r, line := range bgLines {
		colors, err := d.scanLine(line, &bgState, func(st *decodeState, _ rune) {})
		if err != nil {
			return nil, err
		}
		bgRows[r] = colors
		cols = max(cols, len(colors))
	}

	s := NewScreen(rows, cols)
	for r, colors := range bgRows {
		for c, color := range colors {
			cell := BlankCell()
			cell.Background = color
			s.Set(r, c, cell)
		}
	}

	var fgState decodeState
	for r := 0; r < len(fgLines) && r < rows; r++ {
		col := 0
		_, err := d.scanLine(fgLines[r], &fgState, func(st *decodeState, ch rune) {
			cell := st.cell
			cell.Foreground = st.colorOrDefault()
			cell.Background = s.CellAt(r, col).Background
			cell.Glyph = string(ch)
			s.Set(r, col, cell)
			col++
			if runewidth.RuneWidth(ch) == 2 {
				spacer := cell
				spacer.Glyph = ""
				spacer.Continuation = true
				spacer.Background = s.CellAt(r, col).Background
				s.Set(r, col, spacer)
				col++
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// scanLine walks one line, applying tags to st and calling emit for text
// runes. It returns the active color of every text rune.
func (d *Decoder) scanLine(line string, st *decodeState, emit func(*decodeState, rune)) ([]Color, error) {
	var colors []Color
	for i := 0; i < len(line); {
		if line[i] == '<' {
			n, err := d.applyTag(line[i:], st)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				i += n
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(line[i:])
		colors = append(colors, st.colorOrDefault())
		emit(st, r)
		i += size
	}
	return colors, nil
}

func (st *decodeState) colorOrDefault() Color {
	if st.color == "" {
		return ColorDefault
	}
	return st.color
}

// applyTag consumes a tag at the start of s and returns its length, or zero
// when s does not start with a known tag.
func (d *Decoder) applyTag(s string, st *decodeState) (int, error) {
	if strings.HasPrefix(s, colorClose) {
		st.color = ColorDefault
		return len(colorClose), nil
	}
	if strings.HasPrefix(s, colorOpenPrefix) {
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return 0, nil
		}
		hex := s[len(colorOpenPrefix):end]
		if !hexColorPattern.MatchString(hex) {
			return 0, nil
		}
		name, ok := d.palette.Name(hex)
		if !ok {
			return 0, apperrors.New(apperrors.ErrCodeUnknownColor, "color value is not in the palette").
				WithContext("color", hex)
		}
		st.color = name
		return end + 1, nil
	}
	for _, tag := range styleTags {
		switch {
		case strings.HasPrefix(s, tag.open):
			tag.set(&st.cell, true)
			return len(tag.open), nil
		case strings.HasPrefix(s, tag.close):
			tag.set(&st.cell, false)
			return len(tag.close), nil
		}
	}
	return 0, nil
}

func splitLayer(layer string) []string {
	if layer == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(layer, "\n"), "\n")
}
