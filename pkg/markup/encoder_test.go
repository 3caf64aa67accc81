package markup

import (
	"strings"
	"testing"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
)

func mustEncode(t *testing.T, enc *Encoder, g Grid) (string, string) {
	t.Helper()
	bg, fg, err := enc.Encode(g)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	return bg, fg
}

func TestEncodeAllDefaultScreen(t *testing.T) {
	s := NewScreen(3, 4)
	bg, fg := mustEncode(t, NewEncoder(nil), s)

	wantBG := strings.Repeat(strings.Repeat(DefaultFillGlyph, 4)+"\n", 3)
	wantFG := strings.Repeat("    \n", 3)
	if bg != wantBG {
		t.Errorf("background = %q, want %q", bg, wantBG)
	}
	if fg != wantFG {
		t.Errorf("foreground = %q, want %q", fg, wantFG)
	}
	if strings.Contains(bg+fg, "<") {
		t.Error("default screen should produce no tags")
	}
}

func TestEncodeReferenceScenario(t *testing.T) {
	s := NewScreen(2, 3)
	def := BlankCell()
	red := def
	red.Foreground = Red

	s.SetRow(0, "AB", def)
	c := red
	c.Glyph = "C"
	s.Set(0, 2, c)
	d := red
	d.Glyph = "D"
	s.Set(1, 0, d)
	e := def
	e.Glyph = "E"
	s.Set(1, 1, e)
	f := def
	f.Glyph = "F"
	s.Set(1, 2, f)

	bg, fg := mustEncode(t, NewEncoder(nil), s)

	if want := "AB<color=#800000>C\nD</color>EF\n"; fg != want {
		t.Errorf("foreground = %q, want %q", fg, want)
	}
	if want := "███\n███\n"; bg != want {
		t.Errorf("background = %q, want %q", bg, want)
	}
}

func TestEncodeBackgroundFillCount(t *testing.T) {
	s := NewScreen(5, 7)
	for r := 0; r < 5; r++ {
		for c := 0; c < 7; c++ {
			cell := BlankCell()
			cell.Background = ANSIColors[(r*7+c)%16]
			if (r+c)%3 == 0 {
				cell.Background = ColorDefault
			}
			cell.Bold = c%2 == 0
			s.Set(r, c, cell)
		}
	}
	bg, _ := mustEncode(t, NewEncoder(nil), s)

	if got := strings.Count(bg, DefaultFillGlyph); got != 35 {
		t.Errorf("fill glyph count = %d, want 35", got)
	}
	if got := strings.Count(bg, "\n"); got != 5 {
		t.Errorf("line count = %d, want 5", got)
	}
}

func TestEncodeIsIdempotent(t *testing.T) {
	s := NewScreen(2, 4)
	cell := BlankCell()
	cell.Foreground = Green
	cell.Background = Blue
	cell.Underline = true
	s.SetRow(0, "ab", cell)

	enc := NewEncoder(nil)
	bg1, fg1 := mustEncode(t, enc, s)
	bg2, fg2 := mustEncode(t, enc, s)
	if bg1 != bg2 || fg1 != fg2 {
		t.Error("encoding an unchanged screen twice should be byte-identical")
	}
}

func TestEncodeStyleRunBalance(t *testing.T) {
	tests := []struct {
		name  string
		set   func(*Cell)
		open  string
		close string
	}{
		{"bold", func(c *Cell) { c.Bold = true }, "<b>", "</b>"},
		{"italic", func(c *Cell) { c.Italic = true }, "<i>", "</i>"},
		{"underline", func(c *Cell) { c.Underline = true }, "<u>", "</u>"},
		{"strikethrough", func(c *Cell) { c.Strikethrough = true }, "<s>", "</s>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScreen(1, 5)
			s.SetRow(0, "abcde", BlankCell())
			for col := 1; col <= 3; col++ {
				c := s.CellAt(0, col)
				tt.set(&c)
				s.Set(0, col, c)
			}

			_, fg := mustEncode(t, NewEncoder(nil), s)
			want := "a" + tt.open + "bcd" + tt.close + "e\n"
			if fg != want {
				t.Errorf("foreground = %q, want %q", fg, want)
			}
		})
	}
}

func TestEncodeColorOverride(t *testing.T) {
	s := NewScreen(1, 4)
	s.SetRow(0, "wxyz", BlankCell())
	for col, color := range []Color{ColorDefault, Red, Blue, ColorDefault} {
		c := s.CellAt(0, col)
		c.Foreground = color
		s.Set(0, col, c)
	}

	_, fg := mustEncode(t, NewEncoder(nil), s)
	if want := "w<color=#800000>x<color=#000080>y</color>z\n"; fg != want {
		t.Errorf("foreground = %q, want %q", fg, want)
	}

	xToY := fg[strings.Index(fg, "x")+1 : strings.Index(fg, "y")]
	if strings.Count(xToY, "<color=#000080>") != 1 || strings.Contains(xToY, colorClose) {
		t.Errorf("red to blue transition = %q, want exactly one open and no close", xToY)
	}
}

func TestEncodeCloseBeforeOverride(t *testing.T) {
	s := NewScreen(1, 2)
	a := BlankCell()
	a.Background = Red
	b := BlankCell()
	b.Background = Blue
	s.Set(0, 0, a)
	s.Set(0, 1, b)

	bg, _ := mustEncode(t, NewEncoder(nil, WithCloseBeforeOverride(true)), s)
	if want := "<color=#800000>█</color><color=#000080>█\n"; bg != want {
		t.Errorf("background = %q, want %q", bg, want)
	}
}

func TestEncodePrimesFromFirstCell(t *testing.T) {
	s := NewScreen(1, 2)
	first := Cell{
		Glyph:         "x",
		Foreground:    Yellow,
		Background:    Red,
		Bold:          true,
		Italic:        true,
		Underline:     true,
		Strikethrough: true,
	}
	s.Set(0, 0, first)
	s.Set(0, 1, first)

	bg, fg := mustEncode(t, NewEncoder(nil), s)
	if want := "<color=#800000>██\n"; bg != want {
		t.Errorf("background = %q, want %q", bg, want)
	}
	if want := "<color=#808000><b><i><u><s>x" + "x\n"; fg != want {
		t.Errorf("foreground = %q, want %q", fg, want)
	}
}

func TestEncodeRunSpansRowBoundary(t *testing.T) {
	s := NewScreen(2, 2)
	s.SetRow(0, "ab", BlankCell())
	s.SetRow(1, "cd", BlankCell())
	for _, pos := range [][2]int{{0, 1}, {1, 0}} {
		c := s.CellAt(pos[0], pos[1])
		c.Foreground = Cyan
		s.Set(pos[0], pos[1], c)
	}

	_, fg := mustEncode(t, NewEncoder(nil), s)
	if want := "a<color=#008080>b\nc</color>d\n"; fg != want {
		t.Errorf("foreground = %q, want %q", fg, want)
	}
}

func TestEncodeLeavesTrailingTagsOpen(t *testing.T) {
	s := NewScreen(1, 2)
	s.SetRow(0, "ab", BlankCell())
	c := s.CellAt(0, 1)
	c.Bold = true
	c.Background = Green
	s.Set(0, 1, c)

	bg, fg := mustEncode(t, NewEncoder(nil), s)
	if want := "a<b>b\n"; fg != want {
		t.Errorf("foreground = %q, want %q", fg, want)
	}
	if want := "█<color=#008000>█\n"; bg != want {
		t.Errorf("background = %q, want %q", bg, want)
	}
}

func TestEncodeUnknownColor(t *testing.T) {
	s := NewScreen(2, 2)
	c := BlankCell()
	c.Foreground = Color("color196")
	s.Set(1, 1, c)

	bg, fg, err := NewEncoder(nil).Encode(s)
	if err == nil {
		t.Fatal("expected an error for a color outside the palette")
	}
	if !apperrors.IsCode(err, apperrors.ErrCodeUnknownColor) {
		t.Errorf("error code = %q, want %q", apperrors.GetCode(err), apperrors.ErrCodeUnknownColor)
	}
	if !strings.Contains(err.Error(), "color196") {
		t.Errorf("error should name the color: %v", err)
	}
	if bg != "" || fg != "" {
		t.Error("failed encode should not return partial output")
	}
}

func TestEncodeUsesPaletteOverrides(t *testing.T) {
	p, err := NewPalette(map[string]string{"red": "#ff1111"})
	if err != nil {
		t.Fatalf("NewPalette: %v", err)
	}
	s := NewScreen(1, 1)
	c := BlankCell()
	c.Foreground = Red
	s.Set(0, 0, c)

	_, fg := mustEncode(t, NewEncoder(p), s)
	if want := "<color=#FF1111> \n"; fg != want {
		t.Errorf("foreground = %q, want %q", fg, want)
	}
}

func TestEncodeFillGlyphOption(t *testing.T) {
	bg, _ := mustEncode(t, NewEncoder(nil, WithFillGlyph("#")), NewScreen(1, 3))
	if bg != "###\n" {
		t.Errorf("background = %q", bg)
	}
	if got := NewEncoder(nil, WithFillGlyph("")).FillGlyph(); got != DefaultFillGlyph {
		t.Errorf("empty fill glyph should keep default, got %q", got)
	}
}

func TestEncodeGlyphPlaceholders(t *testing.T) {
	s := NewScreen(1, 4)
	s.Set(0, 0, Cell{Glyph: "表"})
	s.Set(0, 1, Cell{Continuation: true})
	s.Set(0, 2, Cell{})
	s.Set(0, 3, Cell{Glyph: "z"})

	bg, fg := mustEncode(t, NewEncoder(nil), s)
	if want := "表 z\n"; fg != want {
		t.Errorf("foreground = %q, want %q", fg, want)
	}
	if strings.Count(bg, DefaultFillGlyph) != 4 {
		t.Errorf("continuation cells still get a fill glyph: %q", bg)
	}
}

func TestEncodeEmptyDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 0}, {0, 5}, {5, 0}} {
		bg, fg := mustEncode(t, NewEncoder(nil), NewScreen(dims[0], dims[1]))
		if bg != "" || fg != "" {
			t.Errorf("%dx%d: expected empty layers, got %q / %q", dims[0], dims[1], bg, fg)
		}
	}
}

func TestEncodeAfterResizeUsesNewDimensions(t *testing.T) {
	s := NewScreen(2, 3)
	s.SetRow(0, "abc", BlankCell())
	enc := NewEncoder(nil)
	mustEncode(t, enc, s)

	s.Resize(4, 5)
	bg, fg := mustEncode(t, enc, s)
	if got := strings.Count(bg, "\n"); got != 4 {
		t.Errorf("background lines = %d, want 4", got)
	}
	if got := strings.Count(fg, "\n"); got != 4 {
		t.Errorf("foreground lines = %d, want 4", got)
	}
	if want := "abc  \n     \n     \n     \n"; fg != want {
		t.Errorf("foreground = %q, want %q", fg, want)
	}
}

func TestEncodeTreatsZeroColorAsDefault(t *testing.T) {
	s := NewScreen(1, 2)
	s.Set(0, 0, Cell{Glyph: "a", Foreground: ""})
	s.Set(0, 1, Cell{Glyph: "b", Foreground: ColorDefault})

	_, fg := mustEncode(t, NewEncoder(nil), s)
	if fg != "ab\n" {
		t.Errorf("foreground = %q, want no tags", fg)
	}
}

func BenchmarkEncode(b *testing.B) {
	s := NewScreen(50, 200)
	for r := 0; r < 50; r++ {
		for c := 0; c < 200; c++ {
			cell := BlankCell()
			cell.Glyph = "x"
			cell.Foreground = ANSIColors[(c/7)%16]
			cell.Background = ANSIColors[(r/3)%16]
			cell.Bold = c%11 == 0
			s.Set(r, c, cell)
		}
	}
	enc := NewEncoder(nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := enc.Encode(s); err != nil {
			b.Fatal(err)
		}
	}
}
