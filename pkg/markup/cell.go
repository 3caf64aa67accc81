// Package markup turns a grid of styled terminal cells into the two tagged
// text layers understood by the remote renderer, and parses those layers back.
//
// The background layer carries one fill glyph per cell wrapped in color tags.
// The foreground layer carries the cell glyphs wrapped in color and style tags
// (<b>, <i>, <u>, <s>). Both layers end every row with a newline.
package markup

// Color identifies a palette entry by name. ColorDefault means no color tag.
type Color string

// ColorDefault is the sentinel for "no color". It is never a palette key.
const ColorDefault Color = "default"

// The sixteen canonical console colors.
const (
	Black        Color = "black"
	Blue         Color = "blue"
	Cyan         Color = "cyan"
	Green        Color = "green"
	Purple       Color = "purple"
	Red          Color = "red"
	White        Color = "white"
	Yellow       Color = "yellow"
	BrightBlack  Color = "brightBlack"
	BrightBlue   Color = "brightBlue"
	BrightCyan   Color = "brightCyan"
	BrightGreen  Color = "brightGreen"
	BrightPurple Color = "brightPurple"
	BrightRed    Color = "brightRed"
	BrightWhite  Color = "brightWhite"
	BrightYellow Color = "brightYellow"
)

// ANSIColors lists the canonical colors in SGR index order (30-37, 90-97).
var ANSIColors = [16]Color{
	Black, Red, Green, Yellow, Blue, Purple, Cyan, White,
	BrightBlack, BrightRed, BrightGreen, BrightYellow, BrightBlue, BrightPurple, BrightCyan, BrightWhite,
}

// IsDefault reports whether c means "no color". The zero value counts as default.
func (c Color) IsDefault() bool {
	return c == ColorDefault || c == ""
}

func (c Color) normalized() Color {
	if c == "" {
		return ColorDefault
	}
	return c
}

// Cell is one terminal screen position and its display attributes.
type Cell struct {
	Glyph         string
	Foreground    Color
	Background    Color
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool

	// Continuation marks the second column of a wide glyph. It still gets a
	// background fill but contributes nothing to the foreground text.
	Continuation bool
}

// BlankCell returns a space with default colors and no styles.
func BlankCell() Cell {
	return Cell{Glyph: " ", Foreground: ColorDefault, Background: ColorDefault}
}

// text is the foreground content written for the cell.
func (c Cell) text() string {
	if c.Continuation {
		return ""
	}
	if c.Glyph == "" {
		return " "
	}
	return c.Glyph
}

// SameStyle reports whether two cells share every attribute the encoder tags.
func (c Cell) SameStyle(other Cell) bool {
	return c.Foreground.normalized() == other.Foreground.normalized() &&
		c.Background.normalized() == other.Background.normalized() &&
		c.Bold == other.Bold &&
		c.Italic == other.Italic &&
		c.Underline == other.Underline &&
		c.Strikethrough == other.Strikethrough
}

// Grid is the read side of a terminal screen.
type Grid interface {
	Dimensions() (rows, cols int)
	CellAt(row, col int) Cell
}
