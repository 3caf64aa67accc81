package markup

// Screen is a plain in-memory Grid. Cells outside the grid read as blank.
type Screen struct {
	rows, cols int
	cells      []Cell
}

// NewScreen returns a rows x cols screen of blank cells.
func NewScreen(rows, cols int) *Screen {
	s := &Screen{}
	s.Resize(rows, cols)
	return s
}

// Dimensions implements Grid.
func (s *Screen) Dimensions() (rows, cols int) {
	return s.rows, s.cols
}

// CellAt implements Grid.
func (s *Screen) CellAt(row, col int) Cell {
	if !s.inBounds(row, col) {
		return BlankCell()
	}
	return s.cells[row*s.cols+col]
}

// Set replaces the cell at row, col. Out of range writes are dropped.
func (s *Screen) Set(row, col int, c Cell) {
	if !s.inBounds(row, col) {
		return
	}
	s.cells[row*s.cols+col] = c
}

// SetRow writes glyphs left to right from col 0 using template for the style.
func (s *Screen) SetRow(row int, glyphs string, template Cell) {
	col := 0
	for _, r := range glyphs {
		c := template
		c.Glyph = string(r)
		s.Set(row, col, c)
		col++
	}
}

// Resize changes the dimensions, keeping the overlapping top-left content.
// New positions are blank.
func (s *Screen) Resize(rows, cols int) {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	if rows == s.rows && cols == s.cols && s.cells != nil {
		return
	}

	cells := make([]Cell, rows*cols)
	for i := range cells {
		cells[i] = BlankCell()
	}
	keepRows := min(rows, s.rows)
	keepCols := min(cols, s.cols)
	for r := 0; r < keepRows; r++ {
		copy(cells[r*cols:r*cols+keepCols], s.cells[r*s.cols:r*s.cols+keepCols])
	}

	s.rows, s.cols, s.cells = rows, cols, cells
}

func (s *Screen) inBounds(row, col int) bool {
	return row >= 0 && row < s.rows && col >= 0 && col < s.cols
}
