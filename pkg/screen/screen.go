// Package screen adapts a headless VT emulator into a markup.Grid.
//
// Raw program output is fed in; cells are read back with their colors
// translated to palette names. Escape sequence parsing is entirely the
// emulator's job.
package screen

import (
	"io"

	headlessterm "github.com/danielgatis/go-headless-term"

	"github.com/odvcencio/termmarkup/pkg/markup"
)

// Terminal is a live virtual screen backed by a headless emulator.
type Terminal struct {
	term *headlessterm.Terminal
}

type options struct {
	responses io.Writer
}

// Option configures a Terminal.
type Option func(*options)

// WithResponseWriter routes terminal replies (cursor position and device
// status reports) to w, normally the wrapped program's input.
func WithResponseWriter(w io.Writer) Option {
	return func(o *options) {
		o.responses = w
	}
}

// New creates a rows x cols terminal. Non-positive sizes fall back to 1x1.
func New(rows, cols int, opts ...Option) *Terminal {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rows, cols = max(rows, 1), max(cols, 1)
	termOpts := []headlessterm.Option{headlessterm.WithSize(rows, cols)}
	if o.responses != nil {
		termOpts = append(termOpts, headlessterm.WithPTYWriter(o.responses))
	}
	return &Terminal{term: headlessterm.New(termOpts...)}
}

// Resize changes the screen dimensions. Identical or non-positive sizes are
// ignored.
func (t *Terminal) Resize(rows, cols int) {
	if rows <= 0 || cols <= 0 {
		return
	}
	if rows == t.term.Rows() && cols == t.term.Cols() {
		return
	}
	t.term.Resize(rows, cols)
}

// Feed interprets p as program output.
func (t *Terminal) Feed(p []byte) (int, error) {
	return t.term.Write(p)
}

// Write is Feed, so a Terminal can sit behind io.Copy.
func (t *Terminal) Write(p []byte) (int, error) {
	return t.Feed(p)
}

// Dimensions implements markup.Grid.
func (t *Terminal) Dimensions() (rows, cols int) {
	return t.term.Rows(), t.term.Cols()
}

// CellAt implements markup.Grid. Positions the emulator does not hold read
// as blank.
func (t *Terminal) CellAt(row, col int) markup.Cell {
	c := t.term.Cell(row, col)
	if c == nil {
		return markup.BlankCell()
	}
	return translateCell(c)
}

// Snapshot copies the current screen into an in-memory grid.
func (t *Terminal) Snapshot() *markup.Screen {
	rows, cols := t.Dimensions()
	s := markup.NewScreen(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			s.Set(r, c, t.CellAt(r, c))
		}
	}
	return s
}

var _ markup.Grid = (*Terminal)(nil)
