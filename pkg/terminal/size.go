// Package terminal reads the host terminal's size and prints styled status
// lines for the command line tools.
package terminal

import (
	"os"

	"golang.org/x/term"
)

// Sizer reports the screen size the bridge should emulate.
type Sizer interface {
	Size() (rows, cols int)
}

// Probe reads the size of the terminal attached to Fd, falling back to a
// fixed size when Fd is not a terminal.
type Probe struct {
	Fd           int
	FallbackRows int
	FallbackCols int
}

// NewProbe probes stdout.
func NewProbe(fallbackRows, fallbackCols int) *Probe {
	return &Probe{
		Fd:           int(os.Stdout.Fd()),
		FallbackRows: fallbackRows,
		FallbackCols: fallbackCols,
	}
}

// Size implements Sizer.
func (p *Probe) Size() (rows, cols int) {
	cols, rows, err := term.GetSize(p.Fd)
	if err != nil || rows <= 0 || cols <= 0 {
		return p.FallbackRows, p.FallbackCols
	}
	return rows, cols
}

// IsTerminal reports whether Fd is a terminal.
func (p *Probe) IsTerminal() bool {
	return term.IsTerminal(p.Fd)
}

// Fixed is a Sizer that never changes.
type Fixed struct {
	Rows, Cols int
}

// Size implements Sizer.
func (f Fixed) Size() (rows, cols int) {
	return f.Rows, f.Cols
}

// MakeRaw puts fd into raw mode and returns a function restoring the prior
// state. It is a no-op for descriptors that are not terminals.
func MakeRaw(fd int) (restore func(), err error) {
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() { _ = term.Restore(fd, state) }, nil
}

func terminalWidth(fd int) int {
	width, _, err := term.GetSize(fd)
	if err != nil || width == 0 {
		return 80
	}
	return width
}
