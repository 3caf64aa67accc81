package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Writer prints styled status lines. Styling is dropped automatically when
// out is not a color terminal.
type Writer struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	mu       sync.Mutex

	errorStyle   lipgloss.Style
	warnStyle    lipgloss.Style
	successStyle lipgloss.Style
	infoStyle    lipgloss.Style
	dimStyle     lipgloss.Style
	keyStyle     lipgloss.Style
}

// New creates a Writer on stderr, which keeps stdout free for layer output.
func New() *Writer {
	return NewWithOutput(os.Stderr)
}

// NewWithOutput creates a Writer with a custom output destination.
func NewWithOutput(out io.Writer) *Writer {
	r := lipgloss.NewRenderer(out)
	return newWriter(out, r)
}

// NewPlain creates a Writer that never emits escape sequences.
func NewPlain(out io.Writer) *Writer {
	r := lipgloss.NewRenderer(out)
	r.SetColorProfile(termenv.Ascii)
	return newWriter(out, r)
}

func newWriter(out io.Writer, r *lipgloss.Renderer) *Writer {
	return &Writer{
		out:      out,
		renderer: r,

		errorStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).
			Bold(true),
		warnStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"}),
		successStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}),
		infoStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}),
		dimStyle: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
		keyStyle: r.NewStyle().Bold(true),
	}
}

// Println writes text with a newline.
func (w *Writer) Println(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Error prints an error message in red.
func (w *Writer) Error(format string, args ...any) {
	w.line(w.errorStyle, "error: ", format, args...)
}

// Warn prints a warning message in yellow.
func (w *Writer) Warn(format string, args ...any) {
	w.line(w.warnStyle, "warning: ", format, args...)
}

// Success prints a success message in green.
func (w *Writer) Success(format string, args ...any) {
	w.line(w.successStyle, "✓ ", format, args...)
}

// Info prints an info message in blue.
func (w *Writer) Info(format string, args ...any) {
	w.line(w.infoStyle, "", format, args...)
}

// Dim prints dimmed/secondary text.
func (w *Writer) Dim(format string, args ...any) {
	w.line(w.dimStyle, "", format, args...)
}

func (w *Writer) line(style lipgloss.Style, prefix, format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(w.out, style.Render(prefix+msg))
}

// Field is one key/value row of a Box.
type Field struct {
	Key   string
	Value string
}

// Box renders a titled block of aligned key/value rows.
func (w *Writer) Box(title string, fields []Field) {
	w.mu.Lock()
	defer w.mu.Unlock()

	keyWidth := 0
	for _, f := range fields {
		keyWidth = max(keyWidth, len(f.Key))
	}

	var sb strings.Builder
	sb.WriteString(w.keyStyle.Render(title))
	for _, f := range fields {
		sb.WriteString("\n")
		sb.WriteString(w.dimStyle.Render(fmt.Sprintf("%-*s", keyWidth, f.Key)))
		sb.WriteString("  ")
		sb.WriteString(f.Value)
	}

	boxStyle := w.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}).
		Padding(0, 1)
	fmt.Fprintln(w.out, boxStyle.Render(sb.String()))
}

// Divider prints a horizontal rule sized to the terminal on fd.
func (w *Writer) Divider(fd int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	width := min(terminalWidth(fd), 80)
	fmt.Fprintln(w.out, w.dimStyle.Render(strings.Repeat("─", width)))
}
