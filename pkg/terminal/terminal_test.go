package terminal

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestProbeFallsBackWhenNotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "not-a-tty")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	p := &Probe{Fd: int(f.Fd()), FallbackRows: 25, FallbackCols: 80}
	if p.IsTerminal() {
		t.Fatal("a regular file should not be a terminal")
	}
	if rows, cols := p.Size(); rows != 25 || cols != 80 {
		t.Errorf("Size() = %dx%d, want 25x80", rows, cols)
	}
}

func TestFixedSize(t *testing.T) {
	var s Sizer = Fixed{Rows: 40, Cols: 120}
	if rows, cols := s.Size(); rows != 40 || cols != 120 {
		t.Errorf("Size() = %dx%d", rows, cols)
	}
}

func TestMakeRawNoopOnFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "raw")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	restore, err := MakeRaw(int(f.Fd()))
	if err != nil {
		t.Fatalf("MakeRaw: %v", err)
	}
	restore()
}

func TestWriterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.Println("listening on %s", "localhost:8037")
	w.Error("something went wrong")
	w.Warn("be careful")
	w.Success("connected")
	w.Info("frames: %d", 3)
	w.Dim("quiet")

	want := strings.Join([]string{
		"listening on localhost:8037",
		"error: something went wrong",
		"warning: be careful",
		"✓ connected",
		"frames: 3",
		"quiet",
	}, "\n") + "\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestWriterBox(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlain(&buf)

	w.Box("termmarkup", []Field{
		{Key: "listen", Value: "ws://localhost:8037/"},
		{Key: "command", Value: "./df_linux/df"},
	})

	got := buf.String()
	for _, want := range []string{"termmarkup", "listen ", "ws://localhost:8037/", "command", "╭", "╯"} {
		if !strings.Contains(got, want) {
			t.Errorf("box output missing %q:\n%s", want, got)
		}
	}
}

func TestWriterDivider(t *testing.T) {
	var buf bytes.Buffer
	NewPlain(&buf).Divider(-1)
	if got := strings.TrimSpace(buf.String()); got != strings.Repeat("─", 80) {
		t.Errorf("divider = %q", got)
	}
}
