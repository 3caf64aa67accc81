package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/odvcencio/termmarkup/pkg/bridge"
	"github.com/odvcencio/termmarkup/pkg/markup"
	"github.com/odvcencio/termmarkup/pkg/screen"
)

func runEncodeCommand(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	configFile := fs.String("config", "", "config file used for the palette and markup options")
	rows := fs.Int("rows", 0, "screen rows (default: screen.rows or screen.fallback_rows)")
	cols := fs.Int("cols", 0, "screen columns (default: screen.cols or screen.fallback_cols)")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	cfg, err := serveLoadConfigFn(*configFile)
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	enc, err := cfg.Encoder()
	if err != nil {
		return withExitCode(err, exitUsage)
	}

	r, c, ok := cfg.FixedSize()
	if !ok {
		r, c = cfg.Screen.FallbackRows, cfg.Screen.FallbackCols
	}
	if *rows > 0 {
		r = *rows
	}
	if *cols > 0 {
		c = *cols
	}
	return encodeStream(os.Stdin, os.Stdout, r, c, enc)
}

// encodeStream feeds all of in through a rows x cols virtual screen and
// writes the resulting frame as its two wire messages, background first.
func encodeStream(in io.Reader, out io.Writer, rows, cols int, enc *markup.Encoder) error {
	term := screen.New(rows, cols)
	if _, err := io.Copy(term, in); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	bg, fg, err := enc.Encode(term)
	if err != nil {
		return err
	}
	for _, msg := range (bridge.Frame{Background: bg, Foreground: fg}).Messages() {
		if _, err := out.Write(msg); err != nil {
			return err
		}
	}
	return nil
}
