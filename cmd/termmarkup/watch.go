package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/muesli/termenv"

	"github.com/odvcencio/termmarkup/pkg/bridge"
	"github.com/odvcencio/termmarkup/pkg/config"
	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
	"github.com/odvcencio/termmarkup/pkg/markup"
	"github.com/odvcencio/termmarkup/pkg/preview"
	"github.com/odvcencio/termmarkup/pkg/terminal"
)

// detachKey (Ctrl-]) ends watch without forwarding the byte.
const detachKey = 0x1d

type frameSource interface {
	NextFrame() (bridge.Frame, error)
}

type inputSink interface {
	Send(p []byte) error
}

func runWatchCommand(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	configFile := fs.String("config", "", "config file used for the palette and default address")
	url := fs.String("url", "", "bridge websocket URL (default: from bridge.bind and bridge.path)")
	noInput := fs.Bool("no-input", false, "only draw frames; do not forward keystrokes")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	cfg, err := serveLoadConfigFn(*configFile)
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	palette, err := cfg.Palette()
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	target := strings.TrimSpace(*url)
	if target == "" {
		target = defaultBridgeURL(cfg)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := terminal.New()
	client, err := bridge.Dial(ctx, target, nil)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeSessionBusy) {
			out.Error("another renderer is already connected to %s", target)
		}
		return err
	}
	defer client.Close()

	if !*noInput {
		restore, err := terminal.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer restore()
	}

	w := newWatcher(os.Stdout, markup.NewDecoder(palette), preview.New(palette, termenv.EnvColorProfile()))

	if !*noInput {
		out.Dim("press Ctrl-] to detach")
	}

	resizeCtx, stopResize := context.WithCancel(ctx)
	defer stopResize()
	resize := make(chan os.Signal, 1)
	registerTerminalResize(resize)
	defer unregisterTerminalResize(resize)
	go redrawOnResize(resizeCtx, resize, w.redraw)

	done := make(chan error, 2)
	go func() { done <- w.receive(client) }()
	if !*noInput {
		go func() { done <- forwardInput(os.Stdin, client) }()
	}

	select {
	case <-ctx.Done():
		err = nil
	case err = <-done:
	}

	out.Divider(int(os.Stdout.Fd()))
	switch code := bridge.CloseCode(err); {
	case err == nil:
		out.Info("detached")
		return nil
	case code == 1000:
		out.Info("bridge closed the session: program exited")
		return nil
	case code > 0:
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "bridge ended the session").WithContext("status", code)
	default:
		return err
	}
}

func defaultBridgeURL(cfg *config.Config) string {
	return "ws://" + cfg.Bridge.Bind + cfg.Bridge.Path
}

// watcher draws every completed frame and keeps the last one for redraws.
type watcher struct {
	mu       sync.Mutex
	out      io.Writer
	decoder  *markup.Decoder
	renderer *preview.Renderer
	last     *markup.Screen
	frames   int
}

func newWatcher(out io.Writer, decoder *markup.Decoder, renderer *preview.Renderer) *watcher {
	return &watcher{out: out, decoder: decoder, renderer: renderer}
}

// receive draws frames until src fails.
func (w *watcher) receive(src frameSource) error {
	for {
		f, err := src.NextFrame()
		if err != nil {
			return err
		}
		if err := w.draw(f); err != nil {
			return err
		}
	}
}

func (w *watcher) draw(f bridge.Frame) error {
	s, err := w.decoder.Decode(f.Background, f.Foreground)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = s
	w.frames++
	return w.renderer.Render(w.out, s)
}

func (w *watcher) redraw() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return nil
	}
	return w.renderer.Render(w.out, w.last)
}

// redrawOnResize calls redraw for every resize signal until ctx ends.
func redrawOnResize(ctx context.Context, sig <-chan os.Signal, redraw func() error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			_ = redraw()
		}
	}
}

// forwardInput sends keystrokes read from in until the detach key or EOF.
func forwardInput(in io.Reader, sink inputSink) error {
	buf := make([]byte, 1024)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			idx := bytes.IndexByte(chunk, detachKey)
			if idx >= 0 {
				chunk = chunk[:idx]
			}
			if len(chunk) > 0 {
				if serr := sink.Send(append([]byte(nil), chunk...)); serr != nil {
					return serr
				}
			}
			if idx >= 0 {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
