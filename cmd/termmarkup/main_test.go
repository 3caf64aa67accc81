package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/odvcencio/termmarkup/pkg/bridge"
	"github.com/odvcencio/termmarkup/pkg/config"
	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
	"github.com/odvcencio/termmarkup/pkg/markup"
	"github.com/odvcencio/termmarkup/pkg/preview"
	"github.com/odvcencio/termmarkup/pkg/terminal"
)

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"plain", errors.New("boom"), exitFailure},
		{"explicit", withExitCode(errors.New("bad flag"), exitUsage), exitUsage},
		{"explicit zero", withExitCode(errors.New("x"), 0), exitFailure},
		{"config invalid", apperrors.New(apperrors.ErrCodeConfigInvalid, "bad"), exitUsage},
		{"config parse", apperrors.New(apperrors.ErrCodeConfigParse, "bad yaml"), exitUsage},
		{"unknown color", apperrors.New(apperrors.ErrCodeUnknownColor, "color196"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeForError(tt.err))
		})
	}
	assert.Nil(t, withExitCode(nil, exitUsage))
}

func TestRunDispatch(t *testing.T) {
	assert.Equal(t, exitOK, run([]string{"version"}))
	assert.Equal(t, exitOK, run([]string{"--help"}))
	assert.Equal(t, exitUsage, run(nil))
	assert.Equal(t, exitUsage, run([]string{"bogus"}))
	assert.Equal(t, exitUsage, run([]string{"--bogus"}))
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.True(t, strings.HasPrefix(buf.String(), "termmarkup "+version))
	assert.Contains(t, buf.String(), "Go version")
}

func TestEncodeStream(t *testing.T) {
	var out bytes.Buffer
	err := encodeStream(strings.NewReader("AB\x1b[31mC\r\nD\x1b[0mEF"), &out, 2, 3, markup.NewEncoder(nil))
	require.NoError(t, err)
	assert.Equal(t, "B███\n███\nFAB<color=#800000>C\nD</color>EF\n", out.String())
}

func TestEncodeStreamUnknownColor(t *testing.T) {
	var out bytes.Buffer
	err := encodeStream(strings.NewReader("\x1b[38;2;1;2;3mX"), &out, 1, 2, markup.NewEncoder(nil))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnknownColor), "got %v", err)
	assert.Empty(t, out.String())
	assert.Equal(t, exitFailure, exitCodeForError(err))
}

func stubConfig(t *testing.T, cfg *config.Config, err error) {
	t.Helper()
	orig := serveLoadConfigFn
	serveLoadConfigFn = func(string) (*config.Config, error) { return cfg, err }
	t.Cleanup(func() { serveLoadConfigFn = orig })
}

func TestCommandsTreatConfigErrorsAsUsage(t *testing.T) {
	stubConfig(t, nil, apperrors.New(apperrors.ErrCodeConfigParse, "bad yaml"))

	for name, cmd := range map[string]func([]string) error{
		"serve":  runServeCommand,
		"watch":  runWatchCommand,
		"encode": runEncodeCommand,
	} {
		err := cmd(nil)
		assert.Equal(t, exitUsage, exitCodeForError(err), name)
	}
	assert.Equal(t, exitUsage, runCommand(runEncodeCommand, []string{"--rows=many"}))
}

type fakeBridgeServer struct {
	started bool
}

func (f *fakeBridgeServer) Start(ctx context.Context) error {
	f.started = true
	return nil
}

func TestServeAppliesFlags(t *testing.T) {
	stubConfig(t, config.DefaultConfig(), nil)

	var got *config.Config
	fake := &fakeBridgeServer{}
	orig := serveNewServerFn
	serveNewServerFn = func(cfg *config.Config, deps bridge.Deps) (bridgeServer, error) {
		got = cfg
		assert.NotNil(t, deps.Logger)
		assert.NotNil(t, deps.Metrics)
		return fake, nil
	}
	t.Cleanup(func() { serveNewServerFn = orig })

	err := runServeCommand([]string{
		"--bind", "127.0.0.1:9999",
		"--command", "/bin/cat",
		"--mode", "pipe",
		"--allow-origin", "example.com,*.example.org",
		"--", "-u",
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, fake.started)
	assert.Equal(t, "127.0.0.1:9999", got.Bridge.Bind)
	assert.Equal(t, "/bin/cat", got.Process.Command)
	assert.Equal(t, config.ProcessModePipe, got.ProcessMode())
	assert.Equal(t, []string{"-u"}, got.Process.Args)
	assert.Equal(t, []string{"example.com", "*.example.org"}, got.Bridge.AllowedOrigins)
}

func TestServeRejectsInvalidFlags(t *testing.T) {
	stubConfig(t, config.DefaultConfig(), nil)
	err := runServeCommand([]string{"--mode", "serial"})
	assert.Equal(t, exitUsage, exitCodeForError(err))
}

func TestServeSummary(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Screen.Rows, cfg.Screen.Cols = 25, 80
	cfg.Process.Args = []string{"-x"}

	fields := serveSummary(cfg)
	values := map[string]string{}
	for _, f := range fields {
		values[f.Key] = f.Value
	}
	assert.Equal(t, "ws://"+cfg.Bridge.Bind+cfg.Bridge.Path, values["Listening"])
	assert.Equal(t, cfg.Process.Command+" -x", values["Program"])
	assert.Equal(t, "25x80", values["Screen"])
}

type scriptedFrames struct {
	frames []bridge.Frame
	end    error
}

func (s *scriptedFrames) NextFrame() (bridge.Frame, error) {
	if len(s.frames) == 0 {
		return bridge.Frame{}, s.end
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func TestWatcherDrawsEveryFrame(t *testing.T) {
	var out bytes.Buffer
	w := newWatcher(&out, markup.NewDecoder(nil), preview.New(nil, termenv.Ascii))
	end := errors.New("done")
	src := &scriptedFrames{
		frames: []bridge.Frame{
			{Background: "██\n", Foreground: "ab\n"},
			{Background: "██\n", Foreground: "cd\n"},
		},
		end: end,
	}

	err := w.receive(src)
	assert.ErrorIs(t, err, end)
	assert.Equal(t, 2, w.frames)
	assert.Contains(t, out.String(), "ab")
	assert.Contains(t, out.String(), "cd")

	out.Reset()
	require.NoError(t, w.redraw())
	assert.Contains(t, out.String(), "cd")
	assert.NotContains(t, out.String(), "ab")
}

func TestWatcherRejectsUnknownHex(t *testing.T) {
	w := newWatcher(io.Discard, markup.NewDecoder(nil), preview.New(nil, termenv.Ascii))
	err := w.draw(bridge.Frame{Background: "█\n", Foreground: "<color=#123456>x\n"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnknownColor))
	require.NoError(t, w.redraw())
}

func TestWatcherAgainstWebsocket(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := r.Context()
		_ = conn.Write(ctx, websocket.MessageText, []byte("B<color=#000080>██\n"))
		_ = conn.Write(ctx, websocket.MessageText, []byte("F<b>hi</b>\n"))
		_ = conn.Close(websocket.StatusNormalClosure, "process exited")
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := bridge.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	var out bytes.Buffer
	w := newWatcher(&out, markup.NewDecoder(nil), preview.New(nil, termenv.Ascii))
	err = w.receive(client)
	assert.Equal(t, 1000, bridge.CloseCode(err))
	assert.Equal(t, 1, w.frames)
	assert.Contains(t, out.String(), "hi")
	assert.Equal(t, markup.Blue, w.last.CellAt(0, 0).Background)
	assert.True(t, w.last.CellAt(0, 1).Bold)
}

type recordingSink struct {
	sent []string
}

func (r *recordingSink) Send(p []byte) error {
	r.sent = append(r.sent, string(p))
	return nil
}

func TestForwardInputStopsAtDetachKey(t *testing.T) {
	sink := &recordingSink{}
	err := forwardInput(strings.NewReader("ls\r\x1dignored"), sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"ls\r"}, sink.sent)
}

func TestForwardInputEOF(t *testing.T) {
	sink := &recordingSink{}
	require.NoError(t, forwardInput(strings.NewReader("\x1b[A"), sink))
	assert.Equal(t, []string{"\x1b[A"}, sink.sent)
}

func TestStringListValue(t *testing.T) {
	var target []string
	v := &stringListValue{target: &target}
	require.NoError(t, v.Set("a, b,,c"))
	require.NoError(t, v.Set("d"))
	assert.Equal(t, []string{"a", "b", "c", "d"}, target)
	assert.Equal(t, "a,b,c,d", v.String())

	assert.Error(t, (&stringListValue{}).Set("x"))
}

func TestDefaultBridgeURL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bridge.Bind = "localhost:9000"
	cfg.Bridge.Path = "/df"
	assert.Equal(t, "ws://localhost:9000/df", defaultBridgeURL(cfg))
}

func TestPrintServeWarnings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bridge.Bind = "0.0.0.0:8037"
	cfg.Bridge.AllowedOrigins = nil

	var buf bytes.Buffer
	printServeWarnings(terminal.NewPlain(&buf), cfg)
	assert.Contains(t, buf.String(), "warning: bridge.bind is not loopback")
	assert.Contains(t, buf.String(), "TERMMARKUP_*")

	buf.Reset()
	printServeWarnings(terminal.NewPlain(&buf), config.DefaultConfig())
	assert.Empty(t, buf.String())
}

func TestRedrawOnResizeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal)
	redraws := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		redrawOnResize(ctx, sig, func() error {
			redraws <- struct{}{}
			return nil
		})
		close(done)
	}()

	sig <- os.Interrupt
	select {
	case <-redraws:
	case <-time.After(time.Second):
		t.Fatal("resize signal did not trigger a redraw")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("redraw loop outlived its context")
	}
}
