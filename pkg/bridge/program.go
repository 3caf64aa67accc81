package bridge

import (
	"context"
	"io"
	"sync"

	"github.com/odvcencio/termmarkup/pkg/config"
	"github.com/odvcencio/termmarkup/pkg/markup"
	"github.com/odvcencio/termmarkup/pkg/process"
	"github.com/odvcencio/termmarkup/pkg/screen"
)

// Program is the wrapped console program as a session sees it.
type Program interface {
	io.ReadWriter
	Resize(rows, cols int) error
	Pid() int
	// Close stops the program. It must unblock a pending Read.
	Close() error
}

// Launcher starts a program sized rows x cols.
type Launcher func(ctx context.Context, rows, cols int) (Program, error)

// ProcessLauncher starts the program described by cfg.Process.
func ProcessLauncher(cfg *config.Config) Launcher {
	return func(ctx context.Context, rows, cols int) (Program, error) {
		mode, err := process.ParseMode(cfg.ProcessMode())
		if err != nil {
			return nil, err
		}
		return process.Start(ctx, process.Spec{
			Command: cfg.Process.Command,
			Args:    cfg.Process.Args,
			Dir:     config.ResolveWorkDir(cfg),
			Env:     cfg.Process.Env,
			Mode:    mode,
			Rows:    rows,
			Cols:    cols,
			Shell:   cfg.Process.Shell,
		})
	}
}

// Screen is the live virtual terminal a session feeds and encodes.
type Screen interface {
	markup.Grid
	Resize(rows, cols int)
	Feed(p []byte) (int, error)
}

// ScreenFactory builds a rows x cols screen whose terminal replies go to
// responses.
type ScreenFactory func(rows, cols int, responses io.Writer) Screen

// HeadlessScreen is the default ScreenFactory.
func HeadlessScreen(rows, cols int, responses io.Writer) Screen {
	return screen.New(rows, cols, screen.WithResponseWriter(responses))
}

// lockedWriter serialises writes from the input pump and from terminal
// replies generated while the output pump feeds the screen.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
