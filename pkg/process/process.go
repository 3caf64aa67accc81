// Package process runs the wrapped console program on a pseudo terminal or
// on plain pipes and exposes its output and input as byte streams.
package process

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
)

// Mode selects how the program's standard streams are connected.
type Mode string

const (
	ModePTY  Mode = "pty"
	ModePipe Mode = "pipe"
)

// ParseMode accepts "pty" or "pipe", case-insensitively. Empty means pty.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModePTY):
		return ModePTY, nil
	case string(ModePipe):
		return ModePipe, nil
	default:
		return "", apperrors.Newf(apperrors.ErrCodeInvalidInput, "unknown process mode %q", s)
	}
}

// Spec describes a program to start.
type Spec struct {
	Command string
	Args    []string
	Dir     string
	// Env is appended to the bridge's own environment.
	Env  []string
	Mode Mode
	// Rows and Cols size the pseudo terminal. Ignored for pipes.
	Rows, Cols int
	// Shell runs Command through /bin/sh -c.
	Shell bool
}

// Process is a running program.
type Process struct {
	cmd  *exec.Cmd
	mode Mode

	// ptmx is set in pty mode; stdout and stdin in pipe mode.
	ptmx   *os.File
	stdout *os.File
	stdin  *os.File

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
}

// Start launches the program described by spec. The program is killed when
// ctx is cancelled.
func Start(ctx context.Context, spec Spec) (*Process, error) {
	if strings.TrimSpace(spec.Command) == "" {
		return nil, apperrors.New(apperrors.ErrCodeProcessStart, "command is required")
	}
	if spec.Mode == "" {
		spec.Mode = ModePTY
	}

	cmd := buildCommand(ctx, spec)
	p := &Process{cmd: cmd, mode: spec.Mode, done: make(chan struct{})}

	var err error
	switch spec.Mode {
	case ModePTY:
		err = p.startPTY(spec)
	case ModePipe:
		err = p.startPipes()
	default:
		err = apperrors.Newf(apperrors.ErrCodeInvalidInput, "unknown process mode %q", spec.Mode)
	}
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeInvalidInput {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProcessStart, "starting program").
			WithContext("command", spec.Command).
			WithContext("mode", string(spec.Mode))
	}

	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func buildCommand(ctx context.Context, spec Spec) *exec.Cmd {
	var cmd *exec.Cmd
	if spec.Shell {
		script := spec.Command
		if len(spec.Args) > 0 {
			quoted := make([]string, len(spec.Args))
			for i, arg := range spec.Args {
				quoted[i] = shellQuote(arg)
			}
			script += " " + strings.Join(quoted, " ")
		}
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", script)
	} else {
		cmd = exec.CommandContext(ctx, spec.Command, spec.Args...)
	}
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	if spec.Mode == ModePTY && !hasEnv(cmd.Env, "TERM") {
		cmd.Env = append(cmd.Env, "TERM=xterm")
	}
	return cmd
}

func (p *Process) startPTY(spec Spec) error {
	rows, okRows := intToUint16(spec.Rows)
	cols, okCols := intToUint16(spec.Cols)
	var (
		ptmx *os.File
		err  error
	)
	if okRows && okCols {
		ptmx, err = pty.StartWithSize(p.cmd, &pty.Winsize{Rows: rows, Cols: cols})
	} else {
		ptmx, err = pty.Start(p.cmd)
	}
	if err != nil {
		return err
	}
	p.ptmx = ptmx
	return nil
}

// startPipes wires stdin and stdout through os.Pipe rather than
// cmd.StdoutPipe so the background Wait cannot close the read side before
// the last output has been consumed. Stderr is inherited.
func (p *Process) startPipes() error {
	outR, outW, err := os.Pipe()
	if err != nil {
		return err
	}
	inR, inW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return err
	}

	p.cmd.Stdout = outW
	p.cmd.Stdin = inR
	p.cmd.Stderr = os.Stderr
	if err := p.cmd.Start(); err != nil {
		for _, f := range []*os.File{outR, outW, inR, inW} {
			f.Close()
		}
		return err
	}
	outW.Close()
	inR.Close()

	p.stdout = outR
	p.stdin = inW
	return nil
}

// Mode reports how the program was started.
func (p *Process) Mode() Mode {
	return p.mode
}

// Pid returns the operating system process ID.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Read reads program output. It returns io.EOF once the program has exited
// and all output has been drained.
func (p *Process) Read(b []byte) (int, error) {
	r := p.stdout
	if p.ptmx != nil {
		r = p.ptmx
	}
	n, err := r.Read(b)
	// Linux reports EIO on the master once the child's side is closed.
	if err != nil && (errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)) {
		err = io.EOF
	}
	return n, err
}

// Write sends b to the program's input.
func (p *Process) Write(b []byte) (int, error) {
	w := p.stdin
	if p.ptmx != nil {
		w = p.ptmx
	}
	return w.Write(b)
}

// Resize changes the pseudo terminal size. Pipes have no size, so it is a
// no-op in pipe mode.
func (p *Process) Resize(rows, cols int) error {
	if p.ptmx == nil {
		return nil
	}
	r, okRows := intToUint16(rows)
	c, okCols := intToUint16(cols)
	if !okRows || !okCols {
		return apperrors.Newf(apperrors.ErrCodeInvalidInput, "invalid size %dx%d", rows, cols)
	}
	return pty.Setsize(p.ptmx, &pty.Winsize{Rows: r, Cols: c})
}

// Done is closed when the program exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the program exits and returns its exit error.
func (p *Process) Wait() error {
	<-p.done
	return p.waitErr
}

// Close kills the program if it is still running, reaps it and releases its
// file descriptors. It is safe to call more than once.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		select {
		case <-p.done:
		default:
			if p.cmd.Process != nil {
				_ = p.cmd.Process.Kill()
			}
		}
		<-p.done
		for _, f := range []*os.File{p.ptmx, p.stdout, p.stdin} {
			if f != nil {
				_ = f.Close()
			}
		}
	})
	return nil
}

// ExitCode extracts the exit status from a Wait error: 0 for nil, -1 when
// the program did not exit normally.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ProcessState != nil {
		return exitErr.ProcessState.ExitCode()
	}
	return -1
}

func intToUint16(value int) (uint16, bool) {
	if value <= 0 || value > math.MaxUint16 {
		return 0, false
	}
	return uint16(value), true
}

func hasEnv(env []string, key string) bool {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}
	return false
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>(){}[]*?!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
