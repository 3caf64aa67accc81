package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/odvcencio/termmarkup/pkg/config"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printHelp(os.Stderr)
		return exitUsage
	}
	switch args[0] {
	case "--version", "-v", "version":
		printVersion(os.Stdout)
		return exitOK
	case "--help", "-h", "help":
		printHelp(os.Stdout)
		return exitOK
	case "serve":
		return runCommand(runServeCommand, args[1:])
	case "watch":
		return runCommand(runWatchCommand, args[1:])
	case "encode":
		return runCommand(runEncodeCommand, args[1:])
	default:
		if strings.HasPrefix(args[0], "-") {
			fmt.Fprintf(os.Stderr, "Error: unknown flag: %s\n", args[0])
		} else {
			fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n", args[0])
		}
		fmt.Fprintln(os.Stderr, "Run 'termmarkup --help' for usage.")
		return exitUsage
	}
}

func runCommand(handler func([]string) error, args []string) int {
	if err := handler(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForError(err)
	}
	return exitOK
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "termmarkup %s\n", version)
	if commit != "unknown" {
		fmt.Fprintf(w, "  Commit:     %s\n", commit)
	}
	if buildDate != "unknown" {
		fmt.Fprintf(w, "  Built:      %s\n", buildDate)
	}
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `termmarkup - stream a console program's screen as two-layer color markup

Usage:
  termmarkup serve  [--config path] [--bind addr] [--path /] [--command cmd] [--mode pty|pipe] [-- args...]
  termmarkup watch  [--config path] [--url ws://host:port/] [--no-input]
  termmarkup encode [--config path] [--rows N] [--cols M] < captured-output
  termmarkup version

Commands:
  serve    Run the bridge: one websocket client drives one program
  watch    Connect to a bridge and draw its frames in this terminal
  encode   Feed stdin through a virtual screen once and print both layers

Configuration is read from ~/.termmarkup/config.yaml, then
./.termmarkup/config.yaml, then TERMMARKUP_* environment variables.
`)
}

// loadConfig reads path when given, otherwise the layered defaults.
func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

type stringListValue struct {
	target *[]string
}

func (s *stringListValue) String() string {
	if s == nil || s.target == nil {
		return ""
	}
	return strings.Join(*s.target, ",")
}

func (s *stringListValue) Set(value string) error {
	if s.target == nil {
		return fmt.Errorf("no target slice configured")
	}
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			*s.target = append(*s.target, trimmed)
		}
	}
	return nil
}
