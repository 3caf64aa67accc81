package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/odvcencio/termmarkup/pkg/bridge"
	"github.com/odvcencio/termmarkup/pkg/config"
	"github.com/odvcencio/termmarkup/pkg/logging"
	"github.com/odvcencio/termmarkup/pkg/telemetry"
	"github.com/odvcencio/termmarkup/pkg/terminal"
)

type bridgeServer interface {
	Start(ctx context.Context) error
}

var serveLoadConfigFn = loadConfig
var serveNewServerFn = func(cfg *config.Config, deps bridge.Deps) (bridgeServer, error) {
	return bridge.NewServer(cfg, deps)
}

func runServeCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configFile := fs.String("config", "", "config file (default: layered ~/.termmarkup and ./.termmarkup)")
	bind := fs.String("bind", "", "address to accept the renderer on")
	path := fs.String("path", "", "websocket path")
	command := fs.String("command", "", "program to run")
	mode := fs.String("mode", "", "how to attach to the program: pty or pipe")
	var origins []string
	fs.Var(&stringListValue{target: &origins}, "allow-origin", "allowed Origin host pattern (repeatable, accepts comma-separated list)")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	cfg, err := serveLoadConfigFn(*configFile)
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	applyServeFlags(cfg, *bind, *path, *command, *mode, origins, fs.Args())
	if err := cfg.Validate(); err != nil {
		return withExitCode(err, exitUsage)
	}

	out := terminal.New()
	printServeWarnings(out, cfg)

	logOut, err := logging.OpenOutput(config.LogFilePath(cfg))
	if err != nil {
		return fmt.Errorf("open log output: %w", err)
	}
	defer logOut.Close()
	logger := logging.New(logOut, "bridge", logging.ParseLevel(cfg.Logging.Level))

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Metrics {
		metrics = telemetry.NewMetrics()
	}
	tracer := telemetry.NoopTracer()
	if cfg.Telemetry.Tracing {
		tp, err := telemetry.NewTracerProvider("termmarkup", version, logOut)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
		tracer = tp.Tracer()
	}

	srv, err := serveNewServerFn(cfg, bridge.Deps{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
	})
	if err != nil {
		return withExitCode(err, exitUsage)
	}

	out.Box("termmarkup bridge", serveSummary(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		return err
	}
	out.Success("bridge stopped")
	return nil
}

func applyServeFlags(cfg *config.Config, bind, path, command, mode string, origins, programArgs []string) {
	if v := strings.TrimSpace(bind); v != "" {
		cfg.Bridge.Bind = v
	}
	if v := strings.TrimSpace(path); v != "" {
		cfg.Bridge.Path = v
	}
	if v := strings.TrimSpace(command); v != "" {
		cfg.Process.Command = v
	}
	if v := strings.TrimSpace(mode); v != "" {
		cfg.Process.Mode = v
	}
	if len(origins) > 0 {
		cfg.Bridge.AllowedOrigins = append(cfg.Bridge.AllowedOrigins, origins...)
	}
	if len(programArgs) > 0 {
		cfg.Process.Args = programArgs
	}
}

func printServeWarnings(out *terminal.Writer, cfg *config.Config) {
	warnings := cfg.ValidationWarnings()
	for _, warning := range warnings {
		out.Warn("%s", warning)
	}
	if len(warnings) > 0 {
		out.Dim("adjust .termmarkup/config.yaml or the TERMMARKUP_* variables to silence these")
	}
}

func serveSummary(cfg *config.Config) []terminal.Field {
	screen := "follows this terminal"
	if rows, cols, ok := cfg.FixedSize(); ok {
		screen = fmt.Sprintf("%dx%d", rows, cols)
	}
	program := cfg.Process.Command
	if len(cfg.Process.Args) > 0 {
		program += " " + strings.Join(cfg.Process.Args, " ")
	}
	metrics := "off"
	if cfg.Telemetry.Metrics {
		metrics = "http://" + cfg.Bridge.Bind + "/metrics"
	}
	return []terminal.Field{
		{Key: "Listening", Value: "ws://" + cfg.Bridge.Bind + cfg.Bridge.Path},
		{Key: "Program", Value: program},
		{Key: "Mode", Value: cfg.ProcessMode()},
		{Key: "Screen", Value: screen},
		{Key: "Metrics", Value: metrics},
	}
}
