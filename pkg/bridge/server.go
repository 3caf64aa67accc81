// Package bridge serves one wrapped console program to one websocket client,
// streaming its screen as markup frames and forwarding the client's messages
// to the program as keyboard input.
package bridge

import (
	"context"
	"encoding/json"
	stdliberrors "errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"nhooyr.io/websocket"

	"github.com/odvcencio/termmarkup/pkg/config"
	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
	"github.com/odvcencio/termmarkup/pkg/logging"
	"github.com/odvcencio/termmarkup/pkg/markup"
	"github.com/odvcencio/termmarkup/pkg/telemetry"
	"github.com/odvcencio/termmarkup/pkg/terminal"
)

const busyMessage = "a renderer is already connected; only one session may be active at a time\n"

// Deps are the collaborators a Server needs. Zero fields get defaults:
// ProcessLauncher for Launch, HeadlessScreen for NewScreen, a stdout probe
// for Sizer, the configured encoder, a discarding logger, no metrics and a
// no-op tracer.
type Deps struct {
	Launch    Launcher
	NewScreen ScreenFactory
	Sizer     terminal.Sizer
	Encoder   *markup.Encoder
	Logger    *logging.Logger
	Metrics   *telemetry.Metrics
	Tracer    trace.Tracer
}

// Server accepts websocket connections and runs one session at a time.
type Server struct {
	cfg        *config.Config
	deps       Deps
	slot       *connLimiter
	httpServer *http.Server
}

// NewServer validates cfg and fills in default dependencies.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Encoder == nil {
		enc, err := cfg.Encoder()
		if err != nil {
			return nil, err
		}
		deps.Encoder = enc
	}
	if deps.Launch == nil {
		deps.Launch = ProcessLauncher(cfg)
	}
	if deps.NewScreen == nil {
		deps.NewScreen = HeadlessScreen
	}
	if deps.Sizer == nil {
		if rows, cols, ok := cfg.FixedSize(); ok {
			deps.Sizer = terminal.Fixed{Rows: rows, Cols: cols}
		} else {
			deps.Sizer = terminal.NewProbe(cfg.Screen.FallbackRows, cfg.Screen.FallbackCols)
		}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.NoopTracer()
	}
	return &Server{
		cfg:  cfg,
		deps: deps,
		slot: newConnLimiter(1),
	}, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Get("/healthz", s.handleHealthz)
	if s.cfg.Telemetry.Metrics && s.deps.Metrics != nil {
		router.Handle("/metrics", s.deps.Metrics.Handler())
	}
	router.Get(s.cfg.Bridge.Path, s.handleSession)
	return router
}

// Active reports whether a session holds the connection slot.
func (s *Server) Active() bool {
	return s.slot.Active() > 0
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Bridge.Bind)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "listen failed").
			WithContext("bind", s.cfg.Bridge.Bind)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		s.deps.Logger.ServerStarted(ln.Addr().String(), s.cfg.Bridge.Path)
		if err := s.httpServer.Serve(ln); err != nil && !stdliberrors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "serve failed")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"status": "ok",
		"active": s.Active(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	log := s.deps.Logger
	if !s.slot.Acquire() {
		s.deps.Metrics.ConnectionRejected()
		log.ConnectionRejected(r.RemoteAddr, string(apperrors.ErrCodeSessionBusy))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(busyMessage))
		return
	}
	defer s.slot.Release()

	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		s.deps.Metrics.ConnectionRejected()
		log.ConnectionRejected(r.RemoteAddr, err.Error())
		return
	}
	conn.SetReadLimit(s.cfg.Bridge.MaxMessageBytes)

	ctx := r.Context()
	id := uuid.NewString()
	log = log.WithSession(id)

	rows, cols := s.deps.Sizer.Size()
	program, err := s.deps.Launch(ctx, rows, cols)
	if err != nil {
		log.SessionFailed("process_start", err)
		_ = conn.Close(websocket.StatusInternalError, "failed to start program")
		return
	}
	input := &lockedWriter{w: program}

	sess := &session{
		id:           id,
		conn:         conn,
		program:      program,
		input:        input,
		screen:       s.deps.NewScreen(rows, cols, input),
		encoder:      s.deps.Encoder,
		sizer:        s.deps.Sizer,
		log:          log,
		metrics:      s.deps.Metrics,
		tracer:       s.deps.Tracer,
		initialFrame: s.cfg.Bridge.SendInitialFrame,
		pingInterval: s.cfg.Bridge.PingInterval,
	}

	s.deps.Metrics.SessionStarted()
	log.SessionStarted(r.RemoteAddr, s.cfg.Process.Command, program.Pid())
	reason, _ := sess.run(ctx)
	s.deps.Metrics.SessionEnded(reason)
}

// acceptOptions checks origins against bridge.allowed_origins. An empty list
// accepts any origin.
func (s *Server) acceptOptions() *websocket.AcceptOptions {
	var patterns []string
	for _, origin := range s.cfg.Bridge.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			patterns = append(patterns, origin)
		}
	}
	if len(patterns) == 0 {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
