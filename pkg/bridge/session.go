package bridge

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
	"github.com/odvcencio/termmarkup/pkg/logging"
	"github.com/odvcencio/termmarkup/pkg/markup"
	"github.com/odvcencio/termmarkup/pkg/telemetry"
	"github.com/odvcencio/termmarkup/pkg/terminal"
)

const readChunkSize = 4096

// Session end reasons, used as log fields and metric labels.
const (
	ReasonProcessExit  = "process_exit"
	ReasonEncodeError  = "encode_error"
	ReasonClientClosed = "client_closed"
	ReasonTransport    = "transport_error"
	ReasonShutdown     = "shutdown"
)

var errClientClosed = errors.New("client closed the connection")

// session couples one websocket connection to one running program.
type session struct {
	id      string
	conn    *websocket.Conn
	program Program
	input   io.Writer
	screen  Screen
	encoder *markup.Encoder
	sizer   terminal.Sizer
	log     *logging.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer

	initialFrame bool
	pingInterval time.Duration

	rows, cols int
	frames     atomic.Int64
}

// run pumps program output to the socket as frames and socket messages to
// the program until either side ends. It closes both before returning.
func (s *session) run(ctx context.Context) (reason string, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "bridge.session", trace.WithAttributes(
		telemetry.AttrSessionID.String(s.id),
		telemetry.AttrPID.Int(s.program.Pid()),
	))
	defer span.End()
	log := s.log.WithContext(ctx)

	s.rows, s.cols = s.screen.Dimensions()
	startWSPing(ctx, s.conn, s.pingInterval)

	if s.initialFrame {
		if err := s.sendFrame(ctx); err != nil {
			reason, status, text := classifyEnd(err)
			s.shutdown(status, text)
			return s.finish(span, log, started, reason, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.pumpOutput(ctx) })
	g.Go(func() error { return s.pumpInput(ctx) })
	g.Go(func() error {
		<-gctx.Done()
		_, status, text := classifyEnd(context.Cause(gctx))
		s.shutdown(status, text)
		return nil
	})
	err = g.Wait()

	reason, _, _ = classifyEnd(err)
	return s.finish(span, log, started, reason, err)
}

func (s *session) finish(span trace.Span, log *logging.Logger, started time.Time, reason string, err error) (string, error) {
	span.SetAttributes(telemetry.AttrEndReason.String(reason))
	if isFailure(reason) {
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		log.SessionFailed(reason, err)
	}
	log.SessionEnded(reason, s.frames.Load(), time.Since(started))
	if isFailure(reason) {
		return reason, err
	}
	return reason, nil
}

func isFailure(reason string) bool {
	return reason == ReasonEncodeError || reason == ReasonTransport
}

// shutdown stops the program, which unblocks the output pump, then closes the
// socket, which unblocks the input pump.
func (s *session) shutdown(status websocket.StatusCode, text string) {
	_ = s.program.Close()
	_ = s.conn.Close(status, text)
}

func (s *session) pumpOutput(ctx context.Context) error {
	buf := make([]byte, readChunkSize)
	for {
		n, err := s.program.Read(buf)
		if n > 0 {
			s.metrics.OutputRead(n)
			if ferr := s.frame(ctx, buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return apperrors.New(apperrors.ErrCodeProcessExit, "program exited")
			}
			return apperrors.Wrap(err, apperrors.ErrCodeProcessExit, "reading program output")
		}
	}
}

// frame feeds one output chunk to the screen and sends the resulting frame.
func (s *session) frame(ctx context.Context, chunk []byte) error {
	ctx, span := s.tracer.Start(ctx, "bridge.frame", trace.WithAttributes(
		telemetry.AttrChunkBytes.Int(len(chunk)),
	))
	defer span.End()

	s.syncSize()
	if _, err := s.screen.Feed(chunk); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "feeding screen")
	}
	if err := s.sendFrame(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "frame failed")
		return err
	}
	return nil
}

// syncSize follows the host size. The program learns of a change too when it
// runs on a pseudo-terminal.
func (s *session) syncSize() {
	rows, cols := s.sizer.Size()
	if rows <= 0 || cols <= 0 || (rows == s.rows && cols == s.cols) {
		return
	}
	s.screen.Resize(rows, cols)
	if err := s.program.Resize(rows, cols); err != nil {
		s.log.Warn("program resize failed", "rows", rows, "cols", cols, "error", err)
	}
	s.rows, s.cols = rows, cols
}

func (s *session) sendFrame(ctx context.Context) error {
	start := time.Now()
	bg, fg, err := s.encoder.Encode(s.screen)
	elapsed := time.Since(start)
	s.metrics.ObserveEncode(elapsed, err)
	if err != nil {
		return err
	}

	rows, cols := s.screen.Dimensions()
	trace.SpanFromContext(ctx).SetAttributes(
		telemetry.AttrRows.Int(rows),
		telemetry.AttrCols.Int(cols),
		telemetry.AttrBGBytes.Int(len(bg)),
		telemetry.AttrFGBytes.Int(len(fg)),
	)
	s.log.FrameEncoded(rows, cols, len(bg), len(fg), elapsed)

	for _, msg := range (Frame{Background: bg, Foreground: fg}).Messages() {
		if err := s.conn.Write(ctx, websocket.MessageText, msg); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeTransport, "writing frame")
		}
	}
	s.frames.Add(1)
	s.metrics.FrameSent(len(bg), len(fg))
	return nil
}

// pumpInput forwards every message payload to the program verbatim.
func (s *session) pumpInput(ctx context.Context) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				return errClientClosed
			}
			return apperrors.Wrap(err, apperrors.ErrCodeTransport, "reading input")
		}
		if len(data) == 0 {
			continue
		}
		if _, err := s.input.Write(data); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeProcessExit, "writing program input")
		}
		s.metrics.InputForwarded(len(data))
		s.log.InputForwarded(len(data))
	}
}

// classifyEnd maps the error that ended a session to its reason and the
// close frame sent to the client.
func classifyEnd(err error) (reason string, status websocket.StatusCode, text string) {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonShutdown, websocket.StatusGoingAway, "server shutting down"
	case errors.Is(err, errClientClosed):
		return ReasonClientClosed, websocket.StatusNormalClosure, ""
	}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeProcessExit:
		return ReasonProcessExit, websocket.StatusNormalClosure, "process exited"
	case apperrors.ErrCodeUnknownColor:
		return ReasonEncodeError, websocket.StatusInternalError, "encode failed"
	default:
		return ReasonTransport, websocket.StatusInternalError, "transport error"
	}
}
