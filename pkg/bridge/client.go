package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
)

// Client is the renderer side of a bridge connection.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	background    string
	hasBackground bool
}

// Dial connects to a bridge at url. A bridge that already serves another
// client answers with ErrCodeSessionBusy.
func Dial(ctx context.Context, url string, header http.Header) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, apperrors.New(apperrors.ErrCodeSessionBusy, "bridge is busy").
				WithContext("reply", strings.TrimSpace(string(body)))
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeTransport, "dial failed").WithContext("url", url)
	}
	return &Client{conn: conn}, nil
}

// NextFrame blocks until a complete frame arrives. A foreground message
// completes the frame opened by the preceding background message; without
// one the background is empty.
func (c *Client) NextFrame() (Frame, error) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		marker, payload, err := splitMessage(msg)
		if err != nil {
			return Frame{}, err
		}
		switch marker {
		case MarkerBackground:
			c.background, c.hasBackground = payload, true
		case MarkerForeground:
			f := Frame{Foreground: payload}
			if c.hasBackground {
				f.Background = c.background
			}
			c.background, c.hasBackground = "", false
			return f, nil
		}
	}
}

// Send forwards p to the program as one text message.
func (c *Client) Send(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "sending input")
	}
	return nil
}

// Close sends a normal close frame and drops the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	werr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()
	cerr := c.conn.Close()
	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		return errors.Join(werr, cerr)
	}
	return cerr
}

// CloseCode returns the websocket close code carried by err, or -1.
func CloseCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return -1
}
