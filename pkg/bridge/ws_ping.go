package bridge

import (
	"context"
	"time"

	"nhooyr.io/websocket"
)

const wsPingTimeout = 5 * time.Second

// startWSPing pings conn every interval until ctx is done. A non-positive
// interval disables pings.
func startWSPing(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	if conn == nil || interval <= 0 {
		return
	}
	timeout := min(wsPingTimeout, interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, timeout)
				_ = conn.Ping(pingCtx)
				cancel()
			}
		}
	}()
}
