package bridge

import (
	"context"
	"testing"
	"time"
)

func TestStartWSPingNilConn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Must return without touching the nil connection.
	startWSPing(ctx, nil, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
}

func TestWSPingTimeoutIsReasonable(t *testing.T) {
	if wsPingTimeout < time.Second {
		t.Errorf("wsPingTimeout too short: %v", wsPingTimeout)
	}
}
