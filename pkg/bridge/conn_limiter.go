package bridge

import "sync"

// connLimiter caps concurrent websocket sessions. The bridge runs with a
// capacity of one: a single renderer owns the program at a time.
type connLimiter struct {
	max    int
	mu     sync.Mutex
	active int
}

func newConnLimiter(max int) *connLimiter {
	return &connLimiter{max: max}
}

// Acquire claims a slot. False means the bridge is busy and the caller
// answers 409 without upgrading. A nil or unbounded limiter always succeeds.
func (l *connLimiter) Acquire() bool {
	if l == nil || l.max <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active >= l.max {
		return false
	}
	l.active++
	return true
}

// Release frees the slot once the session has ended and the program is
// closed, so the next renderer can connect.
func (l *connLimiter) Release() {
	if l == nil || l.max <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
}

// Active returns the number of held slots.
func (l *connLimiter) Active() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}
