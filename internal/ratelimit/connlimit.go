package ratelimit

import (
	"sync"

	"github.com/riftsignal/signalserver/internal/metrics"
)

// ConnectionTracker enforces the per-IP live-connection cap (spec.md §4.9):
// the session manager tracks active sessions per remote IP and refuses new
// attachments that would exceed the configured cap.
type ConnectionTracker struct {
	mu    sync.Mutex
	max   int
	byIP  map[string]int
}

func NewConnectionTracker(maxPerIP int) *ConnectionTracker {
	return &ConnectionTracker{max: maxPerIP, byIP: make(map[string]int)}
}

// TryAcquire reserves one connection slot for ip, returning false if doing
// so would exceed the cap.
func (t *ConnectionTracker) TryAcquire(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.byIP[ip] >= t.max {
		metrics.ConnectionLimitRejections.Inc()
		return false
	}
	t.byIP[ip]++
	return true
}

// Release frees the slot held for ip, called once the session closes.
func (t *ConnectionTracker) Release(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.byIP[ip] <= 1 {
		delete(t.byIP, ip)
		return
	}
	t.byIP[ip]--
}

// Count reports the current connection count for ip, mainly for tests.
func (t *ConnectionTracker) Count(ip string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byIP[ip]
}
