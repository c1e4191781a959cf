package ratelimit

import "golang.org/x/time/rate"

// InboundShedder throttles a single session's reader independently of the
// room-level ulule/limiter buckets, protecting against one misbehaving
// client flooding messages faster than the configured per-connection cap.
// Grounded in adred-codev-ws_poc's resource_guard.go broadcastLimiter, which
// uses golang.org/x/time/rate the same way at the single-connection scope.
type InboundShedder struct {
	limiter *rate.Limiter
}

// NewInboundShedder allows up to burst messages instantaneously, refilling
// at perSecond thereafter.
func NewInboundShedder(perSecond float64, burst int) *InboundShedder {
	return &InboundShedder{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow reports whether the next inbound message from this session may be
// processed now; callers drop (not queue) the message on false.
func (s *InboundShedder) Allow() bool {
	return s.limiter.Allow()
}
