// Package ratelimit wraps github.com/ulule/limiter/v3 with an in-memory
// store (spec.md §1 excludes inter-instance coordination, so there is no
// Redis-backed store here — see the teacher's internal/v1/ratelimit for the
// Redis/memory dual-store this is trimmed from) to enforce the per-IP and
// per-app token buckets of spec.md §4.9.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"github.com/riftsignal/signalserver/internal/config"
	"github.com/riftsignal/signalserver/internal/logging"
	"github.com/riftsignal/signalserver/internal/metrics"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// defaultAppRatePerMinute is the bucket used for an appId with no entry in
// appQuotas (shouldn't happen for an authenticated session, since every
// authenticated app comes from security.authorizedApps[], but keeps
// CheckAppGlobal total rather than panicking on a lookup miss).
const defaultAppRatePerMinute = 600

// Limiter holds the per-IP room-creation and join-attempt buckets, plus one
// per-app global bucket per AppId, each sized to that app's own
// RateLimitPerMinute quota.
type Limiter struct {
	ipCreate *limiter.Limiter
	ipJoin   *limiter.Limiter
	appStore limiter.Store

	appMu    sync.Mutex
	appRates map[string]*limiter.Limiter
}

// New builds a Limiter from the configured rates. Rates are expressed as
// "N-S" (N per window, in the format ulule/limiter's NewRateFromFormatted
// expects, window unit derived from RateLimit.TimeWindowSecs). appQuotas
// maps appId to its RateLimitPerMinute quota (security.authorizedApps[]).
func New(cfg config.RateLimitConfig, appQuotas map[string]int) (*Limiter, error) {
	store := memory.NewStore()

	createRate, err := limiter.NewRateFromFormatted(fmt.Sprintf("%d-%ds", cfg.MaxRoomCreations, cfg.TimeWindowSecs))
	if err != nil {
		return nil, fmt.Errorf("ratelimit: invalid room-creation rate: %w", err)
	}
	joinRate, err := limiter.NewRateFromFormatted(fmt.Sprintf("%d-%ds", cfg.MaxJoinAttempts, cfg.TimeWindowSecs))
	if err != nil {
		return nil, fmt.Errorf("ratelimit: invalid join-attempt rate: %w", err)
	}

	appRates := make(map[string]*limiter.Limiter, len(appQuotas))
	for appID, perMinute := range appQuotas {
		rate, err := limiter.NewRateFromFormatted(fmt.Sprintf("%d-1m", perMinute))
		if err != nil {
			return nil, fmt.Errorf("ratelimit: invalid app bucket rate for %q: %w", appID, err)
		}
		appRates[appID] = limiter.New(store, rate)
	}

	return &Limiter{
		ipCreate: limiter.New(memory.NewStore(), createRate),
		ipJoin:   limiter.New(memory.NewStore(), joinRate),
		appStore: store,
		appRates: appRates,
	}, nil
}

// CheckRoomCreate enforces the per-IP room-creation bucket. A store failure
// fails open, matching the teacher's CheckWebSocket fail-open convention —
// availability over strict enforcement for an in-memory, best-effort limiter.
func (l *Limiter) CheckRoomCreate(ctx context.Context, ip string) bool {
	return l.check(ctx, l.ipCreate, ip, "ip_create")
}

// CheckRoomJoin enforces the per-IP join-attempt bucket.
func (l *Limiter) CheckRoomJoin(ctx context.Context, ip string) bool {
	return l.check(ctx, l.ipJoin, ip, "ip_join")
}

// CheckAppGlobal enforces the bucket for appID, sized to that app's own
// RateLimitPerMinute quota from security.authorizedApps[].
func (l *Limiter) CheckAppGlobal(ctx context.Context, appID string) bool {
	return l.check(ctx, l.appLimiter(appID), appID, "app_global")
}

func (l *Limiter) appLimiter(appID string) *limiter.Limiter {
	l.appMu.Lock()
	defer l.appMu.Unlock()

	if lim, ok := l.appRates[appID]; ok {
		return lim
	}
	rate, err := limiter.NewRateFromFormatted(fmt.Sprintf("%d-1m", defaultAppRatePerMinute))
	if err != nil {
		// defaultAppRatePerMinute is a constant; this can only fail if it's
		// ever changed to something NewRateFromFormatted can't parse.
		panic(fmt.Sprintf("ratelimit: invalid default app rate: %v", err))
	}
	lim := limiter.New(l.appStore, rate)
	l.appRates[appID] = lim
	return lim
}

func (l *Limiter) check(ctx context.Context, lim *limiter.Limiter, key, bucket string) bool {
	res, err := lim.Get(ctx, key)
	if err != nil {
		logging.Error(ctx, "rate limiter store failed", zap.String("bucket", bucket), zap.Error(err))
		return true
	}
	if res.Reached {
		metrics.RateLimitRejections.WithLabelValues(bucket).Inc()
		return false
	}
	return true
}
