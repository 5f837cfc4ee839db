package ocpp

import (
	"context"
	"fmt"
	"time"

	"github.com/seu-repo/sigec-ve/internal/ports"
)

// meterValueRateLimit caps MeterValues samples per charge point per window.
// A CP sending its periodic samples every few seconds stays well under this;
// a misbehaving one flooding the socket gets its excess dropped rather than
// let through to Postgres.
const (
	meterValueRateLimit  = 120
	meterValueRateWindow = time.Minute
)

// meterValueLimiter is a resettable counter per charge point, backed by the
// same cache adapter that fronts the IdTag lookup (redis with an in-memory
// fallback). Get+Set is not atomic, so under concurrent bursts the counter
// can under-count by a handful of requests; that's acceptable for a
// backpressure valve, not a billing meter.
type meterValueLimiter struct {
	cache ports.Cache
}

func newMeterValueLimiter(cache ports.Cache) *meterValueLimiter {
	return &meterValueLimiter{cache: cache}
}

// Allow reports whether cpID is still under its MeterValues budget for the
// current window, incrementing the counter as a side effect. On any cache
// error it fails open: a cache outage must never block meter data ingestion.
func (l *meterValueLimiter) Allow(ctx context.Context, cpID string) bool {
	if l.cache == nil {
		return true
	}
	key := fmt.Sprintf("meter-rate:%s", cpID)

	// The stored value is "count:windowEndUnixNano", so an increment keeps the
	// expiry of the window it belongs to instead of pushing it back.
	now := time.Now()
	count, windowEnd := 0, now.Add(meterValueRateWindow)
	if raw, err := l.cache.Get(ctx, key); err == nil {
		var c int
		var end int64
		if _, err := fmt.Sscanf(raw, "%d:%d", &c, &end); err == nil && now.UnixNano() < end {
			count, windowEnd = c, time.Unix(0, end)
		}
	}
	if count >= meterValueRateLimit {
		return false
	}

	_ = l.cache.Set(ctx, key, fmt.Sprintf("%d:%d", count+1, windowEnd.UnixNano()), windowEnd.Sub(now))
	return true
}
