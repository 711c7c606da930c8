package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"studio/internal/i18n"
)

// RateLimit guards the generation endpoints with a per-client token bucket
// holding limit tokens that refill evenly over per. Exhausted clients get a
// localized 429 with Retry-After.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	l := newLimiter(limit, per, time.Now)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wait, ok := l.take(ClientIP(r))
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "rate_limited",
					"message": i18n.T(LocaleFromContext(r.Context()), "error.rate_limited"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type tokenBucket struct {
	tokens float64
	last   time.Time
}

type limiter struct {
	mu        sync.Mutex
	capacity  float64
	rate      float64 // tokens per second
	now       func() time.Time
	buckets   map[string]*tokenBucket
	lastSweep time.Time
	idle      time.Duration
}

func newLimiter(limit int, per time.Duration, now func() time.Time) *limiter {
	if limit < 1 {
		limit = 1
	}
	if per <= 0 {
		per = time.Minute
	}
	return &limiter{
		capacity: float64(limit),
		rate:     float64(limit) / per.Seconds(),
		now:      now,
		buckets:  make(map[string]*tokenBucket),
		idle:     per,
	}
}

// take spends one token for key, or reports how long until one is available.
func (l *limiter) take(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.capacity, last: now}
		l.buckets[key] = b
	}
	b.tokens = math.Min(l.capacity, b.tokens+now.Sub(b.last).Seconds()*l.rate)
	b.last = now
	if b.tokens < 1 {
		return time.Duration((1 - b.tokens) / l.rate * float64(time.Second)), false
	}
	b.tokens--
	return 0, true
}

// sweep drops buckets that have been idle long enough to be full again.
func (l *limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.last) >= l.idle {
			delete(l.buckets, key)
		}
	}
}
