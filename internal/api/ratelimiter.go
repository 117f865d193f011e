package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultRateLimitRPS   = 25
	defaultRateLimitBurst = 50
)

// rateLimiter admits requests. When it refuses one it reports how long
// until a token is available.
type rateLimiter interface {
	Admit() (bool, time.Duration)
}

type tokenBucket struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &tokenBucket{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Admit takes a token if one is free. Otherwise the reservation is handed
// back and its delay returned.
func (b *tokenBucket) Admit() (bool, time.Duration) {
	if b == nil || b.limiter == nil {
		return true, 0
	}
	res := b.limiter.Reserve()
	if !res.OK() {
		return false, time.Second
	}
	delay := res.Delay()
	if delay == 0 {
		return true, 0
	}
	res.Cancel()
	return false, delay
}

// retryAfterSeconds rounds delay up to whole seconds, never below one.
func retryAfterSeconds(delay time.Duration) int {
	seconds := int(math.Ceil(delay.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

func rateLimitMiddleware(limiter rateLimiter, logger *zap.Logger, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, delay := limiter.Admit()
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := retryAfterSeconds(delay)
		logger.Warn("request rate limited",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("retry_after_seconds", retryAfter),
		)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeError(w, http.StatusTooManyRequests, "Too many requests",
			"rate limit exceeded, retry after "+strconv.Itoa(retryAfter)+"s")
	})
}
