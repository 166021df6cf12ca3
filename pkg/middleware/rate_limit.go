package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/iota-uz/kanban/pkg/httpapi"
)

const rateLimitPrefix = "kanban:ratelimit"

type RateLimitConfig struct {
	RequestsPerPeriod int
	Period            time.Duration
	Store             limiter.Store
	// KeyFunc defaults to the client IP.
	KeyFunc func(r *http.Request) string
	// Skip exempts matching requests, e.g. health checks and metric scrapes.
	Skip func(r *http.Request) bool
}

func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: time.Minute,
	})
}

func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit redis url: %w", err)
	}
	return limiterredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{
		Prefix: rateLimitPrefix,
	})
}

// RateLimit answers 429 KANBAN_RATE_LIMITED once a key exceeds RequestsPerPeriod.
// A non-positive limit disables the middleware.
func RateLimit(cfg RateLimitConfig) mux.MiddlewareFunc {
	if cfg.RequestsPerPeriod <= 0 || cfg.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	rate := limiter.Rate{Period: cfg.Period, Limit: int64(cfg.RequestsPerPeriod)}
	instance := limiter.New(cfg.Store, rate)

	options := []limiterstdlib.Option{
		limiterstdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			_ = httpapi.WriteRequestError(w, httpapi.RequestID(r, ""), http.StatusTooManyRequests, "KANBAN_RATE_LIMITED", "too many requests")
		}),
		limiterstdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			_ = httpapi.WriteRequestError(w, httpapi.RequestID(r, ""), http.StatusInternalServerError, "KANBAN_INTERNAL", "internal server error")
		}),
	}
	if cfg.KeyFunc != nil {
		options = append(options, limiterstdlib.WithKeyGetter(cfg.KeyFunc))
	}
	m := limiterstdlib.NewMiddleware(instance, options...)
	if cfg.Skip == nil {
		return m.Handler
	}
	return func(next http.Handler) http.Handler {
		limited := m.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
