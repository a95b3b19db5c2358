package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
)

// RateLimit is a fixed-window limiter keyed by client IP. A nil client or a
// Redis error lets the request through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, keyPrefix string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rdb == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := keyPrefix + ":ip:" + clientIP(r)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					log.Warn("rate limiter could not set window expiry", zap.String("key", key), zap.Error(err))
				}
			}

			ttl, err := rdb.TTL(ctx, key).Result()
			if err == nil && ttl == -1 {
				// counter without expiry (a lost EXPIRE): restart its window
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					log.Warn("rate limiter could not repair window expiry", zap.String("key", key), zap.Error(err))
				}
			}
			if ttl < 0 {
				ttl = window
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				common.RespondWithDomainError(w, common.ErrTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP expects chi's RealIP middleware to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
