package middleware

import (
	"net"
	"net/http"
	"time"

	"NexiaCore/pkg/logger"
	"NexiaCore/pkg/ratelimit"
)

// RateLimit ограничивает частоту запросов по IP клиента
type RateLimit struct {
	limiter ratelimit.RateLimiter
	limit   int
	window  time.Duration
	logger  logger.Logger
}

// NewRateLimit создает новый middleware ограничения частоты запросов
func NewRateLimit(limiter ratelimit.RateLimiter, limit int, window time.Duration, log logger.Logger) *RateLimit {
	return &RateLimit{
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  log,
	}
}

// Limit middleware проверки лимита запросов.
// При недоступности Redis запрос пропускается: деградация лимитера
// не должна блокировать аутентификацию.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exceeded, err := rl.limiter.CheckRateLimit(r.Context(), clientIP(r), rl.limit, rl.window)
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", logger.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if exceeded {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"type":"https://nexia.dev/problems/rate-limit","title":"Too Many Requests","status":429}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP определяет IP клиента с учетом прокси
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
