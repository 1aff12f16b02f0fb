package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/gophprogress/internal/server/metrics"
	"github.com/iudanet/gophprogress/pkg/api"
)

// RateLimiter ограничивает частоту запросов по ключу (IP клиента).
// На каждый ключ свой token bucket из golang.org/x/time/rate.
type RateLimiter struct {
	limiters map[string]*visitor
	logger   *slog.Logger
	stopC    chan struct{}
	now      func() time.Time
	limit    rate.Limit
	window   time.Duration
	burst    int
	mu       sync.Mutex
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter разрешает requests запросов за window с ключа.
// Бакет пополняется равномерно, всплеск до requests сразу.
func NewRateLimiter(requests int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*visitor),
		logger:   logger,
		stopC:    make(chan struct{}),
		now:      time.Now,
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		window:   window,
		burst:    requests,
	}

	go rl.cleanup()

	return rl
}

// Allow проверяет, разрешен ли запрос для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	v, ok := rl.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Stop останавливает очистку неактивных ключей
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopC) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stopC:
			return
		}
	}
}

// evictIdle удаляет ключи без запросов дольше двух окон
func (rl *RateLimiter) evictIdle() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.limiters {
		if now.Sub(v.lastSeen) > rl.window*2 {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Middleware отклоняет запросы сверх лимита с 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if rl.Allow(key) {
			next.ServeHTTP(w, r)
			return
		}

		metrics.RateLimitedTotal.Inc()
		rl.logger.WarnContext(r.Context(), "rate limit exceeded",
			slog.String("ip", key),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", retryAfter(rl.limit))
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Error:   http.StatusText(http.StatusTooManyRequests),
			Message: "rate limit exceeded, please try again later",
		})
	})
}

func retryAfter(limit rate.Limit) string {
	if limit <= 0 {
		return "60"
	}
	secs := int(1/float64(limit)) + 1
	return strconv.Itoa(secs)
}

// clientIP извлекает IP клиента. X-Forwarded-For и X-Real-IP учитываются
// для работы за прокси.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
