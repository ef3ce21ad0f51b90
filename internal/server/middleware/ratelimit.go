package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/gradesubmission/internal/server/apierror"
)

// RateLimiter ограничивает число запросов с одного ключа (IP) за окно времени.
// Бакет полностью пополняется по истечении окна.
type RateLimiter struct {
	buckets  map[string]*bucket
	now      func() time.Time
	stopC    chan struct{}
	rate     int
	window   time.Duration
	mu       sync.Mutex
	stopOnce sync.Once
}

// bucket состояние лимита для конкретного ключа
type bucket struct {
	lastRefill time.Time
	tokens     int
}

// NewRateLimiter создает новый rate limiter
// rate - максимальное количество запросов за window
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return newRateLimiter(rate, window, time.Now)
}

func newRateLimiter(rate int, window time.Duration, now func() time.Time) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		now:     now,
		stopC:   make(chan struct{}),
		rate:    rate,
		window:  window,
	}

	// Периодическая очистка неактивных buckets
	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupOldBuckets()
		case <-rl.stopC:
			return
		}
	}
}

// cleanupOldBuckets удаляет buckets, которые не использовались дольше двух окон
func (rl *RateLimiter) cleanupOldBuckets() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) > rl.window*2 {
			delete(rl.buckets, key)
		}
	}
}

// Stop останавливает cleanup goroutine. Повторный вызов безопасен.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopC) })
}

// Allow расходует токен ключа. Если токенов нет, возвращает false
// и время до пополнения бакета.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.lastRefill) >= rl.window {
		b = &bucket{tokens: rl.rate, lastRefill: now}
		rl.buckets[key] = b
	}

	if b.tokens > 0 {
		b.tokens--
		return true, 0
	}

	return false, b.lastRefill.Add(rl.window).Sub(now)
}

// RateLimitOptions настройки middleware RateLimit
type RateLimitOptions struct {
	// Applies выбирает запросы, к которым применяется лимит; nil означает все запросы
	Applies func(r *http.Request) bool
	// TrustProxy разрешает брать IP клиента из X-Forwarded-For / X-Real-IP
	TrustProxy bool
}

// RateLimit создает middleware, отвечающий 429 и Retry-After при превышении лимита
func RateLimit(limiter *RateLimiter, logger *slog.Logger, opts RateLimitOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Applies != nil && !opts.Applies(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := clientIP(r, opts.TrustProxy)
			allowed, retryAfter := limiter.Allow(key)
			if !allowed {
				logger.WarnContext(r.Context(), "Rate limit exceeded",
					slog.String("ip", key),
					slog.String("method", r.Method),
					slog.String("path", sanitizePath(r.URL.Path)))

				seconds := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
				apierror.Write(w, apierror.RateLimited())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoginAttempts выбирает запросы на выдачу токена (POST /authenticate)
func LoginAttempts(r *http.Request) bool {
	return r.Method == http.MethodPost && r.URL.Path == "/authenticate"
}

// clientIP извлекает IP адрес клиента.
// Заголовки прокси учитываются только при trustProxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Первый IP в списке - реальный клиент
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
