package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// KeyFunc выбирает ключ лимита из запроса. Пустой ключ не лимитируется.
type KeyFunc func(r *http.Request) string

// RejectFunc пишет ответ, когда лимит исчерпан.
type RejectFunc func(w http.ResponseWriter, r *http.Request)

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterStore держит лимитеры по ключам. Запись, простоявшая дольше idle,
// равна новой (ведро успело наполниться), поэтому её можно выбросить.
type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	every     time.Duration
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(every time.Duration, burst int) *limiterStore {
	return &limiterStore{
		limiters: map[string]*limiterEntry{},
		every:    every,
		burst:    burst,
		idle:     every * time.Duration(burst),
		now:      time.Now,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		s.sweep(now)
	}

	e, ok := s.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rate.Every(s.every), s.burst)}
		s.limiters[key] = e
	}
	e.seen = now
	return e.lim
}

func (s *limiterStore) sweep(now time.Time) {
	for k, e := range s.limiters {
		if now.Sub(e.seen) >= s.idle {
			delete(s.limiters, k)
		}
	}
	s.lastSweep = now
}

// RateLimit ограничивает число запросов на ключ: perMinute в минуту с запасом burst.
// perMinute <= 0 выключает ограничение.
func RateLimit(perMinute, burst int, key KeyFunc, reject RejectFunc, log zerolog.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}

	store := newLimiterStore(time.Minute/time.Duration(perMinute), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k != "" && !store.get(k).Allow() {
				log.Warn().Str("key", k).Msg("rate limit exceeded")
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
