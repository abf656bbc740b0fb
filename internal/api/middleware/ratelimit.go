package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcoot/comicguess/internal/api/apierr"
	"github.com/mcoot/comicguess/internal/dependencies/clock"
)

// idleLimiterTTL is how long an unused limiter is kept
const idleLimiterTTL = 10 * time.Minute

type playerLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// RateLimiter is a token bucket per authenticated player
type RateLimiter struct {
	clock clock.Clock
	limit rate.Limit
	burst int

	// retryAfter is the refill interval in whole seconds
	retryAfter string

	mu       sync.Mutex
	limiters map[string]*playerLimiter
}

// NewRateLimiter allows perMinute requests per player, with bursts of up to half that
func NewRateLimiter(perMinute int, clk clock.Clock) *RateLimiter {
	perMinute = max(perMinute, 1)
	interval := time.Minute / time.Duration(perMinute)
	return &RateLimiter{
		clock:      clk,
		limit:      rate.Every(interval),
		burst:      max(perMinute/2, 1),
		retryAfter: strconv.Itoa(int(math.Ceil(interval.Seconds()))),
		limiters:   make(map[string]*playerLimiter),
	}
}

// Allow reports whether key may make another request now
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupLocked(now)

	pl, ok := rl.limiters[key]
	if !ok {
		pl = &playerLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = pl
	}
	pl.expires = now.Add(idleLimiterTTL)
	return pl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	for key, pl := range rl.limiters {
		if now.After(pl.expires) {
			delete(rl.limiters, key)
		}
	}
}

// RateLimit limits requests per authenticated player. It must run after Auth.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if player := GetPlayer(r.Context()); player != nil {
				key = string(player.ID)
			}

			if !rl.Allow(key) {
				w.Header().Set("Retry-After", rl.retryAfter)
				apierr.WriteError(w, apierr.NewRateLimitedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
