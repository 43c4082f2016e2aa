package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/saltoplay/platform/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines a token bucket: RequestsPerWindow refill over Window
// with up to Burst requests admitted at once.
type RateLimitConfig struct {
	RequestsPerWindow int           `env:"REQUESTS"`
	Window            time.Duration `env:"WINDOW"`
	Burst             int           `env:"BURST"`
}

// RateLimits groups the profiles applied across the router. Field tags let
// the app config override each profile from RATELIMIT_<PROFILE>_<FIELD>.
type RateLimits struct {
	// Strict guards credential checks: token exchange and consent approval.
	Strict RateLimitConfig `envPrefix:"STRICT_"`
	// Moderate guards revocation.
	Moderate RateLimitConfig `envPrefix:"MODERATE_"`
	// Lenient guards reads such as the consent page and user-info.
	Lenient RateLimitConfig `envPrefix:"LENIENT_"`
	// Public guards health and docs.
	Public RateLimitConfig `envPrefix:"PUBLIC_"`
}

// DefaultRateLimits are the production profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10},
		Moderate: RateLimitConfig{RequestsPerWindow: 30, Window: time.Minute, Burst: 30},
		Lenient:  RateLimitConfig{RequestsPerWindow: 120, Window: time.Minute, Burst: 120},
		Public:   RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	}
}

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address, user ID, client ID, etc.)
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys requests by client address.
func IPKeyExtractor(r *http.Request) string {
	return RemoteIP(r)
}

// HeaderKeyExtractor keys requests by the value of a request header.
func HeaderKeyExtractor(name string) KeyExtractor {
	return func(r *http.Request) string {
		return strings.TrimSpace(r.Header.Get(name))
	}
}

// FormFieldKeyExtractor keys requests by a query or form parameter such as
// client_id.
func FormFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err == nil {
			return strings.TrimSpace(r.FormValue(fieldName))
		}
		return ""
	}
}

// CompositeKeyExtractor joins the non-empty keys of several extractors.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// limiterSet holds one token bucket per key. Idle buckets are swept at most
// once per sweepEvery so ephemeral keys do not accumulate.
type limiterSet struct {
	limiters sync.Map // string -> *rate.Limiter
	rate     rate.Limit
	burst    int

	mu        sync.Mutex
	lastSweep time.Time
}

const sweepEvery = 5 * time.Minute

func (ls *limiterSet) get(key string) *rate.Limiter {
	if l, ok := ls.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	actual, _ := ls.limiters.LoadOrStore(key, rate.NewLimiter(ls.rate, ls.burst))
	ls.sweep()
	return actual.(*rate.Limiter)
}

// sweep drops buckets that have refilled completely, i.e. keys that have not
// been seen for at least a full window.
func (ls *limiterSet) sweep() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if time.Since(ls.lastSweep) < sweepEvery {
		return
	}
	ls.lastSweep = time.Now()

	ls.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(ls.burst) {
			ls.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware rejects requests with 429 once the bucket for the key
// returned by keyExtractor is empty. Requests without a key pass through.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	ls := &limiterSet{
		rate:      rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:     config.Burst,
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: no key for request, allowing")
				next.ServeHTTP(w, r)
				return
			}

			limiter := ls.get(key)
			if limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			// Peek at when the next token lands without spending it.
			res := limiter.Reserve()
			retryAfter := max(int(res.Delay().Seconds()), 1)
			res.Cancel()

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", config.Window.String())

			log.Warn("rate limit exceeded",
				"key", key,
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limit_exceeded",
				"error_description": "too many requests, retry later",
			})
		})
	}
}

// RateLimitByIP limits by client address only.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByIPAndFormField limits by client address plus a request
// parameter, so one abusive client id cannot starve others behind a NAT.
func RateLimitByIPAndFormField(config RateLimitConfig, fieldName string) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		IPKeyExtractor,
		FormFieldKeyExtractor(fieldName),
	))
}

// RateLimitByIPAndHeader limits by client address plus a request header.
func RateLimitByIPAndHeader(config RateLimitConfig, header string) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":",
		IPKeyExtractor,
		HeaderKeyExtractor(header),
	))
}
