package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"leaveportal/internal/transport/http/web"
)

const RateLimitedMessage = "Too many attempts. Please wait a moment and try again."

type RateLimitKeyFunc func(r *http.Request) string

type rateLimiter struct {
	limiter *limiter.Limiter
	keyFn   RateLimitKeyFunc
}

func newRateLimiter(rate limiter.Rate, prefix string, keyFn RateLimitKeyFunc) *rateLimiter {
	if keyFn == nil {
		keyFn = clientIPKey
	}
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
	return &rateLimiter{limiter: limiter.New(store, rate), keyFn: keyFn}
}

// AuthRateLimit throttles credential and code submissions by client IP and
// by the email being signed in. Only POSTs count.
func AuthRateLimit(rate limiter.Rate, rn *web.Renderer) func(http.Handler) http.Handler {
	authByIP := newRateLimiter(rate, "auth-ip", clientIPKey)
	authByEmail := newRateLimiter(rate, "auth-email", AuthEmailOrIPKey("email"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			if !authByIP.enforce(w, r, rn) {
				return
			}
			if !authByEmail.enforce(w, r, rn) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthEmailOrIPKey keys on the submitted form field, then on the email of a
// pending two-factor login, then on the client IP.
func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	normalizedField := strings.TrimSpace(field)
	if normalizedField == "" {
		normalizedField = "email"
	}
	return func(r *http.Request) string {
		email := strings.TrimSpace(r.PostFormValue(normalizedField))
		if email == "" {
			if session := web.Session(r.Context()); session != nil {
				email = session.PendingEmail()
			}
		}
		if email == "" {
			return clientIPKey(r)
		}
		return "email:" + strings.ToLower(email)
	}
}

func clientIPKey(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		if len(parts) > 0 {
			value := strings.TrimSpace(parts[0])
			if value != "" {
				return value
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request, rn *web.Renderer) bool {
	key := rl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}

	state, err := rl.limiter.Get(r.Context(), key)
	if err != nil {
		slog.Warn("rate limiter unavailable", "err", err, "requestId", GetRequestID(r.Context()))
		return true
	}

	resetIn := durationSeconds(time.Until(time.Unix(state.Reset, 0)))
	w.Header().Set("X-RateLimit-Limit", itoa(int(state.Limit)))
	w.Header().Set("X-RateLimit-Remaining", itoa(int(state.Remaining)))
	w.Header().Set("X-RateLimit-Reset", itoa(resetIn))

	if state.Reached {
		w.Header().Set("Retry-After", itoa(max(resetIn, 1)))
		slog.Warn("rate limit exceeded",
			"key", key,
			"path", r.URL.Path,
			"method", r.Method,
			"limit", state.Limit,
			"requestId", GetRequestID(r.Context()),
		)
		rn.Error(w, r, http.StatusTooManyRequests, RateLimitedMessage)
		return false
	}
	return true
}

func durationSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	seconds := int(d.Seconds())
	if seconds <= 0 {
		return 1
	}
	return seconds
}

func itoa(value int) string {
	return strconv.Itoa(value)
}
