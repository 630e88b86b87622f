package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"leaveportal/internal/transport/http/web"
)

const DuplicateSubmitMessage = "This form has already been submitted."

var ErrDuplicateSubmission = errors.New("form nonce already used")

const multipartMemory = 8 << 20

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type submission struct {
	done    bool
	expires time.Time
}

// SubmitGuard remembers form nonces that are being processed or were
// processed within ttl, so a double-clicked submit is acted on once.
type SubmitGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]submission
	now     func() time.Time
}

func NewSubmitGuard(ttl time.Duration) *SubmitGuard {
	return &SubmitGuard{ttl: ttl, entries: map[string]submission{}, now: time.Now}
}

// Begin claims key, failing while the same key is in flight or recently done.
func (g *SubmitGuard) Begin(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.sweep(now)
	if _, ok := g.entries[key]; ok {
		return ErrDuplicateSubmission
	}
	g.entries[key] = submission{}
	return nil
}

func (g *SubmitGuard) Finish(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ttl <= 0 {
		delete(g.entries, key)
		return
	}
	g.entries[key] = submission{done: true, expires: g.now().Add(g.ttl)}
}

func (g *SubmitGuard) sweep(now time.Time) {
	for key, entry := range g.entries {
		if entry.done && now.After(entry.expires) {
			delete(g.entries, key)
		}
	}
}

// Middleware rejects a POST whose form nonce is already claimed. Forms
// without a nonce pass through.
func (g *SubmitGuard) Middleware(rn *web.Renderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				_ = r.ParseMultipartForm(multipartMemory)
			} else {
				_ = r.ParseForm()
			}
			nonce := strings.TrimSpace(r.PostFormValue(web.NonceField))
			if nonce == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := RequestHash([]byte(r.URL.Path + "\x00" + nonce))
			if err := g.Begin(key); err != nil {
				slog.Info("duplicate submission rejected", "path", r.URL.Path, "requestId", GetRequestID(r.Context()))
				rn.Error(w, r, http.StatusConflict, DuplicateSubmitMessage)
				return
			}
			defer g.Finish(key)
			next.ServeHTTP(w, r)
		})
	}
}
