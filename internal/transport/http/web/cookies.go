package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/platform/config"
	"leaveportal/internal/platform/crypto"
)

const (
	pendingCookieName    = "pending_2fa"
	enrollmentCookieName = "enroll_2fa"
	enrollmentTTL        = 15 * time.Minute
)

type CookieOptions struct {
	TokenName  string
	TokenTTL   time.Duration
	PendingTTL time.Duration
	Secure     bool
}

// Cookies seals and signs the per-browser session cookies.
type Cookies struct {
	opts       CookieOptions
	tokens     *crypto.Service
	enrollment *crypto.Service
	pendingKey []byte
	now        func() time.Time
}

func NewCookies(cfg config.Config) (*Cookies, error) {
	tokens, err := crypto.New(cfg.SessionSecret, "token-cookie")
	if err != nil {
		return nil, err
	}
	enrollment, err := crypto.New(cfg.SessionSecret, "enrollment-cookie")
	if err != nil {
		return nil, err
	}
	pendingKey, err := crypto.DeriveKey(cfg.SessionSecret, "pending-2fa")
	if err != nil {
		return nil, err
	}
	return &Cookies{
		opts: CookieOptions{
			TokenName:  cfg.TokenCookieName,
			TokenTTL:   cfg.TokenTTL,
			PendingTTL: cfg.Pending2FATTL,
			Secure:     cfg.IsProduction(),
		},
		tokens:     tokens,
		enrollment: enrollment,
		pendingKey: pendingKey,
		now:        time.Now,
	}, nil
}

// Store reads the request's cookies once and returns a store that writes
// changes back as Set-Cookie headers on w.
func (c *Cookies) Store(w http.ResponseWriter, r *http.Request) *CookieStore {
	s := &CookieStore{cookies: c, w: w}
	if ck, err := r.Cookie(c.opts.TokenName); err == nil {
		token, err := c.tokens.OpenString(ck.Value)
		if err != nil {
			slog.Debug("discarding unreadable token cookie", "err", err)
			s.ClearToken()
		} else {
			s.token = token
		}
	}
	if ck, err := r.Cookie(pendingCookieName); err == nil {
		s.pendingSent = true
		if email, err := c.parsePending(ck.Value); err == nil {
			s.pending = email
		} else {
			s.ClearPendingEmail()
		}
	}
	if ck, err := r.Cookie(enrollmentCookieName); err == nil {
		if secret, ok := c.openEnrollment(ck.Value); ok {
			s.enrollment = &secret
		} else {
			s.ClearIssuedEnrollment()
		}
	}
	return s
}

type pendingClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Cookies) signPending(email string) (string, error) {
	now := c.now()
	claims := pendingClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "pending-2fa",
			ExpiresAt: jwt.NewNumericDate(now.Add(c.opts.PendingTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.pendingKey)
}

func (c *Cookies) parsePending(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &pendingClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.pendingKey, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*pendingClaims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Email) == "" {
		return "", errors.New("invalid pending verification")
	}
	return claims.Email, nil
}

func (c *Cookies) openEnrollment(raw string) (auth.EnrollmentSecret, bool) {
	plain, err := c.enrollment.OpenString(raw)
	if err != nil || plain == "" {
		return auth.EnrollmentSecret{}, false
	}
	var secret auth.EnrollmentSecret
	if err := json.Unmarshal([]byte(plain), &secret); err != nil || secret.Secret == "" {
		return auth.EnrollmentSecret{}, false
	}
	return secret, true
}

// CookieStore is the auth.Store and auth.EnrollmentStore of one request.
// CookieStore is safe for concurrent use so a page can fan out API calls.
// pendingSent is true while the browser may still hold a pending_2fa cookie.
type CookieStore struct {
	mu          sync.Mutex
	cookies     *Cookies
	w           http.ResponseWriter
	token       string
	pending     string
	pendingSent bool
	enrollment  *auth.EnrollmentSecret
}

func (s *CookieStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *CookieStore) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sealed, err := s.cookies.tokens.SealString(token)
	if err != nil {
		slog.Error("seal token cookie", "err", err)
		return
	}
	s.token = token
	s.set(s.cookies.opts.TokenName, sealed, s.cookies.opts.TokenTTL)
}

func (s *CookieStore) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.clear(s.cookies.opts.TokenName)
}

func (s *CookieStore) PendingEmail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *CookieStore) SetPendingEmail(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	signed, err := s.cookies.signPending(email)
	if err != nil {
		slog.Error("sign pending verification cookie", "err", err)
		return
	}
	s.pending = email
	s.pendingSent = true
	s.set(pendingCookieName, signed, s.cookies.opts.PendingTTL)
}

func (s *CookieStore) ClearPendingEmail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pendingSent {
		return
	}
	s.pending = ""
	s.pendingSent = false
	s.clear(pendingCookieName)
}

func (s *CookieStore) IssuedEnrollment() (auth.EnrollmentSecret, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enrollment == nil {
		return auth.EnrollmentSecret{}, false
	}
	return *s.enrollment, true
}

func (s *CookieStore) SetIssuedEnrollment(secret auth.EnrollmentSecret) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secret.QRImage = ""
	raw, err := json.Marshal(secret)
	if err != nil {
		return
	}
	sealed, err := s.cookies.enrollment.SealString(string(raw))
	if err != nil {
		slog.Error("seal enrollment cookie", "err", err)
		return
	}
	s.enrollment = &secret
	s.set(enrollmentCookieName, sealed, enrollmentTTL)
}

func (s *CookieStore) ClearIssuedEnrollment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollment = nil
	s.clear(enrollmentCookieName)
}

func (s *CookieStore) set(name, value string, ttl time.Duration) {
	setCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  s.cookies.now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.cookies.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *CookieStore) clear(name string) {
	setCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookies.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// setCookie replaces any Set-Cookie already queued for the same name, so a
// value changed twice in one request is sent once.
func setCookie(w http.ResponseWriter, cookie *http.Cookie) {
	header := w.Header()
	prefix := cookie.Name + "="
	kept := header.Values("Set-Cookie")[:0:0]
	for _, line := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}
	header.Del("Set-Cookie")
	for _, line := range kept {
		header.Add("Set-Cookie", line)
	}
	if v := cookie.String(); v != "" {
		header.Add("Set-Cookie", v)
	}
}
