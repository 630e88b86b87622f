package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"leaveportal/internal/platform/apiclient"
	"leaveportal/internal/requestctx"
)

type State string

const InvalidCodeMessage = "Please enter a valid 6-digit code"

const (
	StateAnonymous            State = "ANONYMOUS"
	StateCredentialsSubmitted State = "CREDENTIALS_SUBMITTED"
	StateTwoFactorPending     State = "TWO_FACTOR_PENDING"
	StateAuthenticated        State = "AUTHENTICATED"
)

var (
	ErrCredentialsRequired   = errors.New("email and password are required")
	ErrInvalidCode           = errors.New("invalid two-factor code")
	ErrNoPendingVerification = errors.New("no two-factor verification is pending")
	ErrAlreadyAuthenticated  = errors.New("already signed in")
	ErrNotAuthenticated      = errors.New("not signed in")
	ErrIncompleteLogin       = errors.New("login response did not include a token and user")
	ErrRoleChanged           = errors.New("role changed, please sign in again")
)

// Session is the identity of one browser. It is built per request from the
// Store and driven through the login protocol:
//
//	ANONYMOUS -> CREDENTIALS_SUBMITTED -> AUTHENTICATED
//	                                   -> TWO_FACTOR_PENDING -> AUTHENTICATED
//
// A token is only written to the Store on entering AUTHENTICATED.
type Session struct {
	store        Store
	auth         Authenticator
	state        State
	user         *User
	pendingEmail string
	loading      bool
}

func NewSession(store Store, authn Authenticator) *Session {
	return &Session{store: store, auth: authn, state: StateAnonymous, loading: true}
}

func (s *Session) State() State         { return s.state }
func (s *Session) Loading() bool        { return s.loading }
func (s *Session) PendingEmail() string { return s.pendingEmail }

func (s *Session) IsAuthenticated() bool {
	return s.state == StateAuthenticated && s.user != nil
}

func (s *Session) User() (User, bool) {
	if !s.IsAuthenticated() {
		return User{}, false
	}
	return *s.user, true
}

// Context returns ctx carrying this session's token store for API calls.
func (s *Session) Context(ctx context.Context) context.Context {
	return requestctx.WithTokenStore(ctx, s.store)
}

// Bootstrap resolves the current user from a persisted token. Failures clear
// the token and leave the session anonymous; Loading is false afterwards.
func (s *Session) Bootstrap(ctx context.Context) {
	defer func() { s.loading = false }()

	if email := s.store.PendingEmail(); email != "" {
		s.state = StateTwoFactorPending
		s.pendingEmail = email
	}

	if s.store.Token() == "" {
		return
	}

	user, err := s.auth.CurrentUser(s.Context(ctx))
	if err != nil {
		slog.Debug("session bootstrap failed", "err", err, "requestId", requestctx.GetRequestID(ctx))
		s.store.ClearToken()
		return
	}
	s.authenticated(user)
}

// Login submits credentials. On return the state is AUTHENTICATED,
// TWO_FACTOR_PENDING (email retained, nothing persisted) or ANONYMOUS with
// the error.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if s.IsAuthenticated() {
		return ErrAlreadyAuthenticated
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrCredentialsRequired
	}

	s.state = StateCredentialsSubmitted
	s.pendingEmail = ""
	s.store.ClearPendingEmail()

	result, err := s.auth.Login(s.Context(ctx), email, password)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.RequiresTwoFactor {
			s.enterPending(email)
			return nil
		}
		s.state = StateAnonymous
		return err
	}

	if result.RequiresTwoFactor {
		s.enterPending(email)
		return nil
	}
	if result.AccessToken == "" || result.User == nil {
		s.state = StateAnonymous
		return ErrIncompleteLogin
	}
	s.store.SetToken(result.AccessToken)
	s.authenticated(*result.User)
	return nil
}

// VerifyTwoFactor completes a pending login. A malformed code is refused
// before any request; a rejected code keeps the pending state and email.
func (s *Session) VerifyTwoFactor(ctx context.Context, code string) error {
	if s.state != StateTwoFactorPending || s.pendingEmail == "" {
		return ErrNoPendingVerification
	}
	normalized, ok := NormalizeCode(code)
	if !ok {
		return ErrInvalidCode
	}

	// A stale token must not ride along on the verification call.
	s.store.ClearToken()

	result, err := s.auth.VerifyTwoFactor(s.Context(ctx), s.pendingEmail, normalized)
	if err != nil {
		return err
	}
	if result.AccessToken == "" || result.User == nil {
		return ErrIncompleteLogin
	}
	s.store.SetToken(result.AccessToken)
	s.authenticated(*result.User)
	return nil
}

// CancelTwoFactor abandons a pending login and forgets the email.
func (s *Session) CancelTwoFactor() {
	s.store.ClearPendingEmail()
	s.pendingEmail = ""
	if s.state == StateTwoFactorPending || s.state == StateCredentialsSubmitted {
		s.state = StateAnonymous
	}
}

func (s *Session) Logout() {
	s.store.ClearToken()
	s.store.ClearPendingEmail()
	s.user = nil
	s.pendingEmail = ""
	s.state = StateAnonymous
}

// Refresh re-reads the current user, for example after a 2FA change. A role
// change ends the session.
func (s *Session) Refresh(ctx context.Context) error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	user, err := s.auth.CurrentUser(s.Context(ctx))
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			s.Logout()
		}
		return err
	}
	if user.Role != s.user.Role {
		s.Logout()
		return ErrRoleChanged
	}
	s.user = &user
	return nil
}

func (s *Session) enterPending(email string) {
	s.state = StateTwoFactorPending
	s.pendingEmail = email
	s.store.SetPendingEmail(email)
}

func (s *Session) authenticated(user User) {
	s.user = &user
	s.state = StateAuthenticated
	s.pendingEmail = ""
	s.store.ClearPendingEmail()
}
