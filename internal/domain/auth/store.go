package auth

import "context"

// Store persists the per-browser session: the bearer token and the email
// retained while a two-factor code is pending.
type Store interface {
	Token() string
	SetToken(token string)
	ClearToken()
	PendingEmail() string
	SetPendingEmail(email string)
	ClearPendingEmail()
}

// EnrollmentStore holds an issued but unconfirmed 2FA secret.
type EnrollmentStore interface {
	IssuedEnrollment() (EnrollmentSecret, bool)
	SetIssuedEnrollment(secret EnrollmentSecret)
	ClearIssuedEnrollment()
}

// Authenticator is the backend side of the login protocol.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	VerifyTwoFactor(ctx context.Context, email, code string) (LoginResult, error)
	CurrentUser(ctx context.Context) (User, error)
}

// MemoryStore is a Store and EnrollmentStore kept in memory.
type MemoryStore struct {
	token      string
	pending    string
	enrollment *EnrollmentSecret
}

func (m *MemoryStore) Token() string                { return m.token }
func (m *MemoryStore) SetToken(token string)        { m.token = token }
func (m *MemoryStore) ClearToken()                  { m.token = "" }
func (m *MemoryStore) PendingEmail() string         { return m.pending }
func (m *MemoryStore) SetPendingEmail(email string) { m.pending = email }
func (m *MemoryStore) ClearPendingEmail()           { m.pending = "" }

func (m *MemoryStore) IssuedEnrollment() (EnrollmentSecret, bool) {
	if m.enrollment == nil {
		return EnrollmentSecret{}, false
	}
	return *m.enrollment, true
}

func (m *MemoryStore) SetIssuedEnrollment(secret EnrollmentSecret) { m.enrollment = &secret }
func (m *MemoryStore) ClearIssuedEnrollment()                      { m.enrollment = nil }
