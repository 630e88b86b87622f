package web

import (
	"context"

	"leaveportal/internal/domain/auth"
)

type sessionKey struct{}

type requestSession struct {
	session *auth.Session
	store   *CookieStore
}

// WithSession attaches the browser session built for this request.
func WithSession(ctx context.Context, session *auth.Session, store *CookieStore) context.Context {
	return context.WithValue(ctx, sessionKey{}, requestSession{session: session, store: store})
}

// Session returns the request's session, or nil outside the Session middleware.
func Session(ctx context.Context) *auth.Session {
	rs, _ := ctx.Value(sessionKey{}).(requestSession)
	return rs.session
}

func SessionStore(ctx context.Context) *CookieStore {
	rs, _ := ctx.Value(sessionKey{}).(requestSession)
	return rs.store
}

// CurrentUser is the signed-in user, if any.
func CurrentUser(ctx context.Context) (auth.User, bool) {
	session := Session(ctx)
	if session == nil {
		return auth.User{}, false
	}
	return session.User()
}
