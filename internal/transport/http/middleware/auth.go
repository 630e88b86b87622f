package middleware

import (
	"context"
	"net/http"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/transport/http/web"
)

// Session builds the browser session from its cookies and resolves the
// current user before the page handler runs.
func Session(cookies *web.Cookies, authn auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := cookies.Store(w, r)
			session := auth.NewSession(store, authn)
			ctx := web.WithSession(r.Context(), session, store)
			ctx = session.Context(ctx)
			session.Bootstrap(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth sends anonymous visitors to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			web.Redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GuestOnly sends signed-in users away from the login and register pages.
func GuestOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			web.Redirect(w, r, "/dashboard")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUser(ctx context.Context) (auth.User, bool) {
	return web.CurrentUser(ctx)
}
