package middleware

import (
	"net/http"

	"leaveportal/internal/transport/http/web"
)

func RequirePermission(permission string, rn *web.Renderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				web.Redirect(w, r, "/login")
				return
			}
			if !user.Role.Can(permission) {
				rn.Forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
