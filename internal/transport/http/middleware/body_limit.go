package middleware

import (
	"net/http"
	"strings"

	"leaveportal/internal/transport/http/web"
)

const TooLargeMessage = "The submitted form is too large."

// BodyLimit caps form posts at maxBytes. Plain forms declaring a larger body
// are refused up front. Uploads are only cut off by the reader so the form
// can report *http.MaxBytesError against its document field.
func BodyLimit(maxBytes int64, rn *web.Renderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes <= 0 || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes && !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
				rn.Error(w, r, http.StatusRequestEntityTooLarge, TooLargeMessage)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
