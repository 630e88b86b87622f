package web

import (
	"errors"
	"log/slog"
	"net/http"

	"leaveportal/internal/platform/apiclient"
	"leaveportal/internal/platform/validation"
	"leaveportal/internal/requestctx"
)

const (
	SessionExpiredMessage = "Your session has expired. Please log in again."
	ForbiddenMessage      = "You do not have permission to access this page."
	NotFoundMessage       = "The page you are looking for does not exist."
)

// Notice is an error whose text is shown to the user as is.
type Notice string

func (n Notice) Error() string { return string(n) }

// ErrorData is rendered by the error template.
type ErrorData struct {
	Status  int
	Message string
}

// Fail presents err after a form submission by re-rendering the named page:
// validation problems become field messages and API errors become a toast
// carrying the server's message verbatim. An expired session redirects to
// the login page instead.
func (rn *Renderer) Fail(w http.ResponseWriter, r *http.Request, err error, name string, page Page) {
	if errors.Is(err, apiclient.ErrUnauthorized) && r.URL.Path != "/login" {
		SessionExpired(w, r)
		return
	}
	if page.Form == nil {
		page.Form = FormValues(r)
	}

	status := http.StatusUnprocessableEntity
	var notice Notice
	if verr, ok := validation.AsError(err); ok {
		page.Errors = verr.Fields()
	} else if errors.As(err, &notice) {
		page.Flash = &Flash{Kind: FlashError, Message: string(notice)}
	} else {
		status = errorStatus(r, err)
		page.Flash = &Flash{Kind: FlashError, Message: apiclient.Message(err)}
	}
	rn.Render(w, r, status, name, page)
}

// PageError presents err while loading a page.
func (rn *Renderer) PageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		SessionExpired(w, r)
		return
	}
	status := errorStatus(r, err)
	message := apiclient.Message(err)
	if status == http.StatusNotFound {
		message = NotFoundMessage
	}
	rn.Error(w, r, status, message)
}

func (rn *Renderer) Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	rn.Render(w, r, status, "error", Page{
		Title: http.StatusText(status),
		Data:  ErrorData{Status: status, Message: message},
	})
}

func (rn *Renderer) Forbidden(w http.ResponseWriter, r *http.Request) {
	rn.Error(w, r, http.StatusForbidden, ForbiddenMessage)
}

func (rn *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rn.Error(w, r, http.StatusNotFound, NotFoundMessage)
}

// SessionExpired ends the browser session and sends the user to log in.
func SessionExpired(w http.ResponseWriter, r *http.Request) {
	if session := Session(r.Context()); session != nil {
		session.Logout()
	}
	SetFlash(w, FlashError, SessionExpiredMessage)
	Redirect(w, r, "/login")
}

func errorStatus(r *http.Request, err error) int {
	var apiErr *apiclient.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	case errors.Is(err, apiclient.ErrUnavailable):
		slog.Warn("leave service unavailable", "err", err, "path", r.URL.Path, "requestId", requestctx.GetRequestID(r.Context()))
		return http.StatusServiceUnavailable
	default:
		slog.Error("request failed", "err", err, "path", r.URL.Path, "requestId", requestctx.GetRequestID(r.Context()))
		return http.StatusInternalServerError
	}
}
