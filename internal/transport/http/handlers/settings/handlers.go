package settingshandler

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/platform/apiclient"
	"leaveportal/internal/platform/validation"
	"leaveportal/internal/transport/http/middleware"
	"leaveportal/internal/transport/http/web"
)

const (
	EnabledMessage       = "Two-factor authentication enabled"
	DisabledMessage      = "Two-factor authentication disabled"
	CodeRejectedMessage  = "That code was not accepted. Please try again."
	ConfirmDisableReason = "Please confirm that you want to turn off two-factor authentication"
	NoEnrollmentMessage  = "Start setting up two-factor authentication first"
)

type Handler struct {
	render  *web.Renderer
	backend auth.TwoFactorBackend
}

func NewHandler(render *web.Renderer, backend auth.TwoFactorBackend) *Handler {
	return &Handler{render: render, backend: backend}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.handleSettings)
	r.Post("/settings/2fa/enable", h.handleEnable)
	r.Post("/settings/2fa/verify", h.handleVerify)
	r.Post("/settings/2fa/cancel", h.handleCancel)
	r.Post("/settings/2fa/disable", h.handleDisable)
}

const qrPrefix = "data:image/png;base64,"

type settingsData struct {
	Enrollment *auth.EnrollmentSecret
	// QRImage is set only for base64 PNG data URIs.
	QRImage template.URL
}

func (h *Handler) enrollment(r *http.Request) *auth.Enrollment {
	return auth.NewEnrollment(web.SessionStore(r.Context()), h.backend)
}

func (h *Handler) page(r *http.Request) web.Page {
	data := settingsData{}
	if secret, ok := h.enrollment(r).Pending(); ok {
		data.Enrollment = &secret
		if strings.HasPrefix(secret.QRImage, qrPrefix) {
			data.QRImage = template.URL(secret.QRImage)
		}
	}
	return web.Page{Title: "Settings", Active: "settings", Data: data}
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "settings", h.page(r))
}

func (h *Handler) handleEnable(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if user.TwoFactorEnabled {
		web.Redirect(w, r, "/settings")
		return
	}
	if _, err := h.enrollment(r).Begin(r.Context(), user.Email); err != nil {
		h.render.Fail(w, r, err, "settings", h.page(r))
		return
	}
	web.Redirect(w, r, "/settings")
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	err := h.enrollment(r).Confirm(r.Context(), r.PostFormValue("code"))
	switch {
	case err == nil:
		h.refreshed(w, r, EnabledMessage)
	case errors.Is(err, auth.ErrNoEnrollment):
		web.SetFlash(w, web.FlashError, NoEnrollmentMessage)
		web.Redirect(w, r, "/settings")
	case errors.Is(err, auth.ErrInvalidCode):
		h.render.Fail(w, r, fieldError("code", auth.InvalidCodeMessage), "settings", h.page(r))
	case errors.Is(err, auth.ErrEnrollmentRejected):
		h.render.Fail(w, r, fieldError("code", CodeRejectedMessage), "settings", h.page(r))
	default:
		h.render.Fail(w, r, err, "settings", h.page(r))
	}
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.enrollment(r).Cancel()
	web.Redirect(w, r, "/settings")
}

func (h *Handler) handleDisable(w http.ResponseWriter, r *http.Request) {
	err := h.enrollment(r).Disable(r.Context(), r.PostFormValue("confirm") == "true")
	switch {
	case err == nil:
		h.refreshed(w, r, DisabledMessage)
	case errors.Is(err, auth.ErrConfirmationRequired):
		h.render.Fail(w, r, fieldError("confirm", ConfirmDisableReason), "settings", h.page(r))
	default:
		h.render.Fail(w, r, err, "settings", h.page(r))
	}
}

// refreshed reloads the signed-in user so the page shows the new 2FA state.
func (h *Handler) refreshed(w http.ResponseWriter, r *http.Request, message string) {
	session := web.Session(r.Context())
	if err := session.Refresh(r.Context()); err != nil {
		switch {
		case errors.Is(err, auth.ErrRoleChanged), errors.Is(err, apiclient.ErrUnauthorized):
			web.SessionExpired(w, r)
		default:
			// The change went through; only the reload failed.
			web.SetFlash(w, web.FlashSuccess, message)
			web.Redirect(w, r, "/settings")
		}
		return
	}
	web.SetFlash(w, web.FlashSuccess, message)
	web.Redirect(w, r, "/settings")
}

func fieldError(field, reason string) error {
	v := validation.New()
	v.Add(field, reason)
	return v.Err()
}
