package authhandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaveportal/internal/domain/auth"
	"leaveportal/internal/platform/validation"
	"leaveportal/internal/transport/http/middleware"
	"leaveportal/internal/transport/http/shared"
	"leaveportal/internal/transport/http/web"
)

const (
	RegisteredMessage    = "Registration successful! Please login to continue."
	LoggedOutMessage     = "You have been logged out."
	VerifyExpiredMessage = "Your verification has expired. Please log in again."
)

type Handler struct {
	render  *web.Renderer
	service *auth.Service
}

func NewHandler(render *web.Renderer, service *auth.Service) *Handler {
	return &Handler{render: render, service: service}
}

// RegisterRoutes mounts the public pages; limit throttles credential posts.
func (h *Handler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.GuestOnly)
		r.Get("/login", h.handleLoginPage)
		r.With(limit).Post("/login", h.handleLogin)
		r.With(limit).Post("/login/verify", h.handleVerify)
		r.Post("/login/cancel", h.handleCancel)
		r.Get("/register", h.handleRegisterPage)
		r.With(limit).Post("/register", h.handleRegister)
	})
	r.Post("/logout", h.handleLogout)
}

type loginData struct {
	Pending      bool
	PendingEmail string
}

func loginPage(r *http.Request) web.Page {
	data := loginData{}
	if session := web.Session(r.Context()); session != nil && session.State() == auth.StateTwoFactorPending {
		data.Pending = true
		data.PendingEmail = session.PendingEmail()
	}
	return web.Page{Title: "Sign in", Active: "login", Data: data}
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "login", loginPage(r))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, http.StatusBadRequest, shared.InvalidFormMessage)
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	v := validation.New()
	v.Required("email", email, "Email is required")
	v.Required("password", password, "Password is required")
	if err := v.Err(); err != nil {
		h.render.Fail(w, r, err, "login", loginPage(r))
		return
	}

	session := web.Session(r.Context())
	if err := session.Login(r.Context(), email, password); err != nil {
		h.render.Fail(w, r, err, "login", loginPage(r))
		return
	}
	if session.State() == auth.StateTwoFactorPending {
		web.Redirect(w, r, "/login")
		return
	}
	web.SetFlash(w, web.FlashSuccess, "Welcome back!")
	web.Redirect(w, r, "/dashboard")
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	session := web.Session(r.Context())
	err := session.VerifyTwoFactor(r.Context(), r.PostFormValue("code"))
	switch {
	case err == nil:
		web.SetFlash(w, web.FlashSuccess, "Welcome back!")
		web.Redirect(w, r, "/dashboard")
	case errors.Is(err, auth.ErrNoPendingVerification):
		web.SetFlash(w, web.FlashError, VerifyExpiredMessage)
		web.Redirect(w, r, "/login")
	case errors.Is(err, auth.ErrInvalidCode):
		v := validation.New()
		v.Add("code", auth.InvalidCodeMessage)
		h.render.Fail(w, r, v.Err(), "login", loginPage(r))
	default:
		h.render.Fail(w, r, err, "login", loginPage(r))
	}
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	web.Session(r.Context()).CancelTwoFactor()
	web.Redirect(w, r, "/login")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	web.Session(r.Context()).Logout()
	web.SetFlash(w, web.FlashInfo, LoggedOutMessage)
	web.Redirect(w, r, "/login")
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "register", web.Page{Title: "Create account", Active: "register"})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	page := web.Page{Title: "Create account", Active: "register"}

	var in auth.RegisterInput
	if err := shared.DecodeForm(r, &in); err != nil {
		h.render.Fail(w, r, err, "register", page)
		return
	}
	v := validation.New()
	v.Struct(in)
	if err := v.Err(); err != nil {
		h.render.Fail(w, r, err, "register", page)
		return
	}

	if err := h.service.Register(r.Context(), in); err != nil {
		h.render.Fail(w, r, err, "register", page)
		return
	}
	web.SetFlash(w, web.FlashSuccess, RegisteredMessage)
	web.Redirect(w, r, "/login")
}
