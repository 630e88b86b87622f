package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"leaveportal/internal/platform/apiclient"
)

// Service talks to the authentication endpoints of the leave API.
type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

type loginPayload struct {
	AccessToken       string   `json:"accessToken"`
	Token             string   `json:"token"`
	User              *APIUser `json:"user"`
	RequiresTwoFactor bool     `json:"requiresTwoFactor"`
	Message           string   `json:"message"`
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var raw apiclient.Raw
	body := map[string]string{"email": email, "password": password}
	if err := s.client.JSON(ctx, http.MethodPost, "/auth/login", nil, body, &raw); err != nil {
		return LoginResult{}, err
	}
	return parseLoginResponse(raw)
}

func (s *Service) VerifyTwoFactor(ctx context.Context, email, code string) (LoginResult, error) {
	var raw apiclient.Raw
	body := map[string]string{"email": email, "code": code}
	if err := s.client.JSON(ctx, http.MethodPost, "/auth/verify-2fa", nil, body, &raw); err != nil {
		return LoginResult{}, err
	}
	return parseLoginResponse(raw)
}

func (s *Service) CurrentUser(ctx context.Context) (User, error) {
	var out APIUser
	if err := s.client.JSON(ctx, http.MethodGet, "/users/me", nil, nil, &out); err != nil {
		return User{}, err
	}
	if out.ID == "" && out.Email == "" {
		return User{}, fmt.Errorf("%w: empty user profile", apiclient.ErrUnavailable)
	}
	return MapUser(out), nil
}

// Register creates an account. The caller signs in separately afterwards.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	body := map[string]string{
		"fullName":    strings.TrimSpace(in.FullName),
		"email":       strings.TrimSpace(in.Email),
		"phoneNumber": strings.TrimSpace(in.PhoneNumber),
		"password":    in.Password,
	}
	return s.client.JSON(ctx, http.MethodPost, "/auth/register", nil, body, nil)
}

// ListUsers returns the user directory, used by admins to pick whose
// balances to manage.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	var page apiclient.Page[APIUser]
	if err := s.client.JSON(ctx, http.MethodGet, "/users", nil, nil, &page); err != nil {
		return nil, err
	}
	out := make([]User, 0, len(page.Content))
	for _, u := range page.Content {
		out = append(out, MapUser(u))
	}
	return out, nil
}

func (s *Service) EnableTwoFactor(ctx context.Context) (EnrollmentSecret, error) {
	var out EnrollmentSecret
	if err := s.client.JSON(ctx, http.MethodPost, "/auth/2fa/enable", nil, nil, &out); err != nil {
		return EnrollmentSecret{}, err
	}
	return out, nil
}

func (s *Service) VerifyEnableTwoFactor(ctx context.Context, code string) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	if err := s.client.JSON(ctx, http.MethodPost, "/auth/2fa/verify-enable", nil, map[string]string{"code": code}, &out); err != nil {
		return false, err
	}
	return out.Enabled, nil
}

func (s *Service) DisableTwoFactor(ctx context.Context) error {
	return s.client.JSON(ctx, http.MethodPost, "/auth/2fa/disable", nil, nil, nil)
}

// parseLoginResponse accepts the result either inside the {message,status,data}
// envelope or at the top level; requiresTwoFactor and message may sit on either.
func parseLoginResponse(raw []byte) (LoginResult, error) {
	var top struct {
		loginPayload
		Data json.RawMessage `json:"data"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &top); err != nil {
			return LoginResult{}, fmt.Errorf("%w: decode login response: %v", apiclient.ErrUnavailable, err)
		}
	}

	payload := top.loginPayload
	if len(top.Data) > 0 && top.Data[0] == '{' {
		var inner loginPayload
		if err := json.Unmarshal(top.Data, &inner); err != nil {
			return LoginResult{}, fmt.Errorf("%w: decode login data: %v", apiclient.ErrUnavailable, err)
		}
		inner.RequiresTwoFactor = inner.RequiresTwoFactor || top.RequiresTwoFactor
		if inner.Message == "" {
			inner.Message = top.Message
		}
		payload = inner
	}

	result := LoginResult{
		AccessToken:       payload.AccessToken,
		RequiresTwoFactor: payload.RequiresTwoFactor,
		Message:           payload.Message,
	}
	if result.AccessToken == "" {
		result.AccessToken = payload.Token
	}
	if payload.User != nil {
		user := MapUser(*payload.User)
		result.User = &user
	}
	return result, nil
}
