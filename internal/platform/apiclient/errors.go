package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized means the API rejected the bearer token. The token has
	// already been cleared when this is returned.
	ErrUnauthorized = errors.New("authentication required")
	// ErrUnavailable wraps transport failures and unreadable responses.
	ErrUnavailable = errors.New("leave service unavailable")
)

const (
	FallbackMessage   = "An error occurred"
	UnexpectedMessage = "An unexpected error occurred. Please try again."
)

// APIError is a non-2xx answer other than an authenticated 401.
type APIError struct {
	Status            int
	Message           string
	RequiresTwoFactor bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// Message returns the text a user should see for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, ErrUnauthorized) {
		return "Your session has expired. Please log in again."
	}
	return UnexpectedMessage
}

type errorBody struct {
	Message           string          `json:"message"`
	Error             json.RawMessage `json:"error"`
	RequiresTwoFactor bool            `json:"requiresTwoFactor"`
	Data              json.RawMessage `json:"data"`
}

func decodeAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status, Message: FallbackMessage}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		apiErr.Message = msg
	} else if msg := errorText(body.Error); msg != "" {
		apiErr.Message = msg
	}
	apiErr.RequiresTwoFactor = body.RequiresTwoFactor || dataRequiresTwoFactor(body.Data)
	return apiErr
}

func errorText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}

func dataRequiresTwoFactor(raw json.RawMessage) bool {
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	var data struct {
		RequiresTwoFactor bool `json:"requiresTwoFactor"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return false
	}
	return data.RequiresTwoFactor
}
