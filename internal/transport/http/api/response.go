package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"leaveportal/internal/requestctx"
)

// Envelope mirrors the leave API's own {status, message, data} body so probes
// read the same shape on both sides of the portal.
type Envelope struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, r *http.Request, status int, payload Envelope) {
	if payload.Status == "" {
		payload.Status = statusName(status)
	}
	payload.RequestID = requestctx.GetRequestID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err, "requestId", payload.RequestID)
	}
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	WriteJSON(w, r, http.StatusOK, Envelope{Data: data})
}

func Fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, r, status, Envelope{Code: code, Message: message})
}

// statusName renders 503 as SERVICE_UNAVAILABLE, the way the API names them.
func statusName(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
