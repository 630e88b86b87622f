package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookieName = "flash"

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot toast shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func SetFlash(w http.ResponseWriter, kind, message string) {
	raw, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}
	setCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash and queues its removal.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	ck, err := r.Cookie(flashCookieName)
	if err != nil || ck.Value == "" {
		return nil
	}
	setCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil
	}
	var flash Flash
	if err := json.Unmarshal(raw, &flash); err != nil || flash.Message == "" {
		return nil
	}
	return &flash
}
