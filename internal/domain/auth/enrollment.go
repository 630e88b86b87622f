package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"net/url"
	"strings"

	"github.com/pquerna/otp"

	"leaveportal/internal/platform/version"
)

const qrImageSize = 200

var (
	ErrConfirmationRequired = errors.New("disabling two-factor authentication must be confirmed")
	ErrNoEnrollment         = errors.New("no two-factor enrollment in progress")
	ErrEnrollmentRejected   = errors.New("two-factor code was not accepted")
)

// TwoFactorBackend is the part of the API used to manage 2FA for the
// signed-in user.
type TwoFactorBackend interface {
	EnableTwoFactor(ctx context.Context) (EnrollmentSecret, error)
	VerifyEnableTwoFactor(ctx context.Context, code string) (bool, error)
	DisableTwoFactor(ctx context.Context) error
}

// Enrollment drives enabling and disabling 2FA from the settings page. An
// issued secret is kept in the EnrollmentStore until it is confirmed.
type Enrollment struct {
	store   EnrollmentStore
	backend TwoFactorBackend
}

func NewEnrollment(store EnrollmentStore, backend TwoFactorBackend) *Enrollment {
	return &Enrollment{store: store, backend: backend}
}

// Pending returns the issued secret awaiting confirmation, with its QR image.
func (e *Enrollment) Pending() (EnrollmentSecret, bool) {
	secret, ok := e.store.IssuedEnrollment()
	if !ok {
		return EnrollmentSecret{}, false
	}
	secret.QRImage = qrDataURI(secret)
	return secret, true
}

func (e *Enrollment) Begin(ctx context.Context, accountEmail string) (EnrollmentSecret, error) {
	secret, err := e.backend.EnableTwoFactor(ctx)
	if err != nil {
		return EnrollmentSecret{}, err
	}
	if secret.QRCodeURL == "" && secret.Secret != "" {
		secret.QRCodeURL = otpauthURL(accountEmail, secret.Secret)
	}
	e.store.SetIssuedEnrollment(EnrollmentSecret{Secret: secret.Secret, QRCodeURL: secret.QRCodeURL})
	secret.QRImage = qrDataURI(secret)
	return secret, nil
}

// Confirm submits the first code from the authenticator app. The code is
// checked locally before anything is sent.
func (e *Enrollment) Confirm(ctx context.Context, code string) error {
	if _, ok := e.store.IssuedEnrollment(); !ok {
		return ErrNoEnrollment
	}
	normalized, ok := NormalizeCode(code)
	if !ok {
		return ErrInvalidCode
	}
	enabled, err := e.backend.VerifyEnableTwoFactor(ctx, normalized)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrEnrollmentRejected
	}
	e.store.ClearIssuedEnrollment()
	return nil
}

func (e *Enrollment) Cancel() {
	e.store.ClearIssuedEnrollment()
}

func (e *Enrollment) Disable(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := e.backend.DisableTwoFactor(ctx); err != nil {
		return err
	}
	e.store.ClearIssuedEnrollment()
	return nil
}

func otpauthURL(account, secret string) string {
	issuer := version.Application
	label := url.PathEscape(issuer + ":" + account)
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", issuer)
	return "otpauth://totp/" + label + "?" + q.Encode()
}

// qrDataURI renders the provisioning URL as a PNG data URI. An empty string
// means the page falls back to showing the secret for manual entry.
func qrDataURI(secret EnrollmentSecret) string {
	if secret.QRCodeURL == "" {
		return ""
	}
	if strings.HasPrefix(secret.QRCodeURL, "data:image/") {
		return secret.QRCodeURL
	}
	key, err := otp.NewKeyFromURL(secret.QRCodeURL)
	if err != nil {
		return ""
	}
	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ""
	}
	return fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(buf.Bytes()))
}
