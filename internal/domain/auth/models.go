package auth

import (
	"strings"
)

type User struct {
	ID               string
	Email            string
	FirstName        string
	LastName         string
	PhoneNumber      string
	Role             Role
	TwoFactorEnabled bool
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) Initials() string {
	out := ""
	for _, part := range []string{u.FirstName, u.LastName} {
		if part != "" {
			out += strings.ToUpper(part[:1])
		}
	}
	return out
}

type APIRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// APIUser is the user shape returned by /auth/login, /auth/verify-2fa and /users/me.
type APIUser struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FullName         string    `json:"fullName"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	PhoneNumber      string    `json:"phoneNumber"`
	Roles            []APIRole `json:"roles"`
	Role             string    `json:"role"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
}

// MapUser derives the client view of a user. The role comes from the first
// roles entry (then a plain role field), defaulting to STAFF. Names come from
// firstName/lastName when present, else from splitting fullName on whitespace.
func MapUser(in APIUser) User {
	roleName := in.Role
	if len(in.Roles) > 0 {
		roleName = in.Roles[0].Name
	}

	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" && last == "" {
		parts := strings.Fields(in.FullName)
		if len(parts) > 0 {
			first = parts[0]
			last = strings.Join(parts[1:], " ")
		}
	}

	return User{
		ID:               in.ID,
		Email:            strings.TrimSpace(in.Email),
		FirstName:        first,
		LastName:         last,
		PhoneNumber:      in.PhoneNumber,
		Role:             ParseRole(roleName),
		TwoFactorEnabled: in.TwoFactorEnabled,
	}
}

// LoginResult is the outcome of /auth/login or /auth/verify-2fa.
type LoginResult struct {
	AccessToken       string
	User              *User
	RequiresTwoFactor bool
	Message           string
}

type RegisterInput struct {
	FullName        string `form:"fullName" validate:"required,min=2" msg:"Full name must be at least 2 characters"`
	Email           string `form:"email" validate:"required,email" msg:"Please enter a valid email address"`
	PhoneNumber     string `form:"phoneNumber" validate:"required"`
	Password        string `form:"password" validate:"required,min=8" msg:"Password must be at least 8 characters"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password" msg:"Passwords do not match"`
}

// EnrollmentSecret is what /auth/2fa/enable issues.
type EnrollmentSecret struct {
	Secret    string `json:"secret"`
	QRCodeURL string `json:"qrCodeUrl"`
	// QRImage is a data: URI for the QR code when one could be rendered.
	QRImage string `json:"-"`
}
