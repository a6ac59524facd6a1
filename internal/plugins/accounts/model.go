// Package accounts handles user identity: registration, login, logout,
// and identifier resolution. Login and registration are the only places
// that create sessions in the registry; logout is the only place that
// removes them explicitly.
//
// This is a core plugin -- every other plugin resolves identities through
// its service.
package accounts

import (
	"time"

	"github.com/asimpleforum/server/internal/authz"
)

// User represents a registered forum user. This is the domain model used
// throughout the application.
type User struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"` // Never expose in JSON responses.
	Tier           authz.Tier `json:"-"`
	EmailConfirmed bool       `json:"email_confirmed"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TierName is the tier's storage/display name, for JSON shaping.
func (u *User) TierName() string {
	return u.Tier.String()
}

// Actor converts the user into the shape the authorization engine accepts.
func (u *User) Actor() *authz.Actor {
	if u == nil {
		return nil
	}
	return &authz.Actor{UserID: u.ID, Tier: u.Tier}
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the data submitted by the login form. Identifier may
// be a username or an email address.
type LoginRequest struct {
	Identifier string `json:"username" form:"username"`
	Password   string `json:"password" form:"password"`
}

// RegisterRequest holds the data submitted by the registration form.
type RegisterRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LogoutRequest holds the session id submitted on logout.
type LogoutRequest struct {
	SessionID string `json:"sessionId" form:"sessionId"`
}

// --- Service input DTOs ---

// RegisterInput is the validated input for creating a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}
