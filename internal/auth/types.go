package auth

import (
	"time"

	"caringcompass.org/internal/access"
)

// Actor is the identity a request acts as, resolved from a credential. Actors
// are never deleted; deactivation flips Active off and every guard honors it.
type Actor struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	Role          access.Role `json:"role"`
	Active        bool        `json:"active"`
	EmailVerified bool        `json:"email_verified"`
	LastLoginAt   *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Session pairs an actor with the token pair issued by the credential
// authority. The server keeps no mutable copy; a refresh supersedes the
// session rather than mutating it.
type Session struct {
	Actor        Actor     `json:"actor"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Invite binds an email to a role for time-boxed, single-use onboarding.
// An invite is usable iff AcceptedAt is nil and the expiry is in the future.
type Invite struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      access.Role `json:"role"`
	InvitedBy string      `json:"invited_by"`
	Code      string      `json:"code"`
	ExpiresAt time.Time   `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Usable reports whether the invite can still be accepted at the given time.
func (i Invite) Usable(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}

// Credentials carries a sign-in attempt.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterCredentials carries a sign-up request.
type RegisterCredentials struct {
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      access.Role `json:"role"`
	Phone     string      `json:"phone,omitempty"`
}

// RegisterResult is returned by SignUp; the account exists but the email is
// not yet verified.
type RegisterResult struct {
	ActorID                   string `json:"actor_id"`
	EmailVerificationRequired bool   `json:"email_verification_required"`
}

// PasswordResetRequest asks the authority to mail a reset link.
type PasswordResetRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// PasswordUpdateRequest replaces an actor's password.
type PasswordUpdateRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// EmailUpdateRequest changes an actor's email at the authority and mirrors it
// locally.
type EmailUpdateRequest struct {
	NewEmail string `json:"new_email"`
	Password string `json:"password"`
}

// InviteUserRequest creates an invite for a not-yet-registered email.
type InviteUserRequest struct {
	Email     string      `json:"email"`
	Role      access.Role `json:"role"`
	SendEmail bool        `json:"send_email,omitempty"`
}

// AcceptInviteRequest redeems an invite code into a new account. Email and
// role come from the invite, never from the request.
type AcceptInviteRequest struct {
	Code      string `json:"code"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
