package auth

import (
	"context"
	"errors"
	"time"
)

// Store-level sentinels. Service operations translate these into the typed
// error taxonomy at the boundary; handlers never see them.
var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
)

// ActorPatch is a partial actor update; nil fields are left untouched.
type ActorPatch struct {
	Email         *string
	Active        *bool
	EmailVerified *bool
	LastLoginAt   *time.Time
}

// ActorStore persists actors, keyed on the credential authority's subject id.
type ActorStore interface {
	FindByID(ctx context.Context, id string) (Actor, error)
	FindByEmail(ctx context.Context, email string) (Actor, error)
	Create(ctx context.Context, actor Actor) error
	Update(ctx context.Context, id string, patch ActorPatch) error
}

// Address is the postal address embedded in care profiles.
type Address struct {
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// ClientProfile is created once at client registration with placeholder
// demographics; onboarding fills in the real values later.
type ClientProfile struct {
	ActorID     string    `json:"actor_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Phone       string    `json:"phone"`
	Address     Address   `json:"address"`
	Status      string    `json:"status"`
}

// CaregiverProfile mirrors ClientProfile for caregivers.
type CaregiverProfile struct {
	ActorID     string    `json:"actor_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Phone       string    `json:"phone"`
	Address     Address   `json:"address"`
	Status      string    `json:"status"`
}

// StaffProfile covers coordinators and admins.
type StaffProfile struct {
	ActorID    string `json:"actor_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Title      string `json:"title"`
	Department string `json:"department"`
}

// ProfileStore creates the role-specific profile record; exactly one create
// is invoked per sign-up, and none for family members (their profile appears
// when they are linked to a client).
type ProfileStore interface {
	CreateClientProfile(ctx context.Context, profile ClientProfile) error
	CreateCaregiverProfile(ctx context.Context, profile CaregiverProfile) error
	CreateStaffProfile(ctx context.Context, profile StaffProfile) error
}

// InviteStore persists invites behind the same repository shape as the other
// stores so it can be swapped for an in-memory fake in tests.
type InviteStore interface {
	Create(ctx context.Context, invite Invite) error
	// FindByCode returns only a usable invite: not yet accepted and not
	// expired as of now. Anything else is ErrNotFound.
	FindByCode(ctx context.Context, code string, now time.Time) (Invite, error)
	MarkAccepted(ctx context.Context, code string, at time.Time) error
	// ListByEmail returns outstanding invites for an email, newest first.
	ListByEmail(ctx context.Context, email string) ([]Invite, error)
}
