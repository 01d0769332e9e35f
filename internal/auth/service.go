// Package auth orchestrates the credential and session lifecycle: sign-in,
// sign-up, sign-out, password and email changes, session refresh, and
// invite-based onboarding. Credential storage and token issuance are
// delegated to a CredentialAuthority; this package owns the local actor
// records, the role-specific profile creation, and the audit trail.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/audit"
	"caringcompass.org/internal/obs"
)

const defaultInviteTTL = 7 * 24 * time.Hour

// Placeholder dates of birth written at registration. Collecting real
// demographics is deferred to onboarding so registration never blocks on an
// incomplete profile.
var (
	clientPlaceholderDOB    = time.Date(1950, time.January, 1, 0, 0, 0, 0, time.UTC)
	caregiverPlaceholderDOB = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Service implements the credential and session manager.
type Service struct {
	authority CredentialAuthority
	actors    ActorStore
	profiles  ProfileStore
	invites   InviteStore
	recorder  *audit.Recorder

	limiter   SignInLimiter
	mailer    InviteMailer
	policy    PasswordPolicy
	inviteTTL time.Duration
	now       func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithPasswordPolicy replaces the default password policy.
func WithPasswordPolicy(policy PasswordPolicy) ServiceOption {
	return func(s *Service) { s.policy = policy }
}

// WithSignInLimiter installs the rate limiter consulted before each
// authentication attempt.
func WithSignInLimiter(limiter SignInLimiter) ServiceOption {
	return func(s *Service) { s.limiter = limiter }
}

// WithInviteMailer installs the invite email sender.
func WithInviteMailer(mailer InviteMailer) ServiceOption {
	return func(s *Service) { s.mailer = mailer }
}

// WithInviteTTL overrides the invite validity window.
func WithInviteTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.inviteTTL = ttl
		}
	}
}

// NewService wires the manager to its collaborators.
func NewService(authority CredentialAuthority, actors ActorStore, profiles ProfileStore, invites InviteStore, recorder *audit.Recorder, opts ...ServiceOption) *Service {
	s := &Service{
		authority: authority,
		actors:    actors,
		profiles:  profiles,
		invites:   invites,
		recorder:  recorder,
		policy:    DefaultPasswordPolicy(),
		inviteTTL: defaultInviteTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn exchanges credentials for a session. The limiter runs before the
// authority call so credential stuffing is rejected cheaply, and it fails
// closed: a limiter outage blocks sign-in rather than uncapping it.
func (s *Service) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	email := normalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, email)
		if err != nil {
			obs.Errorf("signin limiter unavailable: %v", err)
			return nil, ErrRateLimited
		}
		if !allowed {
			return nil, ErrRateLimited
		}
	}

	authSession, err := s.authority.Authenticate(ctx, email, creds.Password)
	if err != nil {
		s.record(ctx, audit.Event{
			Action:   audit.ActionLogin,
			Success:  false,
			Metadata: map[string]string{"email": email},
		})
		return nil, ErrInvalidCredentials
	}

	actor, err := s.actors.FindByID(ctx, authSession.SubjectID)
	if err != nil {
		// Split brain: the authority knows the subject but no local actor
		// record exists.
		return nil, ErrUserNotFound
	}
	if !actor.Active {
		return nil, ErrAccountDisabled
	}

	loginAt := s.now().UTC()
	if err := s.actors.Update(ctx, actor.ID, ActorPatch{LastLoginAt: &loginAt}); err != nil {
		obs.Errorf("last-login update failed for %s: %v", actor.ID, err)
	}
	actor.LastLoginAt = &loginAt

	s.record(ctx, audit.Event{
		ActorID:  actor.ID,
		Action:   audit.ActionLogin,
		Success:  true,
		Metadata: map[string]string{"email": email},
	})

	return &Session{
		Actor:        actor,
		AccessToken:  authSession.AccessToken,
		RefreshToken: authSession.RefreshToken,
		ExpiresAt:    authSession.ExpiresAt,
	}, nil
}

// SignUp registers a new actor: password policy, duplicate check, authority
// account, local actor record, exactly one role-specific profile, then a
// verification email. Registration never blocks on incomplete profile data;
// client and caregiver profiles are created with placeholders.
func (s *Service) SignUp(ctx context.Context, creds RegisterCredentials) (*RegisterResult, error) {
	email := normalizeEmail(creds.Email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if _, ok := access.ParseRole(string(creds.Role)); !ok {
		return nil, newError(CodeInvalidEmail, "unknown role "+string(creds.Role))
	}
	if err := s.policy.Validate(creds.Password); err != nil {
		return nil, err
	}

	if _, err := s.actors.FindByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}

	subjectID, err := s.authority.CreateAccount(ctx, email, creds.Password)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	actor := Actor{
		ID:        subjectID,
		Email:     email,
		Role:      creds.Role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.actors.Create(ctx, actor); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.createRoleProfile(ctx, actor.ID, creds); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.authority.SendVerificationEmail(ctx, email); err != nil {
		// The account exists either way; verification can be re-sent.
		obs.Errorf("verification email failed for %s: %v", email, err)
	}

	s.record(ctx, audit.Event{
		ActorID: actor.ID,
		Action:  audit.ActionRegister,
		Success: true,
		Metadata: map[string]string{
			"email": email,
			"role":  string(creds.Role),
		},
	})

	return &RegisterResult{ActorID: actor.ID, EmailVerificationRequired: true}, nil
}

func (s *Service) createRoleProfile(ctx context.Context, actorID string, creds RegisterCredentials) error {
	emptyAddress := Address{Country: "US"}
	switch creds.Role {
	case access.RoleClient:
		return s.profiles.CreateClientProfile(ctx, ClientProfile{
			ActorID:     actorID,
			FirstName:   creds.FirstName,
			LastName:    creds.LastName,
			DateOfBirth: clientPlaceholderDOB,
			Phone:       creds.Phone,
			Address:     emptyAddress,
			Status:      "INQUIRY",
		})
	case access.RoleCaregiver:
		return s.profiles.CreateCaregiverProfile(ctx, CaregiverProfile{
			ActorID:     actorID,
			FirstName:   creds.FirstName,
			LastName:    creds.LastName,
			DateOfBirth: caregiverPlaceholderDOB,
			Phone:       creds.Phone,
			Address:     emptyAddress,
			Status:      "APPLICATION_SUBMITTED",
		})
	case access.RoleCoordinator, access.RoleAdmin:
		title := "Care Coordinator"
		if creds.Role == access.RoleAdmin {
			title = "Administrator"
		}
		return s.profiles.CreateStaffProfile(ctx, StaffProfile{
			ActorID:    actorID,
			FirstName:  creds.FirstName,
			LastName:   creds.LastName,
			Title:      title,
			Department: "Care Management",
		})
	case access.RoleFamily:
		// Family profiles are created when the member is linked to a client.
		return nil
	default:
		return nil
	}
}

// SignOut is best-effort: authority failures are logged and swallowed so
// sign-out never fails visibly.
func (s *Service) SignOut(ctx context.Context, actorID string) {
	if err := s.authority.InvalidateSessions(ctx, actorID); err != nil {
		obs.Errorf("signout failed for %s: %v", actorID, err)
		return
	}
	s.record(ctx, audit.Event{
		ActorID: actorID,
		Action:  audit.ActionLogout,
		Success: true,
	})
}

// ResetPassword asks the authority to mail a reset link. An unregistered
// email returns silently with no audit record, so the endpoint cannot be
// used to enumerate accounts.
func (s *Service) ResetPassword(ctx context.Context, req PasswordResetRequest) error {
	email := normalizeEmail(req.Email)
	actor, err := s.actors.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return ErrInvalidEmail
	}

	if err := s.authority.SendPasswordResetEmail(ctx, email, req.RedirectTo); err != nil {
		return ErrInvalidEmail
	}

	s.record(ctx, audit.Event{
		ActorID:  actor.ID,
		Action:   audit.ActionPasswordResetRequest,
		Success:  true,
		Metadata: map[string]string{"email": email},
	})
	return nil
}

// UpdatePassword validates the new password and pushes it to the authority.
func (s *Service) UpdatePassword(ctx context.Context, actorID string, req PasswordUpdateRequest) error {
	if err := s.policy.Validate(req.NewPassword); err != nil {
		return err
	}
	if err := s.authority.UpdatePassword(ctx, actorID, req.NewPassword); err != nil {
		return ErrInvalidCredentials
	}
	s.record(ctx, audit.Event{
		ActorID: actorID,
		Action:  audit.ActionPasswordUpdate,
		Success: true,
	})
	return nil
}

// UpdateEmail changes the email at the authority first, then mirrors it into
// the local actor record. The two writes are not transactional: a crash
// between them leaves the stores divergent until a reconciliation sweep
// re-drives the local mirror.
func (s *Service) UpdateEmail(ctx context.Context, actorID string, req EmailUpdateRequest) error {
	email := normalizeEmail(req.NewEmail)
	if !validEmail(email) {
		return ErrInvalidEmail
	}
	if err := s.authority.UpdateEmail(ctx, actorID, email); err != nil {
		return ErrInvalidEmail
	}
	if err := s.actors.Update(ctx, actorID, ActorPatch{Email: &email}); err != nil {
		obs.Errorf("local email mirror failed for %s: %v", actorID, err)
		return ErrInvalidEmail
	}
	s.record(ctx, audit.Event{
		ActorID:  actorID,
		Action:   audit.ActionEmailUpdate,
		Success:  true,
		Metadata: map[string]string{"new_email": email},
	})
	return nil
}

// RefreshSession rotates the token pair. Refresh is advisory: any failure
// yields (nil, nil) and the caller falls back to a fresh sign-in.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	authSession, err := s.authority.RefreshSession(ctx, refreshToken)
	if err != nil || authSession.SubjectID == "" {
		return nil, nil
	}
	actor, err := s.actors.FindByID(ctx, authSession.SubjectID)
	if err != nil || !actor.Active {
		return nil, nil
	}
	s.record(ctx, audit.Event{
		ActorID: actor.ID,
		Action:  audit.ActionTokenRefresh,
		Success: true,
	})
	return &Session{
		Actor:        actor,
		AccessToken:  authSession.AccessToken,
		RefreshToken: authSession.RefreshToken,
		ExpiresAt:    authSession.ExpiresAt,
	}, nil
}

// ActorFromToken resolves a bearer token to the local actor record. The
// guards build on this one call.
func (s *Service) ActorFromToken(ctx context.Context, token string) (Actor, error) {
	subjectID, err := s.authority.VerifyToken(ctx, token)
	if err != nil || subjectID == "" {
		return Actor{}, ErrTokenInvalid
	}
	actor, err := s.actors.FindByID(ctx, subjectID)
	if err != nil {
		return Actor{}, ErrTokenInvalid
	}
	if !actor.Active {
		return Actor{}, ErrAccountDisabled
	}
	return actor, nil
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	s.recorder.Record(ctx, event)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}
