package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/audit"
)

type fakeAuthority struct {
	mu        sync.Mutex
	passwords map[string]string // email -> password
	subjects  map[string]string // email -> subject id
	tokens    map[string]string // access token -> subject id
	refresh   map[string]string // refresh token -> subject id

	invalidated  []string
	verifyEmails []string
	resetEmails  []string
	failVerify   bool

	nextID int
}

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{
		passwords: make(map[string]string),
		subjects:  make(map[string]string),
		tokens:    make(map[string]string),
		refresh:   make(map[string]string),
	}
}

func (f *fakeAuthority) Authenticate(_ context.Context, email, password string) (AuthoritySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.passwords[email]
	if !ok || stored != password {
		return AuthoritySession{}, errors.New("authority: bad credentials")
	}
	subject := f.subjects[email]
	accessToken := "access-" + subject
	refreshToken := "refresh-" + subject
	f.tokens[accessToken] = subject
	f.refresh[refreshToken] = subject
	return AuthoritySession{
		SubjectID:    subject,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeAuthority) CreateAccount(_ context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subjects[email]; ok {
		return "", ErrAlreadyExists
	}
	f.nextID++
	subject := "subject-" + string(rune('a'+f.nextID-1))
	f.subjects[email] = subject
	f.passwords[email] = password
	return subject, nil
}

func (f *fakeAuthority) UpdatePassword(_ context.Context, subjectID, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, id := range f.subjects {
		if id == subjectID {
			f.passwords[email] = password
			return nil
		}
	}
	return errors.New("authority: unknown subject")
}

func (f *fakeAuthority) UpdateEmail(_ context.Context, subjectID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for old, id := range f.subjects {
		if id == subjectID {
			f.subjects[email] = id
			f.passwords[email] = f.passwords[old]
			if old != email {
				delete(f.subjects, old)
				delete(f.passwords, old)
			}
			return nil
		}
	}
	return errors.New("authority: unknown subject")
}

func (f *fakeAuthority) SendVerificationEmail(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failVerify {
		return errors.New("authority: smtp down")
	}
	f.verifyEmails = append(f.verifyEmails, email)
	return nil
}

func (f *fakeAuthority) SendPasswordResetEmail(_ context.Context, email, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetEmails = append(f.resetEmails, email)
	return nil
}

func (f *fakeAuthority) RefreshSession(_ context.Context, refreshToken string) (AuthoritySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subject, ok := f.refresh[refreshToken]
	if !ok {
		return AuthoritySession{}, nil
	}
	delete(f.refresh, refreshToken)
	accessToken := "access2-" + subject
	next := "refresh2-" + subject
	f.tokens[accessToken] = subject
	f.refresh[next] = subject
	return AuthoritySession{
		SubjectID:    subject,
		AccessToken:  accessToken,
		RefreshToken: next,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeAuthority) VerifyToken(_ context.Context, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[token], nil
}

func (f *fakeAuthority) InvalidateSessions(_ context.Context, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, subjectID)
	return nil
}

type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureSink) Append(_ context.Context, event audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) byAction(action audit.Action) []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []audit.Event
	for _, e := range c.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(context.Context, string) (bool, error) { return false, nil }

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return true, errors.New("redis: connection refused")
}

type testHarness struct {
	service   *Service
	authority *fakeAuthority
	store     *MemoryStore
	invites   *MemoryInviteStore
	sink      *captureSink
}

func newHarness(t *testing.T, opts ...ServiceOption) *testHarness {
	t.Helper()
	h := &testHarness{
		authority: newFakeAuthority(),
		store:     NewMemoryStore(),
		invites:   NewMemoryInviteStore(),
		sink:      &captureSink{},
	}
	h.service = NewService(h.authority, h.store, h.store, h.invites, audit.NewRecorder(h.sink), opts...)
	return h
}

func (h *testHarness) register(t *testing.T, email string, role access.Role) string {
	t.Helper()
	result, err := h.service.SignUp(context.Background(), RegisterCredentials{
		Email:     email,
		Password:  "Sup3r-secret!",
		FirstName: "Test",
		LastName:  "Person",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("SignUp(%s) = %v", email, err)
	}
	return result.ActorID
}

func TestSignUpCreatesActorAndProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := h.register(t, "client@example.com", access.RoleClient)

	actor, err := h.store.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID = %v", err)
	}
	if !actor.Active {
		t.Error("new actor should be active")
	}
	if actor.Role != access.RoleClient {
		t.Errorf("role = %s, want CLIENT", actor.Role)
	}

	profile, ok := h.store.ClientProfileByActor(id)
	if !ok {
		t.Fatal("client profile not created")
	}
	if profile.Status != "INQUIRY" {
		t.Errorf("client status = %q, want INQUIRY", profile.Status)
	}
	if _, ok := h.store.StaffProfileByActor(id); ok {
		t.Error("client must not get a staff profile")
	}

	if got := h.authority.verifyEmails; len(got) != 1 || got[0] != "client@example.com" {
		t.Errorf("verification emails = %v", got)
	}
	if events := h.sink.byAction(audit.ActionRegister); len(events) != 1 || !events[0].Success {
		t.Errorf("register audit events = %+v", events)
	}
}

func TestSignUpStaffProfiles(t *testing.T) {
	h := newHarness(t)

	adminID := h.register(t, "admin@example.com", access.RoleAdmin)
	coordID := h.register(t, "coord@example.com", access.RoleCoordinator)

	admin, ok := h.store.StaffProfileByActor(adminID)
	if !ok || admin.Title != "Administrator" {
		t.Errorf("admin staff profile = %+v ok=%v", admin, ok)
	}
	coord, ok := h.store.StaffProfileByActor(coordID)
	if !ok || coord.Title != "Care Coordinator" {
		t.Errorf("coordinator staff profile = %+v ok=%v", coord, ok)
	}
	if admin.Department != "Care Management" {
		t.Errorf("department = %q", admin.Department)
	}
}

func TestSignUpFamilyHasNoProfile(t *testing.T) {
	h := newHarness(t)
	id := h.register(t, "family@example.com", access.RoleFamily)
	if _, ok := h.store.ClientProfileByActor(id); ok {
		t.Error("family member must not get a client profile")
	}
	if _, ok := h.store.StaffProfileByActor(id); ok {
		t.Error("family member must not get a staff profile")
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.register(t, "dup@example.com", access.RoleClient)

	_, err := h.service.SignUp(context.Background(), RegisterCredentials{
		Email:    "dup@example.com",
		Password: "Sup3r-secret!",
		Role:     access.RoleCaregiver,
	})
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("duplicate sign-up = %v, want user-already-exists", err)
	}
}

func TestSignUpWeakPasswordRejectedBeforeAuthority(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.SignUp(context.Background(), RegisterCredentials{
		Email:    "weak@example.com",
		Password: "short",
		Role:     access.RoleClient,
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak sign-up = %v, want weak-password", err)
	}
	if len(h.authority.subjects) != 0 {
		t.Error("authority account must not be created for a weak password")
	}
}

func TestSignUpVerificationFailureIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.authority.failVerify = true

	result, err := h.service.SignUp(context.Background(), RegisterCredentials{
		Email:    "flaky@example.com",
		Password: "Sup3r-secret!",
		Role:     access.RoleClient,
	})
	if err != nil {
		t.Fatalf("SignUp = %v, want nil despite verification failure", err)
	}
	if !result.EmailVerificationRequired {
		t.Error("EmailVerificationRequired should be true")
	}
}

func TestSignInHappyPath(t *testing.T) {
	h := newHarness(t)
	id := h.register(t, "user@example.com", access.RoleCaregiver)

	session, err := h.service.SignIn(context.Background(), Credentials{
		Email:    "User@Example.com",
		Password: "Sup3r-secret!",
	})
	if err != nil {
		t.Fatalf("SignIn = %v", err)
	}
	if session.Actor.ID != id {
		t.Errorf("actor id = %s, want %s", session.Actor.ID, id)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Error("session tokens missing")
	}
	if session.Actor.LastLoginAt == nil {
		t.Error("LastLoginAt not stamped")
	}
	if events := h.sink.byAction(audit.ActionLogin); len(events) != 1 || !events[0].Success {
		t.Errorf("login audit events = %+v", events)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.register(t, "user@example.com", access.RoleClient)

	_, err := h.service.SignIn(context.Background(), Credentials{
		Email:    "user@example.com",
		Password: "Wrong-passw0rd!",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("SignIn = %v, want invalid-credentials", err)
	}
	events := h.sink.byAction(audit.ActionLogin)
	if len(events) != 1 || events[0].Success {
		t.Errorf("failed login must leave one success=false event, got %+v", events)
	}
}

func TestSignInDisabledAccount(t *testing.T) {
	h := newHarness(t)
	id := h.register(t, "user@example.com", access.RoleClient)

	inactive := false
	if err := h.store.Update(context.Background(), id, ActorPatch{Active: &inactive}); err != nil {
		t.Fatalf("Update = %v", err)
	}

	_, err := h.service.SignIn(context.Background(), Credentials{
		Email:    "user@example.com",
		Password: "Sup3r-secret!",
	})
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("SignIn = %v, want account-disabled", err)
	}
}

func TestSignInUnknownLocalActor(t *testing.T) {
	h := newHarness(t)
	// Account exists at the authority but has no local actor record.
	if _, err := h.authority.CreateAccount(context.Background(), "ghost@example.com", "Sup3r-secret!"); err != nil {
		t.Fatalf("CreateAccount = %v", err)
	}

	_, err := h.service.SignIn(context.Background(), Credentials{
		Email:    "ghost@example.com",
		Password: "Sup3r-secret!",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("SignIn = %v, want user-not-found", err)
	}
}

func TestSignInRateLimited(t *testing.T) {
	h := newHarness(t, WithSignInLimiter(denyAllLimiter{}))
	h.register(t, "user@example.com", access.RoleClient)

	_, err := h.service.SignIn(context.Background(), Credentials{
		Email:    "user@example.com",
		Password: "Sup3r-secret!",
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("SignIn = %v, want rate-limited", err)
	}
}

func TestSignInLimiterFailsClosed(t *testing.T) {
	h := newHarness(t, WithSignInLimiter(brokenLimiter{}))
	h.register(t, "user@example.com", access.RoleClient)

	_, err := h.service.SignIn(context.Background(), Credentials{
		Email:    "user@example.com",
		Password: "Sup3r-secret!",
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("SignIn with broken limiter = %v, want rate-limited", err)
	}
}

func TestSignOutInvalidatesAndAudits(t *testing.T) {
	h := newHarness(t)
	id := h.register(t, "user@example.com", access.RoleClient)

	h.service.SignOut(context.Background(), id)

	if got := h.authority.invalidated; len(got) != 1 || got[0] != id {
		t.Errorf("invalidated = %v", got)
	}
	if events := h.sink.byAction(audit.ActionLogout); len(events) != 1 {
		t.Errorf("logout audit events = %+v", events)
	}
}

func TestResetPasswordUnknownEmailIsSilent(t *testing.T) {
	h := newHarness(t)

	if err := h.service.ResetPassword(context.Background(), PasswordResetRequest{Email: "nobody@example.com"}); err != nil {
		t.Fatalf("ResetPassword for unknown email = %v, want nil", err)
	}
	if len(h.authority.resetEmails) != 0 {
		t.Error("no reset email may be sent for an unknown address")
	}
	if events := h.sink.byAction(audit.ActionPasswordResetRequest); len(events) != 0 {
		t.Errorf("no audit event may reveal the miss, got %+v", events)
	}
}

func TestResetPasswordKnownEmail(t *testing.T) {
	h := newHarness(t)
	h.register(t, "user@example.com", access.RoleClient)

	if err := h.service.ResetPassword(context.Background(), PasswordResetRequest{Email: "user@example.com"}); err != nil {
		t.Fatalf("ResetPassword = %v", err)
	}
	if got := h.authority.resetEmails; len(got) != 1 || got[0] != "user@example.com" {
		t.Errorf("reset emails = %v", got)
	}
	if events := h.sink.byAction(audit.ActionPasswordResetRequest); len(events) != 1 {
		t.Errorf("reset audit events = %+v", events)
	}
}

func TestUpdatePasswordEnforcesPolicy(t *testing.T) {
	h := newHarness(t)
	id := h.register(t, "user@example.com", access.RoleClient)

	err := h.service.UpdatePassword(context.Background(), id, PasswordUpdateRequest{NewPassword: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("UpdatePassword = %v, want weak-password", err)
	}

	if err := h.service.UpdatePassword(context.Background(), id, PasswordUpdateRequest{NewPassword: "N3w-secret-pass!"}); err != nil {
		t.Fatalf("UpdatePassword = %v", err)
	}
	if _, err := h.service.SignIn(context.Background(), Credentials{Email: "user@example.com", Password: "N3w-secret-pass!"}); err != nil {
		t.Fatalf("SignIn with new password = %v", err)
	}
}

func TestUpdateEmailMirrorsLocally(t *testing.T) {
	h := newHarness(t)
	id := h.register(t, "old@example.com", access.RoleClient)

	if err := h.service.UpdateEmail(context.Background(), id, EmailUpdateRequest{NewEmail: "New@Example.com"}); err != nil {
		t.Fatalf("UpdateEmail = %v", err)
	}
	actor, err := h.store.FindByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("FindByEmail(new) = %v", err)
	}
	if actor.ID != id {
		t.Errorf("actor id = %s, want %s", actor.ID, id)
	}
	if _, err := h.store.FindByEmail(context.Background(), "old@example.com"); !errors.Is(err, ErrNotFound) {
		t.Error("old email must no longer resolve")
	}
	if events := h.sink.byAction(audit.ActionEmailUpdate); len(events) != 1 {
		t.Errorf("email audit events = %+v", events)
	}
}

func TestRefreshSessionRotates(t *testing.T) {
	h := newHarness(t)
	h.register(t, "user@example.com", access.RoleClient)

	first, err := h.service.SignIn(context.Background(), Credentials{Email: "user@example.com", Password: "Sup3r-secret!"})
	if err != nil {
		t.Fatalf("SignIn = %v", err)
	}

	next, err := h.service.RefreshSession(context.Background(), first.RefreshToken)
	if err != nil || next == nil {
		t.Fatalf("RefreshSession = %v, %v", next, err)
	}
	if next.RefreshToken == first.RefreshToken {
		t.Error("refresh token must rotate")
	}

	// The consumed token is dead; refresh degrades to (nil, nil).
	again, err := h.service.RefreshSession(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshSession(stale) = %v, want nil error", err)
	}
	if again != nil {
		t.Error("stale refresh token must not yield a session")
	}
}

func TestRefreshSessionGarbageToken(t *testing.T) {
	h := newHarness(t)
	session, err := h.service.RefreshSession(context.Background(), "nonsense")
	if err != nil || session != nil {
		t.Fatalf("RefreshSession(garbage) = %v, %v, want nil, nil", session, err)
	}
}

func TestActorFromToken(t *testing.T) {
	h := newHarness(t)
	id := h.register(t, "user@example.com", access.RoleClient)

	session, err := h.service.SignIn(context.Background(), Credentials{Email: "user@example.com", Password: "Sup3r-secret!"})
	if err != nil {
		t.Fatalf("SignIn = %v", err)
	}

	actor, err := h.service.ActorFromToken(context.Background(), session.AccessToken)
	if err != nil {
		t.Fatalf("ActorFromToken = %v", err)
	}
	if actor.ID != id {
		t.Errorf("actor id = %s, want %s", actor.ID, id)
	}

	if _, err := h.service.ActorFromToken(context.Background(), "bogus"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("ActorFromToken(bogus) = %v, want token-invalid", err)
	}

	inactive := false
	if err := h.store.Update(context.Background(), id, ActorPatch{Active: &inactive}); err != nil {
		t.Fatalf("Update = %v", err)
	}
	if _, err := h.service.ActorFromToken(context.Background(), session.AccessToken); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("ActorFromToken(disabled) = %v, want account-disabled", err)
	}
}
