package identity

import (
	"context"
	"sync"

	"caringcompass.org/internal/auth"
	"caringcompass.org/internal/obs"
)

// MemoryAccounts is the in-memory AccountStore for development mode and tests.
type MemoryAccounts struct {
	mu        sync.RWMutex
	bySubject map[string]Account
	byEmail   map[string]string
}

// NewMemoryAccounts returns an empty account store.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		bySubject: make(map[string]Account),
		byEmail:   make(map[string]string),
	}
}

func (m *MemoryAccounts) Create(_ context.Context, account Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[account.Email]; ok {
		return auth.ErrAlreadyExists
	}
	m.bySubject[account.SubjectID] = account
	m.byEmail[account.Email] = account.SubjectID
	return nil
}

func (m *MemoryAccounts) FindByEmail(_ context.Context, email string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return Account{}, auth.ErrNotFound
	}
	return m.bySubject[id], nil
}

func (m *MemoryAccounts) FindBySubject(_ context.Context, subjectID string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.bySubject[subjectID]
	if !ok {
		return Account{}, auth.ErrNotFound
	}
	return account, nil
}

func (m *MemoryAccounts) UpdatePassword(_ context.Context, subjectID string, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.bySubject[subjectID]
	if !ok {
		return auth.ErrNotFound
	}
	account.PasswordHash = hash
	m.bySubject[subjectID] = account
	return nil
}

func (m *MemoryAccounts) UpdateEmail(_ context.Context, subjectID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.bySubject[subjectID]
	if !ok {
		return auth.ErrNotFound
	}
	if other, taken := m.byEmail[email]; taken && other != subjectID {
		return auth.ErrAlreadyExists
	}
	delete(m.byEmail, account.Email)
	account.Email = email
	m.bySubject[subjectID] = account
	m.byEmail[email] = subjectID
	return nil
}

// MemoryTokens is the in-memory RefreshTokenStore counterpart.
type MemoryTokens struct {
	mu     sync.RWMutex
	tokens map[string]RefreshToken
}

// NewMemoryTokens returns an empty token store.
func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{tokens: make(map[string]RefreshToken)}
}

func (m *MemoryTokens) Save(_ context.Context, token RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.ID] = token
	return nil
}

func (m *MemoryTokens) Find(_ context.Context, id string) (RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[id]
	if !ok {
		return RefreshToken{}, auth.ErrNotFound
	}
	return token, nil
}

func (m *MemoryTokens) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[id]
	if !ok {
		return auth.ErrNotFound
	}
	token.Revoked = true
	m.tokens[id] = token
	return nil
}

func (m *MemoryTokens) RevokeAllForSubject(_ context.Context, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, token := range m.tokens {
		if token.SubjectID == subjectID {
			token.Revoked = true
			m.tokens[id] = token
		}
	}
	return nil
}

// LogMailer writes the emails it would send to the service log. It stands in
// for a real delivery integration in development mode.
type LogMailer struct{}

func (LogMailer) SendVerification(_ context.Context, email string) error {
	obs.LogRequest(map[string]any{
		"level": "info",
		"msg":   "verification email",
		"email": email,
	})
	return nil
}

func (LogMailer) SendPasswordReset(_ context.Context, email, redirectTo string) error {
	obs.LogRequest(map[string]any{
		"level":       "info",
		"msg":         "password reset email",
		"email":       email,
		"redirect_to": redirectTo,
	})
	return nil
}

// LogInviteMailer is the matching stand-in for invite delivery.
type LogInviteMailer struct{}

func (LogInviteMailer) SendInvite(_ context.Context, email, code, role string) error {
	obs.LogRequest(map[string]any{
		"level": "info",
		"msg":   "invite email",
		"email": email,
		"code":  code,
		"role":  role,
	})
	return nil
}
