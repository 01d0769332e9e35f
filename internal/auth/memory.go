package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory implementation of ActorStore and
// ProfileStore. It backs single-process development mode and the package
// tests; production wiring uses the postgres stores.
type MemoryStore struct {
	mu                sync.RWMutex
	actors            map[string]Actor
	byEmail           map[string]string
	clientProfiles    map[string]ClientProfile
	caregiverProfiles map[string]CaregiverProfile
	staffProfiles     map[string]StaffProfile
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		actors:            make(map[string]Actor),
		byEmail:           make(map[string]string),
		clientProfiles:    make(map[string]ClientProfile),
		caregiverProfiles: make(map[string]CaregiverProfile),
		staffProfiles:     make(map[string]StaffProfile),
	}
}

func (m *MemoryStore) FindByID(_ context.Context, id string) (Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	actor, ok := m.actors[id]
	if !ok {
		return Actor{}, ErrNotFound
	}
	return actor, nil
}

func (m *MemoryStore) FindByEmail(_ context.Context, email string) (Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return Actor{}, ErrNotFound
	}
	return m.actors[id], nil
}

func (m *MemoryStore) Create(_ context.Context, actor Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actors[actor.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := m.byEmail[actor.Email]; ok {
		return ErrAlreadyExists
	}
	m.actors[actor.ID] = actor
	m.byEmail[actor.Email] = actor.ID
	return nil
}

func (m *MemoryStore) Update(_ context.Context, id string, patch ActorPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	actor, ok := m.actors[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Email != nil {
		delete(m.byEmail, actor.Email)
		actor.Email = *patch.Email
		m.byEmail[actor.Email] = id
	}
	if patch.Active != nil {
		actor.Active = *patch.Active
	}
	if patch.EmailVerified != nil {
		actor.EmailVerified = *patch.EmailVerified
	}
	if patch.LastLoginAt != nil {
		t := *patch.LastLoginAt
		actor.LastLoginAt = &t
	}
	actor.UpdatedAt = time.Now().UTC()
	m.actors[id] = actor
	return nil
}

func (m *MemoryStore) CreateClientProfile(_ context.Context, profile ClientProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clientProfiles[profile.ActorID]; ok {
		return ErrAlreadyExists
	}
	m.clientProfiles[profile.ActorID] = profile
	return nil
}

func (m *MemoryStore) CreateCaregiverProfile(_ context.Context, profile CaregiverProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.caregiverProfiles[profile.ActorID]; ok {
		return ErrAlreadyExists
	}
	m.caregiverProfiles[profile.ActorID] = profile
	return nil
}

func (m *MemoryStore) CreateStaffProfile(_ context.Context, profile StaffProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.staffProfiles[profile.ActorID]; ok {
		return ErrAlreadyExists
	}
	m.staffProfiles[profile.ActorID] = profile
	return nil
}

// ClientProfileByActor returns the stored client profile, if any.
func (m *MemoryStore) ClientProfileByActor(id string) (ClientProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.clientProfiles[id]
	return p, ok
}

// CaregiverProfileByActor returns the stored caregiver profile, if any.
func (m *MemoryStore) CaregiverProfileByActor(id string) (CaregiverProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.caregiverProfiles[id]
	return p, ok
}

// StaffProfileByActor returns the stored staff profile, if any.
func (m *MemoryStore) StaffProfileByActor(id string) (StaffProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.staffProfiles[id]
	return p, ok
}

// MemoryInviteStore is the in-memory InviteStore counterpart of MemoryStore.
type MemoryInviteStore struct {
	mu      sync.RWMutex
	invites map[string]Invite
}

// NewMemoryInviteStore returns an empty invite store.
func NewMemoryInviteStore() *MemoryInviteStore {
	return &MemoryInviteStore{invites: make(map[string]Invite)}
}

func (m *MemoryInviteStore) Create(_ context.Context, invite Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invites[invite.Code]; ok {
		return ErrAlreadyExists
	}
	m.invites[invite.Code] = invite
	return nil
}

func (m *MemoryInviteStore) FindByCode(_ context.Context, code string, now time.Time) (Invite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	invite, ok := m.invites[code]
	if !ok || !invite.Usable(now) {
		return Invite{}, ErrNotFound
	}
	return invite, nil
}

func (m *MemoryInviteStore) MarkAccepted(_ context.Context, code string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	invite, ok := m.invites[code]
	if !ok {
		return ErrNotFound
	}
	t := at
	invite.AcceptedAt = &t
	m.invites[code] = invite
	return nil
}

func (m *MemoryInviteStore) ListByEmail(_ context.Context, email string) ([]Invite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Invite
	for _, invite := range m.invites {
		if invite.Email == email {
			out = append(out, invite)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
