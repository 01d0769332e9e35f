package auth

import (
	"context"
	"errors"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/audit"
	"caringcompass.org/internal/ids"
	"caringcompass.org/internal/obs"
)

// InviteUser creates a time-boxed, single-use invite for an email that is not
// yet registered. Repeat invites for the same email are permitted; each code
// is independent and the first acceptance consumes only its own invite.
func (s *Service) InviteUser(ctx context.Context, invitedBy string, req InviteUserRequest) (*Invite, error) {
	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	role, ok := access.ParseRole(string(req.Role))
	if !ok {
		return nil, newError(CodeInviteInvalid, "unknown role "+string(req.Role))
	}

	if _, err := s.actors.FindByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, ErrInviteInvalid
	}

	now := s.now().UTC()
	invite := Invite{
		ID:        ids.New(),
		Email:     email,
		Role:      role,
		InvitedBy: invitedBy,
		Code:      ids.InviteCode(),
		ExpiresAt: now.Add(s.inviteTTL),
		CreatedAt: now,
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, ErrInviteInvalid
	}

	if req.SendEmail && s.mailer != nil {
		if err := s.mailer.SendInvite(ctx, email, invite.Code, string(role)); err != nil {
			// The invite stands; the code can be delivered out of band.
			obs.Errorf("invite email failed for %s: %v", email, err)
		}
	}

	s.record(ctx, audit.Event{
		ActorID: invitedBy,
		Action:  audit.ActionInviteCreate,
		Success: true,
		Metadata: map[string]string{
			"email": email,
			"role":  string(role),
		},
	})
	return &invite, nil
}

// AcceptInvite redeems a code into a new account. Email and role come from
// the invite record, never from the request, so a leaked code cannot be used
// to register a different address or escalate the role.
func (s *Service) AcceptInvite(ctx context.Context, req AcceptInviteRequest) (*RegisterResult, error) {
	now := s.now().UTC()
	invite, err := s.invites.FindByCode(ctx, req.Code, now)
	if err != nil {
		return nil, ErrInviteInvalid
	}

	result, err := s.SignUp(ctx, RegisterCredentials{
		Email:     invite.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      invite.Role,
	})
	if err != nil {
		return nil, err
	}

	if err := s.invites.MarkAccepted(ctx, invite.Code, now); err != nil {
		// The account exists and the invite email is now registered, so a
		// stale code cannot mint a second account. A reconciliation sweep
		// closes the invite later.
		obs.Errorf("invite %s not marked accepted: %v", invite.ID, err)
	}

	s.record(ctx, audit.Event{
		ActorID: result.ActorID,
		Action:  audit.ActionInviteAccept,
		Success: true,
		Metadata: map[string]string{
			"email": invite.Email,
			"role":  string(invite.Role),
		},
	})
	return result, nil
}

// PendingInvites lists outstanding invites for an email, newest first.
func (s *Service) PendingInvites(ctx context.Context, email string) ([]Invite, error) {
	invites, err := s.invites.ListByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, ErrInviteInvalid
	}
	now := s.now().UTC()
	usable := invites[:0]
	for _, invite := range invites {
		if invite.Usable(now) {
			usable = append(usable, invite)
		}
	}
	return usable, nil
}
