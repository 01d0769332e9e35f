package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/auth"
)

var _ auth.InviteStore = (*inviteStore)(nil)

// inviteStore is a named view over the shared connection so Store can satisfy
// both ActorStore and InviteStore despite the overlapping Create method.
type inviteStore struct {
	db *sql.DB
}

// Invites returns the invite repository backed by this store.
func (s *Store) Invites() auth.InviteStore { return &inviteStore{db: s.db} }

const inviteColumns = `id, email, role, invited_by, code, expires_at, accepted_at, created_at`

func (s *inviteStore) Create(ctx context.Context, invite auth.Invite) error {
	_, err := s.db.ExecContext(ctx, `
		insert into invites (id, email, role, invited_by, code, expires_at, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, invite.ID, invite.Email, string(invite.Role), invite.InvitedBy, invite.Code, invite.ExpiresAt, invite.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByCode returns only a usable invite; accepted and expired codes are
// filtered in the query so "not found", "expired", and "already accepted"
// are indistinguishable to the caller.
func (s *inviteStore) FindByCode(ctx context.Context, code string, now time.Time) (auth.Invite, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+inviteColumns+`
		from invites
		where code=$1 and accepted_at is null and expires_at > $2
	`, code, now)
	return scanInvite(row)
}

func (s *inviteStore) MarkAccepted(ctx context.Context, code string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update invites set accepted_at=$2 where code=$1 and accepted_at is null
	`, code, at)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *inviteStore) ListByEmail(ctx context.Context, email string) ([]auth.Invite, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+inviteColumns+`
		from invites
		where email=$1
		order by created_at desc
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []auth.Invite
	for rows.Next() {
		var (
			invite   auth.Invite
			role     string
			accepted sql.NullTime
		)
		if err := rows.Scan(&invite.ID, &invite.Email, &role, &invite.InvitedBy, &invite.Code, &invite.ExpiresAt, &accepted, &invite.CreatedAt); err != nil {
			return nil, err
		}
		invite.Role = access.Role(role)
		if accepted.Valid {
			t := accepted.Time
			invite.AcceptedAt = &t
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

func scanInvite(row *sql.Row) (auth.Invite, error) {
	var (
		invite   auth.Invite
		role     string
		accepted sql.NullTime
	)
	err := row.Scan(&invite.ID, &invite.Email, &role, &invite.InvitedBy, &invite.Code, &invite.ExpiresAt, &accepted, &invite.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Invite{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Invite{}, err
	}
	invite.Role = access.Role(role)
	if accepted.Valid {
		t := accepted.Time
		invite.AcceptedAt = &t
	}
	return invite, nil
}
