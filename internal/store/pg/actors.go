package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/auth"
)

var _ auth.ActorStore = (*Store)(nil)

const actorColumns = `id, email, role, active, email_verified, last_login_at, created_at, updated_at`

func scanActor(row *sql.Row) (auth.Actor, error) {
	var (
		actor     auth.Actor
		role      string
		lastLogin sql.NullTime
	)
	err := row.Scan(&actor.ID, &actor.Email, &role, &actor.Active, &actor.EmailVerified, &lastLogin, &actor.CreatedAt, &actor.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Actor{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Actor{}, err
	}
	actor.Role = access.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		actor.LastLoginAt = &t
	}
	return actor, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (auth.Actor, error) {
	row := s.db.QueryRowContext(ctx, `select `+actorColumns+` from actors where id=$1`, id)
	return scanActor(row)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (auth.Actor, error) {
	row := s.db.QueryRowContext(ctx, `select `+actorColumns+` from actors where email=$1`, email)
	return scanActor(row)
}

func (s *Store) Create(ctx context.Context, actor auth.Actor) error {
	_, err := s.db.ExecContext(ctx, `
		insert into actors (id, email, role, active, email_verified, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, actor.ID, actor.Email, string(actor.Role), actor.Active, actor.EmailVerified, actor.CreatedAt, actor.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update applies only the fields set in the patch; updated_at moves on every
// successful write.
func (s *Store) Update(ctx context.Context, id string, patch auth.ActorPatch) error {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	next := 2

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Active != nil {
		add("active", *patch.Active)
	}
	if patch.EmailVerified != nil {
		add("email_verified", *patch.EmailVerified)
	}
	if patch.LastLoginAt != nil {
		add("last_login_at", *patch.LastLoginAt)
	}

	res, err := s.db.ExecContext(ctx, `update actors set `+strings.Join(sets, ", ")+` where id=$1`, args...)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrAlreadyExists
		}
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
