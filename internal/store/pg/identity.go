package pg

import (
	"context"
	"database/sql"
	"errors"

	"caringcompass.org/internal/auth"
	"caringcompass.org/internal/identity"
)

var (
	_ identity.AccountStore      = (*accountStore)(nil)
	_ identity.RefreshTokenStore = (*tokenStore)(nil)
)

type accountStore struct {
	db *sql.DB
}

// Accounts returns the credential-account repository backed by this store.
func (s *Store) Accounts() identity.AccountStore { return &accountStore{db: s.db} }

func (s *accountStore) Create(ctx context.Context, account identity.Account) error {
	_, err := s.db.ExecContext(ctx, `
		insert into credential_accounts (subject_id, email, password_hash, created_at)
		values ($1, $2, $3, $4)
	`, account.SubjectID, account.Email, account.PasswordHash, account.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *accountStore) FindByEmail(ctx context.Context, email string) (identity.Account, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		select subject_id, email, password_hash, created_at
		from credential_accounts where email=$1
	`, email))
}

func (s *accountStore) FindBySubject(ctx context.Context, subjectID string) (identity.Account, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		select subject_id, email, password_hash, created_at
		from credential_accounts where subject_id=$1
	`, subjectID))
}

func (s *accountStore) scanOne(row *sql.Row) (identity.Account, error) {
	var account identity.Account
	err := row.Scan(&account.SubjectID, &account.Email, &account.PasswordHash, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Account{}, auth.ErrNotFound
	}
	if err != nil {
		return identity.Account{}, err
	}
	return account, nil
}

func (s *accountStore) UpdatePassword(ctx context.Context, subjectID string, hash []byte) error {
	return s.expectOne(s.db.ExecContext(ctx, `
		update credential_accounts set password_hash=$2 where subject_id=$1
	`, subjectID, hash))
}

func (s *accountStore) UpdateEmail(ctx context.Context, subjectID, email string) error {
	err := s.expectOne(s.db.ExecContext(ctx, `
		update credential_accounts set email=$2 where subject_id=$1
	`, subjectID, email))
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return auth.ErrAlreadyExists
	}
	return err
}

func (s *accountStore) expectOne(res sql.Result, err error) error {
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

type tokenStore struct {
	db *sql.DB
}

// Tokens returns the refresh-token repository backed by this store.
func (s *Store) Tokens() identity.RefreshTokenStore { return &tokenStore{db: s.db} }

func (s *tokenStore) Save(ctx context.Context, token identity.RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		insert into refresh_tokens (id, subject_id, secret_hash, expires_at, revoked)
		values ($1, $2, $3, $4, $5)
	`, token.ID, token.SubjectID, token.SecretHash, token.ExpiresAt, token.Revoked)
	return err
}

func (s *tokenStore) Find(ctx context.Context, id string) (identity.RefreshToken, error) {
	var token identity.RefreshToken
	err := s.db.QueryRowContext(ctx, `
		select id, subject_id, secret_hash, expires_at, revoked
		from refresh_tokens where id=$1
	`, id).Scan(&token.ID, &token.SubjectID, &token.SecretHash, &token.ExpiresAt, &token.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.RefreshToken{}, auth.ErrNotFound
	}
	if err != nil {
		return identity.RefreshToken{}, err
	}
	return token, nil
}

func (s *tokenStore) Revoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		update refresh_tokens set revoked=true where id=$1
	`, id)
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

func (s *tokenStore) RevokeAllForSubject(ctx context.Context, subjectID string) error {
	_, err := s.db.ExecContext(ctx, `
		update refresh_tokens set revoked=true where subject_id=$1
	`, subjectID)
	return err
}
