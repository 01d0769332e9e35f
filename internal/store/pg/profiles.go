package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"caringcompass.org/internal/auth"
)

var _ auth.ProfileStore = (*Store)(nil)

func marshalAddress(address auth.Address) ([]byte, error) {
	data, err := json.Marshal(address)
	if err != nil {
		return nil, fmt.Errorf("marshal address: %w", err)
	}
	return data, nil
}

func (s *Store) CreateClientProfile(ctx context.Context, profile auth.ClientProfile) error {
	address, err := marshalAddress(profile.Address)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into client_profiles (actor_id, first_name, last_name, date_of_birth, phone, address, status)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, profile.ActorID, profile.FirstName, profile.LastName, profile.DateOfBirth, profile.Phone, address, profile.Status)
	return mapProfileError(err)
}

func (s *Store) CreateCaregiverProfile(ctx context.Context, profile auth.CaregiverProfile) error {
	address, err := marshalAddress(profile.Address)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into caregiver_profiles (actor_id, first_name, last_name, date_of_birth, phone, address, status)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, profile.ActorID, profile.FirstName, profile.LastName, profile.DateOfBirth, profile.Phone, address, profile.Status)
	return mapProfileError(err)
}

func (s *Store) CreateStaffProfile(ctx context.Context, profile auth.StaffProfile) error {
	_, err := s.db.ExecContext(ctx, `
		insert into staff_profiles (actor_id, first_name, last_name, title, department)
		values ($1, $2, $3, $4, $5)
	`, profile.ActorID, profile.FirstName, profile.LastName, profile.Title, profile.Department)
	return mapProfileError(err)
}

func mapProfileError(err error) error {
	if err == nil {
		return nil
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return auth.ErrAlreadyExists
		case pgErrForeignKeyViolation:
			return auth.ErrNotFound
		}
	}
	return err
}
