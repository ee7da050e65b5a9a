package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const userReturning = `id::text AS id, COALESCE(display_name, '') AS display_name,
	COALESCE(email, '') AS email, COALESCE(phone_number, '') AS phone_number,
	role::text AS role, COALESCE(status, '') AS status,
	location_id::text AS location_id, team_id::text AS team_id`

const defaultUserStatus = "Active"

// ListUsers returns all users with their location and team names, ordered
// by display name.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx, `
SELECT u.id::text AS id, COALESCE(u.display_name, '') AS display_name,
	COALESCE(u.email, '') AS email, COALESCE(u.phone_number, '') AS phone_number,
	u.role::text AS role, COALESCE(u.status, '') AS status,
	u.location_id::text AS location_id, u.team_id::text AS team_id,
	l.name AS location_name, t.name AS team_name
FROM users u
LEFT JOIN locations l ON u.location_id = l.id
LEFT JOIN teams t ON u.team_id = t.id
ORDER BY u.display_name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[User])
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

// CreateUser stores a new user with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, &ValidationError{Field: "password", Message: "must not be empty"}
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = defaultUserStatus
	}

	rows, err := s.db.Query(ctx, `
INSERT INTO users (display_name, email, phone_number, password, role, status, location_id, team_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+userReturning,
		in.DisplayName, in.Email, in.PhoneNumber, hash, string(in.Role), in.Status,
		nullableID(in.LocationID), nullableID(in.TeamID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	user, err := collectUser(rows)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	logAudit(ctx, ActionUserCreate, "user_id", user.ID, "role", string(user.Role))
	return user, nil
}

// UpdateUser replaces a user's profile. The password changes only when a
// new one is supplied.
func (s *Service) UpdateUser(ctx context.Context, id string, in UserInput) (*User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = defaultUserStatus
	}

	var hash *string
	if in.Password != "" {
		h, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		hash = &h
	}

	rows, err := s.db.Query(ctx, `
UPDATE users SET
	display_name = $1, email = $2, phone_number = $3,
	password = COALESCE($4, password), role = $5, status = $6,
	location_id = $7, team_id = $8
WHERE id = $9
RETURNING `+userReturning,
		in.DisplayName, in.Email, in.PhoneNumber, hash, string(in.Role), in.Status,
		nullableID(in.LocationID), nullableID(in.TeamID), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	user, err := collectUser(rows)
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}

	logAudit(ctx, ActionUserUpdate, "user_id", user.ID, "password_changed", hash != nil)
	return user, nil
}

// DeleteUser removes a user.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	logAudit(ctx, ActionUserDelete, "user_id", id)
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func collectUser(rows pgx.Rows) (*User, error) {
	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[User])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}
