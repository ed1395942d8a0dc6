package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"clinic-appointments-api/internal/model"
)

// CreateUser persists a new user and assigns its id. Returns
// ErrDuplicateEmail when the email is already registered.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, secret, role) VALUES ($1,$2,$3,$4)
		 RETURNING id, created_at`,
		u.Name, u.Email, u.Secret, u.Role,
	).Scan(&u.ID, &u.CreatedAt)
	if pgErrCode(err) == codeUniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

// UserByEmail does an exact-match lookup, including the stored secret hash.
func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, secret, role, created_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Secret, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, secret, role, created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Secret, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns every user projected without the secret, in insertion
// order.
func (s *Store) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, role FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PublicUser
	for rows.Next() {
		var u model.PublicUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
