package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/promptforge/api/internal/models"
)

// RegisterUser inserts a user together with their first session.
func (s *Store) RegisterUser(ctx context.Context, username, passwordHash, sessionName string) (*models.User, error) {
	user := &models.User{ID: uuid.New(), Username: username, PasswordHash: passwordHash}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (id, username, password_hash)
			VALUES ($1, $2, $3)
			RETURNING created_at
		`, user.ID, username, passwordHash).Scan(&user.CreatedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO sessions (id, user_id, session_name)
			VALUES ($1, $2, $3)
		`, uuid.New(), user.ID, sessionName)
		return err
	})
	if err != nil {
		return nil, mapError("register user", err)
	}
	return user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at, last_login
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return nil, mapError("get user by username", err)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at, last_login
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return nil, mapError("get user", err)
	}
	return &u, nil
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	return mapError("touch last login", err)
}
