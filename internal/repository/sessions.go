package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/promptforge/api/internal/models"
)

func (s *Store) CreateSession(ctx context.Context, userID uuid.UUID, name, initialRequirement string) (*models.Session, error) {
	sess := &models.Session{
		ID:                 uuid.New(),
		UserID:             userID,
		SessionName:        name,
		InitialRequirement: initialRequirement,
		IsActive:           true,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, session_name, initial_requirement)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, sess.ID, userID, name, initialRequirement).Scan(&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, mapError("create session", err)
	}
	return sess, nil
}

// ListSessions returns the user's active sessions, most recently used first.
func (s *Store) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, session_name, initial_requirement, is_active, created_at, updated_at
		FROM sessions
		WHERE user_id = $1 AND is_active
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, mapError("list sessions", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		var sess models.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.SessionName, &sess.InitialRequirement,
			&sess.IsActive, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, mapError("scan session", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, mapError("list sessions", rows.Err())
}

// GetActiveSession returns an active session. Inactive sessions are reported as ErrNotFound.
func (s *Store) GetActiveSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var sess models.Session
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, session_name, initial_requirement, is_active, created_at, updated_at
		FROM sessions WHERE id = $1 AND is_active
	`, id).Scan(&sess.ID, &sess.UserID, &sess.SessionName, &sess.InitialRequirement,
		&sess.IsActive, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, mapError("get session", err)
	}
	return &sess, nil
}

// DeactivateSession soft-deletes a session owned by userID.
func (s *Store) DeactivateSession(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_active
	`, id, userID)
	if err != nil {
		return mapError("deactivate session", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError("deactivate session", ErrNotFound)
	}
	return nil
}

func (s *Store) RenameSession(ctx context.Context, id uuid.UUID, name string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET session_name = $2, updated_at = NOW() WHERE id = $1
	`, id, name)
	return mapError("rename session", err)
}
