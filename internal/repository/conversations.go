package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/promptforge/api/internal/models"
)

// AddTurn appends a turn numbered after the session's current last turn and
// bumps the session's updated_at.
func (s *Store) AddTurn(ctx context.Context, sessionID uuid.UUID, userMessage, aiResponse string) (*models.Conversation, error) {
	turn := &models.Conversation{
		ID:          uuid.New(),
		SessionID:   sessionID,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
	}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		// Lock the session row so concurrent appends get distinct turn numbers.
		if _, err := tx.Exec(ctx, `SELECT 1 FROM sessions WHERE id = $1 FOR UPDATE`, sessionID); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) + 1 FROM conversations WHERE session_id = $1`, sessionID,
		).Scan(&turn.TurnNumber); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO conversations (id, session_id, turn_number, user_message, ai_response)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`, turn.ID, sessionID, turn.TurnNumber, userMessage, aiResponse).Scan(&turn.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE sessions SET updated_at = NOW() WHERE id = $1`, sessionID)
		return err
	})
	if err != nil {
		return nil, mapError("add turn", err)
	}
	return turn, nil
}

// ListTurns returns a session's turns in turn order.
func (s *Store) ListTurns(ctx context.Context, sessionID uuid.UUID) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, turn_number, user_message, ai_response, created_at
		FROM conversations
		WHERE session_id = $1
		ORDER BY turn_number ASC
	`, sessionID)
	if err != nil {
		return nil, mapError("list turns", err)
	}
	defer rows.Close()

	turns := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.SessionID, &c.TurnNumber, &c.UserMessage, &c.AIResponse, &c.CreatedAt); err != nil {
			return nil, mapError("scan turn", err)
		}
		turns = append(turns, c)
	}
	return turns, mapError("list turns", rows.Err())
}

// RecentUserMessages returns up to limit user messages, oldest first.
func (s *Store) RecentUserMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_message FROM (
			SELECT user_message, turn_number FROM conversations
			WHERE session_id = $1
			ORDER BY turn_number DESC
			LIMIT $2
		) recent ORDER BY turn_number ASC
	`, sessionID, limit)
	if err != nil {
		return nil, mapError("recent user messages", err)
	}
	msgs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return msgs, mapError("recent user messages", err)
}

// ClearTurns deletes every turn of a session and returns how many were removed.
func (s *Store) ClearTurns(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, mapError("clear turns", err)
	}
	return tag.RowsAffected(), nil
}
