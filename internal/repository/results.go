package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/promptforge/api/internal/models"
)

func (s *Store) SaveResult(ctx context.Context, r models.OptimizationResult) (*models.OptimizationResult, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO optimization_results (id, session_id, original_prompt, stage1_result, stage2_result, stage3_result)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, r.ID, r.SessionID, r.OriginalPrompt, r.Stage1Result, r.Stage2Result, r.Stage3Result).Scan(&r.CreatedAt)
	if err != nil {
		return nil, mapError("save result", err)
	}
	return &r, nil
}

// ListResults returns a session's results, newest first.
func (s *Store) ListResults(ctx context.Context, sessionID uuid.UUID) ([]models.OptimizationResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, original_prompt, stage1_result, stage2_result, stage3_result, created_at
		FROM optimization_results
		WHERE session_id = $1
		ORDER BY created_at DESC
	`, sessionID)
	if err != nil {
		return nil, mapError("list results", err)
	}
	defer rows.Close()

	results := []models.OptimizationResult{}
	for rows.Next() {
		var r models.OptimizationResult
		if err := rows.Scan(&r.ID, &r.SessionID, &r.OriginalPrompt, &r.Stage1Result,
			&r.Stage2Result, &r.Stage3Result, &r.CreatedAt); err != nil {
			return nil, mapError("scan result", err)
		}
		results = append(results, r)
	}
	return results, mapError("list results", rows.Err())
}
