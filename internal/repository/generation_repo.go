package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"worksheet-backend/internal/models"
)

type GenerationRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationRepo(pool *pgxpool.Pool) *GenerationRepo {
	return &GenerationRepo{pool: pool}
}

func (r *GenerationRepo) Record(ctx context.Context, e *models.GenerationEvent) error {
	var worksheet []byte
	if len(e.WorksheetJSON) > 0 {
		worksheet = e.WorksheetJSON
	}

	query := `INSERT INTO generation_events (id, client_id, session_id, grade, subject, topic, difficulty,
			question_count, outcome, error_message, returned_count, worksheet_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.ClientID, e.SessionID, e.Grade, e.Subject, e.Topic, string(e.Difficulty),
		e.QuestionCount, string(e.Outcome), e.ErrorMessage, e.ReturnedCount, worksheet, e.CreatedAt,
	)
	return err
}

// ListByClient returns the newest events first, without worksheet bodies.
func (r *GenerationRepo) ListByClient(ctx context.Context, clientID string, limit int) ([]models.GenerationEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT id, client_id, session_id, grade, subject, topic, difficulty, question_count,
			outcome, error_message, returned_count, created_at
		FROM generation_events WHERE client_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.GenerationEvent
	for rows.Next() {
		var e models.GenerationEvent
		var difficulty, outcome string
		if err := rows.Scan(
			&e.ID, &e.ClientID, &e.SessionID, &e.Grade, &e.Subject, &e.Topic, &difficulty,
			&e.QuestionCount, &outcome, &e.ErrorMessage, &e.ReturnedCount, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.Difficulty = models.Difficulty(difficulty)
		e.Outcome = models.GenerationOutcome(outcome)
		events = append(events, e)
	}
	return events, rows.Err()
}
