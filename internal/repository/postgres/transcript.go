package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/viab/viab-backend/internal/repository"
)

// TranscriptRepository implements repository.TranscriptRepository using PostgreSQL
type TranscriptRepository struct {
	db *sqlx.DB
}

// NewTranscriptRepository creates a new PostgreSQL transcript repository
func NewTranscriptRepository(db *sqlx.DB) repository.TranscriptRepository {
	return &TranscriptRepository{db: db}
}

// Append adds one turn to the session's conversation log
func (r *TranscriptRepository) Append(ctx context.Context, turn *repository.Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	turn.CreatedAt = time.Now()

	query := `
		INSERT INTO shared_storage (id, user_id, session_id, agent, role, content, created_at)
		VALUES (:id, :user_id, :session_id, :agent, :role, :content, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, turn)
	return err
}

// List returns the session's turns in chronological order
func (r *TranscriptRepository) List(ctx context.Context, userID, sessionID string) ([]*repository.Turn, error) {
	var turns []*repository.Turn
	query := `
		SELECT id, user_id, session_id, agent, role, content, created_at
		FROM shared_storage
		WHERE user_id = $1 AND session_id = $2
		ORDER BY created_at
	`

	err := r.db.SelectContext(ctx, &turns, query, userID, sessionID)
	if err != nil {
		return nil, err
	}

	return turns, nil
}

// Purge removes all turns for a session
func (r *TranscriptRepository) Purge(ctx context.Context, userID, sessionID string) error {
	query := `DELETE FROM shared_storage WHERE user_id = $1 AND session_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, sessionID)
	return err
}
