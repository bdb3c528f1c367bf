package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/viab/viab-backend/internal/repository"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &SessionRepository{db: db}
}

// Ensure creates the session lazily and refreshes updated_at.
func (r *SessionRepository) Ensure(ctx context.Context, userID, sessionID string) error {
	query := `
		INSERT INTO sessions (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, id)
		DO UPDATE SET updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query, sessionID, userID)
	return err
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, userID, sessionID string) (*repository.Session, error) {
	var session repository.Session
	query := `
		SELECT id, user_id, created_at, updated_at
		FROM sessions
		WHERE id = $1 AND user_id = $2
	`

	err := r.db.GetContext(ctx, &session, query, sessionID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &session, nil
}

// List retrieves all sessions for a user
func (r *SessionRepository) List(ctx context.Context, userID string) ([]*repository.Session, error) {
	var sessions []*repository.Session
	query := `
		SELECT id, user_id, created_at, updated_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	err := r.db.SelectContext(ctx, &sessions, query, userID)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete deletes a session
func (r *SessionRepository) Delete(ctx context.Context, userID, sessionID string) error {
	query := `DELETE FROM sessions WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, sessionID, userID)
	return err
}
