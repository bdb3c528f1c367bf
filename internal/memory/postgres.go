package memory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// postgresStore implements Store on the shared_memory table. Overwrites use
// an upsert on the (user_id, session_id, key) unique constraint so writes
// stay idempotent under retries.
type postgresStore struct {
	db *sqlx.DB
}

// Put implements Store.
func (s *postgresStore) Put(ctx context.Context, scope Scope, key, value string) error {
	query := `
		INSERT INTO shared_memory (user_id, session_id, key, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, session_id, key)
		DO UPDATE SET
			value = EXCLUDED.value,
			written_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query, scope.UserID, scope.SessionID, key, value)
	if err != nil {
		return fmt.Errorf("failed to store memory entry: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *postgresStore) Get(ctx context.Context, scope Scope, key string) (string, bool, error) {
	var value string
	query := `
		SELECT value FROM shared_memory
		WHERE user_id = $1 AND session_id = $2 AND key = $3
	`

	err := s.db.GetContext(ctx, &value, query, scope.UserID, scope.SessionID, key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get memory entry: %w", err)
	}
	return value, true, nil
}

// List implements Store.
func (s *postgresStore) List(ctx context.Context, scope Scope) (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	query := `
		SELECT key, value FROM shared_memory
		WHERE user_id = $1 AND session_id = $2
		ORDER BY written_at
	`

	err := s.db.SelectContext(ctx, &rows, query, scope.UserID, scope.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memory entries: %w", err)
	}

	entries := make(map[string]string, len(rows))
	for _, row := range rows {
		entries[row.Key] = row.Value
	}
	return entries, nil
}

// Purge implements Store.
func (s *postgresStore) Purge(ctx context.Context, scope Scope) error {
	query := `DELETE FROM shared_memory WHERE user_id = $1 AND session_id = $2`

	_, err := s.db.ExecContext(ctx, query, scope.UserID, scope.SessionID)
	if err != nil {
		return fmt.Errorf("failed to purge session memory: %w", err)
	}
	return nil
}

// Close implements Store. The connection is owned by the caller.
func (s *postgresStore) Close() error {
	return nil
}
