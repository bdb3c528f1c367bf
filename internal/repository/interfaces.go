package repository

import (
	"context"
	"time"
)

// Session is the (user, conversation) scope that memory and transcripts are
// grouped under. Sessions are created lazily on first use and never expire
// on their own.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Turn is one transcript row in a session's ordered conversation log.
type Turn struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Agent     string    `db:"agent" json:"agent"`
	Role      string    `db:"role" json:"role"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionRepository manages session records.
type SessionRepository interface {
	// Ensure creates the session if it does not exist and bumps its
	// updated_at either way.
	Ensure(ctx context.Context, userID, sessionID string) error

	Get(ctx context.Context, userID, sessionID string) (*Session, error)
	List(ctx context.Context, userID string) ([]*Session, error)
	Delete(ctx context.Context, userID, sessionID string) error
}

// TranscriptRepository persists raw conversation turns (the shared_storage
// namespace).
type TranscriptRepository interface {
	Append(ctx context.Context, turn *Turn) error
	List(ctx context.Context, userID, sessionID string) ([]*Turn, error)
	Purge(ctx context.Context, userID, sessionID string) error
}
