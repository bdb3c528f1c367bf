package memory

import (
	"context"
	"errors"
	"time"
)

// Scope namespaces memory entries by (user, session). Every entry written
// during a session is attributed to exactly one scope; there is no
// cross-session visibility.
type Scope struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Entry is one consolidated project fact.
type Entry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	WrittenAt time.Time `json:"written_at"`
}

// Store is the shared key-value memory consumed by every agent in a session.
// Writes are idempotent overwrites (last-write-wins); no ordering guarantee
// beyond that is assumed. Values are free-text strings and the store enforces
// no schema.
type Store interface {
	// Put writes or overwrites one entry.
	Put(ctx context.Context, scope Scope, key, value string) error

	// Get retrieves one entry. The second return reports presence; absence
	// is not an error.
	Get(ctx context.Context, scope Scope, key string) (string, bool, error)

	// List returns all entries in the scope.
	List(ctx context.Context, scope Scope) (map[string]string, error)

	// Purge removes every entry in the scope. Invoked only by the admin
	// tooling; sessions are never purged automatically.
	Purge(ctx context.Context, scope Scope) error

	// Close releases any resources held by the store.
	Close() error
}

var (
	ErrInvalidStoreType = errors.New("invalid memory store type")
	ErrInvalidConfig    = errors.New("invalid memory store configuration")
)
