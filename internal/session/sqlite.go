package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/techmentor/gateway/internal/db"
)

// SQLiteStore is the durable session store. Histories are stored as a JSON
// array of {role, content} objects and expire after a fixed TTL; expired rows
// are treated as absent and cleaned up lazily on read.
//
// Writes to the same session are not serialized: two concurrent requests on
// one session race and the last write wins. This mirrors the behavior the
// rest of the gateway is built around; callers must not rely on read-modify-
// write atomicity here.
type SQLiteStore struct {
	db  *db.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore creates a durable store with the given TTL. A TTL of zero
// or less falls back to 24 hours.
func NewSQLiteStore(database *db.DB, ttl time.Duration) *SQLiteStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SQLiteStore{db: database, ttl: ttl, now: time.Now}
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) ([]Turn, error) {
	var raw string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT history, expires_at FROM sessions WHERE id = ?`, sessionID,
	).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return []Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: reading %q: %w", sessionID, err)
	}

	if expiresAt <= s.now().Unix() {
		// Lazy expiry: the row is dead, drop it best-effort.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
		return []Turn{}, nil
	}

	var history []Turn
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("session: decoding history for %q: %w", sessionID, err)
	}
	return history, nil
}

func (s *SQLiteStore) Set(ctx context.Context, sessionID string, history []Turn) error {
	history = truncate(history)
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("session: encoding history for %q: %w", sessionID, err)
	}

	expiresAt := s.now().Add(s.ttl).Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, history, updated_at, expires_at)
		VALUES (?, ?, datetime('now'), ?)
		ON CONFLICT(id) DO UPDATE SET
			history = excluded.history,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at`,
		sessionID, string(raw), expiresAt)
	if err != nil {
		return fmt.Errorf("session: writing %q: %w", sessionID, err)
	}
	return nil
}
