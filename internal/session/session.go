package session

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MaxTurns is the cap on persisted history length. Truncation drops the
// oldest turns and happens on every write, never on read.
const MaxTurns = 16

// Store provides conversation history keyed by an opaque session id.
// An unknown id is an empty history, not an error; sessions come into
// existence on first write.
type Store interface {
	// Get returns the stored history for the session, or an empty slice
	// when the session is unknown or expired.
	Get(ctx context.Context, sessionID string) ([]Turn, error)
	// Set replaces the session history, truncated to the last MaxTurns.
	Set(ctx context.Context, sessionID string, history []Turn) error
}

// truncate returns the last MaxTurns entries of history.
func truncate(history []Turn) []Turn {
	if len(history) <= MaxTurns {
		return history
	}
	return history[len(history)-MaxTurns:]
}
