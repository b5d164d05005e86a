package session

import (
	"context"
	"errors"
)

var ErrInvalidSession = errors.New("session id is empty")

// Store is the conversation-history contract consumed by the router.
// Histories are append-only: implementations must never reorder or mutate
// previously appended messages.
type Store interface {
	// History returns the full ordered history for a session. A session id
	// that was never written yields an empty history, not an error.
	History(ctx context.Context, sessionID string) ([]Message, error)
	// Append adds messages at the end of the session's history, creating the
	// session on first use.
	Append(ctx context.Context, sessionID string, msgs ...Message) error
	// Reset drops the session's history.
	Reset(ctx context.Context, sessionID string) error
}
