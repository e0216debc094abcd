package flow

import (
	"context"
)

// Repository persists flow sessions. The store is a write-through cache of
// "where is this user in the conversation": last write wins, no locking.
type Repository interface {
	// Load returns the live session for the LINE user id, or
	// database.ErrSessionNotFound when there is none or the stored one has
	// expired (expired rows are deleted as a side effect).
	Load(ctx context.Context, lineUserID string) (*Session, error)
	// Save upserts the session by LINE user id, refreshing ExpiresAt and
	// UpdatedAt from the store's clock and TTL.
	Save(ctx context.Context, s *Session) error
	// Reset saves the idle session, discarding any dialog in progress.
	Reset(ctx context.Context, lineUserID, guardianID string) error
}
