package ports

import (
	"context"

	"github.com/utopium/chatflow/pkg/domain"
)

// StateStore defines the interface for persisting conversations.
// A session is two entries, the state and the transcript, written together.
type StateStore interface {
	// Save overwrites both entries of the session.
	Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error

	// Load retrieves both entries of the session.
	// Returns domain.ErrSessionNotFound if either entry is missing and an error
	// wrapping domain.ErrCorruptState if the state entry does not decode.
	// Corrupt entries are left in place.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	// Delete removes both entries. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of the stored sessions.
	List(ctx context.Context) ([]string, error)
}
