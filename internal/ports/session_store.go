package ports

import (
	"context"
	"errors"

	"turnkeeper/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists session snapshots between host restarts.
type SessionStore interface {
	// Save writes the snapshot, replacing any previous one for the session.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Load returns ErrSessionNotFound when nothing is stored.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	Delete(ctx context.Context, sessionID string) error
}
