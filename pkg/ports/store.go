package ports

import (
	"context"

	"github.com/espalierhq/espalier/pkg/domain"
)

// SessionStore persists the minimal restart state of durable sessions, keyed
// by actor. A store failure while saving must not abort the session; the
// engine falls back to non-durable operation instead.
type SessionStore interface {
	// Save persists the record for the actor key, overwriting any previous one.
	Save(ctx context.Context, actorKey string, rec *domain.Record) error

	// Load retrieves the record for the actor key.
	// Returns domain.ErrSessionNotFound if none exists.
	Load(ctx context.Context, actorKey string) (*domain.Record, error)

	// Delete removes the record for the actor key.
	Delete(ctx context.Context, actorKey string) error
}
