// Package store persists run records and serves per-user history queries.
// Records are append-only: the service never updates or deletes them.
package store

import (
	"context"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

// Store is the persistence interface. Queries are always scoped to one
// owning-user identifier.
type Store interface {
	// SaveRun appends a run record.
	SaveRun(ctx context.Context, run *domain.PersistedRun) error
	// LatestRun returns the user's most recent run, or domain.ErrNotFound.
	LatestRun(ctx context.Context, userID string) (*domain.PersistedRun, error)
	// LatestRunByDescription returns the user's most recent run for a
	// given description, or domain.ErrNotFound.
	LatestRunByDescription(ctx context.Context, userID, description string) (*domain.PersistedRun, error)
	// Close releases the store's resources.
	Close() error
}
