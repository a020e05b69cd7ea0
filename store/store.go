// Package store persists one profile record per user and migrates legacy
// record shapes forward on read.
package store

import (
	"context"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
)

// ProfileStore loads and saves the per-user profile record.
//
// Load returns (nil, nil) when no record exists. Save replaces the whole
// record in one operation: either the full profile is durably stored or the
// call reports a *models.StorageError and nothing observable changes.
type ProfileStore interface {
	Load(ctx context.Context, userID string) (*models.Profile, error)
	Save(ctx context.Context, userID string, p *models.Profile) error
}
