package store

import (
	"context"
	"sync"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
)

// MemoryProfileStore is an in-process ProfileStore for tests and local runs
// without Mongo. It goes through the same record/migration path as the Mongo
// store.
type MemoryProfileStore struct {
	mu   sync.Mutex
	recs map[string]profileRecord

	// SaveErr, when set, makes the next Save fail with a StorageError
	// wrapping it. Used to exercise write-failure policy.
	SaveErr error
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{recs: make(map[string]profileRecord)}
}

func (s *MemoryProfileStore) Load(ctx context.Context, userID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[userID]
	if !ok {
		return nil, nil
	}
	migrate(&rec)
	return toProfile(&rec), nil
}

func (s *MemoryProfileStore) Save(ctx context.Context, userID string, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		err := s.SaveErr
		s.SaveErr = nil
		return &models.StorageError{Op: "save", Err: err}
	}
	s.recs[userID] = fromProfile(userID, p)
	return nil
}

// SeedRecordVersion stores a raw legacy-shaped record so tests can drive the
// migration path through Load.
func (s *MemoryProfileStore) SeedRecordVersion(userID string, version int, photos []models.ImageFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recs[userID] = profileRecord{
		UserID:        userID,
		SchemaVersion: version,
		Photos:        photos,
	}
}
