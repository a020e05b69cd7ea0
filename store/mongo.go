package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fitmirrorlabs/fitmirror-backend/models"
)

// MongoProfileStore keeps each profile as a single document keyed by user ID,
// so a ReplaceOne upsert is atomic from the caller's point of view.
type MongoProfileStore struct {
	col *mongo.Collection
}

func NewMongoProfileStore(col *mongo.Collection) *MongoProfileStore {
	return &MongoProfileStore{col: col}
}

func (s *MongoProfileStore) Load(ctx context.Context, userID string) (*models.Profile, error) {
	var rec profileRecord
	err := s.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageError{Op: "load", Err: err}
	}

	migrate(&rec)
	return toProfile(&rec), nil
}

func (s *MongoProfileStore) Save(ctx context.Context, userID string, p *models.Profile) error {
	rec := fromProfile(userID, p)
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": userID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return &models.StorageError{Op: "save", Err: err}
	}
	return nil
}
