package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"in8/internal/model"
)

// ProgressRepo is the authoritative store for in-flight survey checkpoints
type ProgressRepo interface {
	Get(ctx context.Context, userID string) (*model.ProgressRecord, error)
	Put(ctx context.Context, rec *model.ProgressRecord) error
	Delete(ctx context.Context, userID string) error
}

type progressRepo struct {
	collection *mongo.Collection
}

// NewProgressRepo creates a new progress repository
func NewProgressRepo(db *mongo.Database) ProgressRepo {
	return &progressRepo{
		collection: db.Collection("survey_progress"),
	}
}

func (r *progressRepo) Get(ctx context.Context, userID string) (*model.ProgressRecord, error) {
	var rec model.ProgressRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put overwrites the user's record; at most one exists per user
func (r *progressRepo) Put(ctx context.Context, rec *model.ProgressRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": rec.UserID}, rec, opts)
	return err
}

func (r *progressRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}
