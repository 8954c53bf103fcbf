package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"in8/internal/model"
)

// UserRepo handles per-user summary documents
type UserRepo interface {
	Get(ctx context.Context, userID string) (*model.UserSummary, error)
	// UpsertProfile merges name and login type, keeping counters and createdAt.
	UpsertProfile(ctx context.Context, userID, name, loginType string) error
	// ApplyResult increments surveyCount and records the newest top constitution.
	ApplyResult(ctx context.Context, userID string, top model.ScoreEntry, at time.Time) error
	// SetSummary overwrites the aggregate fields; top and at are nil when no result remains.
	SetSummary(ctx context.Context, userID string, count int64, top *model.ScoreEntry, at *time.Time) error
	List(ctx context.Context) ([]*model.UserSummary, error)
	Delete(ctx context.Context, userID string) error
}

type userRepo struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewUserRepo creates a new user summary repository
func NewUserRepo(db *mongo.Database, logger *zap.Logger) UserRepo {
	repo := &userRepo{
		collection: db.Collection("user_summaries"),
		logger:     logger.Named("user_repo"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), indexEnsureTimeout)
	defer cancel()
	createIndex(ctx, repo.logger, repo.collection, "", bson.D{{Key: "createdAt", Value: -1}}, false)
	return repo
}

func (r *userRepo) Get(ctx context.Context, userID string) (*model.UserSummary, error) {
	var u model.UserSummary
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) UpsertProfile(ctx context.Context, userID, name, loginType string) error {
	now := time.Now()
	set := bson.M{"updatedAt": now}
	if name != "" {
		set["name"] = name
	}
	if loginType != "" {
		set["loginType"] = loginType
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"createdAt": now, "surveyCount": 0},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *userRepo) ApplyResult(ctx context.Context, userID string, top model.ScoreEntry, at time.Time) error {
	update := bson.M{
		"$inc": bson.M{"surveyCount": 1},
		"$set": bson.M{
			"lastConstitution":      top.Constitution,
			"lastConstitutionScore": top.Score,
			"lastSurveyDate":        at,
			"updatedAt":             at,
		},
		"$setOnInsert": bson.M{"createdAt": at},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *userRepo) SetSummary(ctx context.Context, userID string, count int64, top *model.ScoreEntry, at *time.Time) error {
	now := time.Now()
	update := bson.M{
		"$set":         bson.M{"surveyCount": count, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	if top != nil && at != nil {
		update["$set"].(bson.M)["lastConstitution"] = top.Constitution
		update["$set"].(bson.M)["lastConstitutionScore"] = top.Score
		update["$set"].(bson.M)["lastSurveyDate"] = *at
	} else {
		update["$unset"] = bson.M{"lastConstitution": "", "lastConstitutionScore": "", "lastSurveyDate": ""}
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, update, options.Update().SetUpsert(true))
	return err
}

// List returns users newest first, falling back to natural order if the
// sorted query fails.
func (r *userRepo) List(ctx context.Context) ([]*model.UserSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Warn("sorted user listing failed, retrying unordered", zap.Error(err))
		cursor, err = r.collection.Find(ctx, bson.M{})
		if err != nil {
			return nil, err
		}
	}
	defer cursor.Close(ctx)

	var users []*model.UserSummary
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}
