package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"in8/internal/model"
)

// ResultRepo handles the append-only survey result history
type ResultRepo interface {
	Add(ctx context.Context, res *model.StoredResult) (string, error)
	// ListByUser runs the indexed history query, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.StoredResult, error)
	// ListRecent reads the newest results across all users without the per-user index.
	ListRecent(ctx context.Context, limit int) ([]*model.StoredResult, error)
	LatestByUser(ctx context.Context, userID string) (*model.StoredResult, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	// CountByTop groups every stored result by its top constitution.
	CountByTop(ctx context.Context) (map[model.ConstitutionName]int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type resultRepo struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewResultRepo creates a new result repository and ensures its indexes
func NewResultRepo(db *mongo.Database, logger *zap.Logger) ResultRepo {
	repo := &resultRepo{
		collection: db.Collection("survey_results"),
		logger:     logger.Named("result_repo"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), indexEnsureTimeout)
	defer cancel()
	repo.ensureIndexes(ctx)
	return repo
}

func (r *resultRepo) ensureIndexes(ctx context.Context) {
	createIndex(ctx, r.logger, r.collection, resultsByUserIndexName, bson.D{
		{Key: "userId", Value: 1},
		{Key: "createdAt", Value: -1},
	}, false)
	createIndex(ctx, r.logger, r.collection, "", bson.D{{Key: "createdAt", Value: -1}}, false)
	r.logger.Debug("result indexes ensured")
}

func (r *resultRepo) Add(ctx context.Context, res *model.StoredResult) (string, error) {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}
	res.ID = ""

	inserted, err := r.collection.InsertOne(ctx, res)
	if err != nil {
		return "", err
	}
	oid, ok := inserted.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	res.ID = oid.Hex()
	return res.ID, nil
}

func (r *resultRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.StoredResult, error) {
	opts := options.Find().
		SetHint(resultsByUserIndexName).
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	return decodeResults(ctx, cursor)
}

func (r *resultRepo) ListRecent(ctx context.Context, limit int) ([]*model.StoredResult, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return decodeResults(ctx, cursor)
}

func (r *resultRepo) LatestByUser(ctx context.Context, userID string) (*model.StoredResult, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	var res model.StoredResult
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *resultRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"userId": userID})
}

func (r *resultRepo) CountByTop(ctx context.Context) (map[model.ConstitutionName]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$topConstitution.constitution"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Constitution model.ConstitutionName `bson:"_id"`
		Count        int64                  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[model.ConstitutionName]int64, len(rows))
	for _, row := range rows {
		counts[row.Constitution] = row.Count
	}
	return counts, nil
}

// DeleteByUser removes the user's whole history in one batch
func (r *resultRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func decodeResults(ctx context.Context, cursor *mongo.Cursor) ([]*model.StoredResult, error) {
	defer cursor.Close(ctx)

	var results []*model.StoredResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
