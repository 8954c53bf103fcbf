package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrIndexUnavailable is returned when a query needs an index the store does not have
var ErrIndexUnavailable = errors.New("required index unavailable")

const (
	codeBadValue           = 2
	codeNoQueryExecPlans   = 291
	indexEnsureTimeout     = 10 * time.Second
	resultsByUserIndexName = "userId_1_createdAt_-1"
)

func createIndex(ctx context.Context, logger *zap.Logger, coll *mongo.Collection, name string, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	if name != "" {
		opts.SetName(name)
	}
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		logger.Warn("failed to create index",
			zap.String("collection", coll.Name()),
			zap.String("index", name),
			zap.Error(err))
	}
}

// classifyQueryError maps planner failures caused by a missing hinted index
// to ErrIndexUnavailable so callers can take the unindexed path.
func classifyQueryError(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorCode(codeNoQueryExecPlans) ||
			(se.HasErrorCode(codeBadValue) && se.HasErrorMessage("hint")) {
			return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
	}
	return err
}
