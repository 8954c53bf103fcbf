package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"in8/internal/model"
)

// ProgressCache is the fast local copy of a user's in-flight checkpoint
type ProgressCache interface {
	Get(ctx context.Context, userID string) (*model.ProgressRecord, error)
	Set(ctx context.Context, rec *model.ProgressRecord) error
	Delete(ctx context.Context, userID string) error
}

type progressCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProgressCache creates a new progress cache; ttl <= 0 keeps records until cleared
func NewProgressCache(client *redis.Client, ttl time.Duration) ProgressCache {
	return &progressCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *progressCache) key(userID string) string {
	return fmt.Sprintf("in8:progress:%s", userID)
}

func (c *progressCache) Get(ctx context.Context, userID string) (*model.ProgressRecord, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec model.ProgressRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *progressCache) Set(ctx context.Context, rec *model.ProgressRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.key(rec.UserID), data, ttl).Err()
}

func (c *progressCache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}
