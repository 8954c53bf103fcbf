package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"in8/internal/model"
)

const (
	templateBackupKey   = "in8:template:backup"
	templateBackupAtKey = "in8:template:backup_at"
)

// TemplateBackup keeps the last template fetched successfully from the remote store
type TemplateBackup interface {
	Save(ctx context.Context, tpl *model.SurveyTemplate) error
	// Load returns nil, nil when no backup exists.
	Load(ctx context.Context) (*model.SurveyTemplate, time.Time, error)
}

type templateBackup struct {
	client *redis.Client
	now    func() time.Time
	logger *zap.Logger
}

// NewTemplateBackup creates a new template backup cache
func NewTemplateBackup(client *redis.Client, logger *zap.Logger) TemplateBackup {
	return &templateBackup{
		client: client,
		now:    time.Now,
		logger: logger.Named("template_backup"),
	}
}

func (c *templateBackup) Save(ctx context.Context, tpl *model.SurveyTemplate) error {
	data, err := json.Marshal(tpl)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, templateBackupKey, data, 0)
		pipe.Set(ctx, templateBackupAtKey, c.now().UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	return err
}

func (c *templateBackup) Load(ctx context.Context) (*model.SurveyTemplate, time.Time, error) {
	data, err := c.client.Get(ctx, templateBackupKey).Result()
	if err == redis.Nil {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	var tpl model.SurveyTemplate
	if err := json.Unmarshal([]byte(data), &tpl); err != nil {
		return nil, time.Time{}, err
	}

	// The timestamp is informational; a bad one leaves savedAt zero.
	var savedAt time.Time
	raw, err := c.client.Get(ctx, templateBackupAtKey).Result()
	switch {
	case err == redis.Nil:
		c.logger.Debug("template backup has no timestamp")
	case err != nil:
		c.logger.Debug("reading template backup timestamp failed", zap.Error(err))
	default:
		if savedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			c.logger.Debug("template backup timestamp is corrupt", zap.String("raw", raw), zap.Error(err))
		}
	}
	return &tpl, savedAt, nil
}
