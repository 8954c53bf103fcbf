package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"in8/internal/cache"
	"in8/internal/config"
	"in8/internal/metrics"
	"in8/internal/repository"
	"in8/internal/service"
	"in8/internal/transport/rest"
	"in8/internal/transport/ws"
)

const pingTimeout = 5 * time.Second

// App is the wired process: store clients plus every service built on them
type App struct {
	Mongo *mongo.Client
	Redis *redis.Client

	Metrics   *metrics.Metrics
	Auth      *service.AuthService
	Templates *service.TemplateLoader
	Progress  *service.ProgressStore
	Results   *service.ResultService
	Sessions  *service.SessionService
	Stats     *service.StatsService
	Users     *service.UserService
	Guides    *service.GuideService
	Hub       *ws.Hub

	cfg    *config.Config
	logger *zap.Logger
}

// Connect dials MongoDB and Redis, verifies both, and wires the services
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	a := Wire(cfg, mongoClient.Database(cfg.MongoDatabase), rdb, logger)
	a.Mongo = mongoClient
	return a, nil
}

// Wire builds every service over an already-connected database and cache
func Wire(cfg *config.Config, db *mongo.Database, rdb *redis.Client, logger *zap.Logger) *App {
	m := metrics.New()

	progressRepo := repository.NewProgressRepo(db)
	resultRepo := repository.NewResultRepo(db, logger)
	userRepo := repository.NewUserRepo(db, logger)
	templateRepo := repository.NewTemplateRepo(db)

	progressCache := cache.NewProgressCache(rdb, cfg.ProgressTTL)
	templateBackup := cache.NewTemplateBackup(rdb, logger)

	policy := service.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.TemplateFetch.Attempts
	policy.AttemptTimeout = cfg.TemplateFetch.AttemptTimeout
	policy.Backoff = service.LinearBackoff(cfg.TemplateFetch.Backoff)

	hub := ws.NewHub(logger)

	templates := service.NewTemplateLoader(templateRepo, templateBackup, policy, m, logger)
	progress := service.NewProgressStore(progressRepo, progressCache, m, logger)
	results := service.NewResultService(resultRepo, userRepo, m, logger)
	results.SetHistoryLimits(cfg.HistoryDefaultLimit, cfg.HistoryFallbackScan)
	users := service.NewUserService(userRepo, resultRepo, progress, logger)

	sessions := service.NewSessionService(templates, progress, results, cfg.CheckpointTimeout, logger)
	users.SetSessions(sessions)

	// Inject broadcaster (hub implements service.Broadcaster)
	templates.SetBroadcaster(hub)
	results.SetBroadcaster(hub)
	users.SetBroadcaster(hub)

	return &App{
		Redis:     rdb,
		Metrics:   m,
		Auth:      service.NewAuthService(cfg.AdminUsername, cfg.AdminPassword, cfg.JWTSecret, cfg.UserTokenTTL),
		Templates: templates,
		Progress:  progress,
		Results:   results,
		Sessions:  sessions,
		Stats:     service.NewStatsService(resultRepo),
		Users:     users,
		Guides:    service.NewGuideService(),
		Hub:       hub,
		cfg:       cfg,
		logger:    logger,
	}
}

// Container exposes the services to the HTTP router
func (a *App) Container() *rest.Container {
	return &rest.Container{
		AuthService:    a.Auth,
		TemplateLoader: a.Templates,
		SessionService: a.Sessions,
		ResultService:  a.Results,
		StatsService:   a.Stats,
		UserService:    a.Users,
		GuideService:   a.Guides,
		Metrics:        a.Metrics,
		WSHub:          a.Hub,
		AllowedOrigins: a.cfg.AllowedOrigins(),
		Logger:         a.logger,
	}
}

// Close stops the hub and releases the store clients
func (a *App) Close(ctx context.Context) {
	a.Hub.Close()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Warn("closing redis", zap.Error(err))
		}
	}
	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			a.logger.Warn("disconnecting mongo", zap.Error(err))
		}
	}
}
