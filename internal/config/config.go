package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TemplateFetchConfig controls the template loader's retry policy
type TemplateFetchConfig struct {
	Attempts       int           `yaml:"attempts"`
	AttemptTimeout time.Duration `yaml:"attemptTimeout"`
	Backoff        time.Duration `yaml:"backoff"` // multiplied by the attempt number
}

// Config holds process configuration
type Config struct {
	Port          string `yaml:"port"`
	MongoURI      string `yaml:"mongoUri"`
	MongoDatabase string `yaml:"mongoDatabase"`
	RedisAddr     string `yaml:"redisAddr"`
	LogLevel      string `yaml:"logLevel"`

	AdminUsername string        `yaml:"adminUsername"`
	AdminPassword string        `yaml:"-"`
	JWTSecret     string        `yaml:"-"`
	UserTokenTTL  time.Duration `yaml:"userTokenTtl"`

	CORSAllowedOrigins string `yaml:"corsAllowedOrigins"`

	TemplateFetch       TemplateFetchConfig `yaml:"templateFetch"`
	CheckpointTimeout   time.Duration       `yaml:"checkpointTimeout"`
	ProgressTTL         time.Duration       `yaml:"progressTtl"`
	HistoryFallbackScan int                 `yaml:"historyFallbackScan"`
	HistoryDefaultLimit int                 `yaml:"historyDefaultLimit"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:          "8080",
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "in8",
		RedisAddr:     "localhost:6379",
		LogLevel:      "info",

		AdminUsername: "admin",
		AdminPassword: "password123",
		JWTSecret:     "super-secret-key-change-in-production",
		UserTokenTTL:  30 * 24 * time.Hour,

		CORSAllowedOrigins: "*",

		TemplateFetch: TemplateFetchConfig{
			Attempts:       3,
			AttemptTimeout: 10 * time.Second,
			Backoff:        time.Second,
		},
		CheckpointTimeout:   5 * time.Second,
		ProgressTTL:         7 * 24 * time.Hour,
		HistoryFallbackScan: 500,
		HistoryDefaultLimit: 50,
	}
}

// Load reads defaults, then the YAML file named by IN8_CONFIG if set, then
// environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("IN8_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DB", cfg.MongoDatabase)
	cfg.RedisAddr = strings.TrimPrefix(getEnv("REDIS_URI", cfg.RedisAddr), "redis://")
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.AdminUsername = getEnv("ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.CORSAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)

	var err error
	if cfg.UserTokenTTL, err = getEnvDuration("USER_TOKEN_TTL", cfg.UserTokenTTL); err != nil {
		return nil, err
	}
	if cfg.TemplateFetch.Attempts, err = getEnvInt("TEMPLATE_FETCH_ATTEMPTS", cfg.TemplateFetch.Attempts); err != nil {
		return nil, err
	}
	if cfg.TemplateFetch.AttemptTimeout, err = getEnvDuration("TEMPLATE_FETCH_TIMEOUT", cfg.TemplateFetch.AttemptTimeout); err != nil {
		return nil, err
	}
	if cfg.TemplateFetch.Backoff, err = getEnvDuration("TEMPLATE_FETCH_BACKOFF", cfg.TemplateFetch.Backoff); err != nil {
		return nil, err
	}
	if cfg.CheckpointTimeout, err = getEnvDuration("CHECKPOINT_TIMEOUT", cfg.CheckpointTimeout); err != nil {
		return nil, err
	}
	if cfg.ProgressTTL, err = getEnvDuration("PROGRESS_TTL", cfg.ProgressTTL); err != nil {
		return nil, err
	}
	if cfg.HistoryFallbackScan, err = getEnvInt("HISTORY_FALLBACK_SCAN", cfg.HistoryFallbackScan); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.TemplateFetch.Attempts < 1 {
		errs = append(errs, fmt.Errorf("templateFetch.attempts must be >= 1, got %d", c.TemplateFetch.Attempts))
	}
	if c.TemplateFetch.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("templateFetch.attemptTimeout must be positive"))
	}
	if c.TemplateFetch.Backoff < 0 {
		errs = append(errs, errors.New("templateFetch.backoff must not be negative"))
	}
	if c.CheckpointTimeout <= 0 {
		errs = append(errs, errors.New("checkpointTimeout must be positive"))
	}
	if c.HistoryFallbackScan < 1 {
		errs = append(errs, errors.New("historyFallbackScan must be >= 1"))
	}
	if c.HistoryDefaultLimit < 1 {
		errs = append(errs, errors.New("historyDefaultLimit must be >= 1"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret must not be empty"))
	}
	return errors.Join(errs...)
}

// AllowedOrigins splits the comma-separated CORS origin list
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
