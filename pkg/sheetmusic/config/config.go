package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
	redissink "github.com/tendant/sheetmusic/pkg/sheetmusic/events/redis"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/objectkey"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/repo/memory"
	repopg "github.com/tendant/sheetmusic/pkg/sheetmusic/repo/postgres"
	reposqlite "github.com/tendant/sheetmusic/pkg/sheetmusic/repo/sqlite"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/resource"
	fsstorage "github.com/tendant/sheetmusic/pkg/sheetmusic/storage/fs"
	memorystorage "github.com/tendant/sheetmusic/pkg/sheetmusic/storage/memory"
	s3storage "github.com/tendant/sheetmusic/pkg/sheetmusic/storage/s3"
)

// DevelopmentJWTSecret is the signing secret used when none is configured.
// It is rejected in production.
const DevelopmentJWTSecret = "development-secret"

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		LogLevel:     "info",
		DatabaseType: "memory",
		DBSchema:     "sheetmusic",
		AutoMigrate:  true,
		Storage: StorageConfig{
			Type: "memory",
			FS: FSConfig{
				BaseDir: "./data/storage",
			},
			S3: S3Config{
				Region:          "us-east-1",
				PresignDuration: 3600,
				SSEAlgorithm:    "AES256",
			},
		},
		Keys: KeyConfig{
			Strategy: "uuid",
		},
		Events: EventConfig{
			Channel:    redissink.DefaultChannel,
			LogEnabled: true,
		},
		Auth: AuthConfig{
			JWTSecret: DevelopmentJWTSecret,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
		DownloadDir: ".",
	}
}

// ServerConfig represents configuration for the sheet music service
type ServerConfig struct {
	Port        string `toml:"port" env:"PORT"`
	Environment string `toml:"environment" env:"ENVIRONMENT"` // development, production, testing
	LogLevel    string `toml:"log_level" env:"LOG_LEVEL"`

	// Database configuration
	DatabaseURL  string `toml:"database_url" env:"DATABASE_URL"`
	DatabaseType string `toml:"database_type" env:"DATABASE_TYPE"` // "memory", "postgres", "sqlite"
	DBSchema     string `toml:"db_schema" env:"DB_SCHEMA"`         // Postgres schema to use (default: sheetmusic)
	AutoMigrate  bool   `toml:"auto_migrate" env:"AUTO_MIGRATE"`

	Storage   StorageConfig   `toml:"storage"`
	Keys      KeyConfig       `toml:"keys"`
	Events    EventConfig     `toml:"events"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`

	// DownloadDir receives files fetched by DownloadObject
	DownloadDir string `toml:"download_dir" env:"DOWNLOAD_DIR"`
}

// StorageConfig selects and configures the pdf file store
type StorageConfig struct {
	Type string   `toml:"type" env:"STORAGE_TYPE"` // "memory", "fs", "s3"
	FS   FSConfig `toml:"fs"`
	S3   S3Config `toml:"s3"`
}

// FSConfig configures the filesystem store
type FSConfig struct {
	BaseDir   string `toml:"base_dir" env:"FS_BASE_DIR"`
	URLPrefix string `toml:"url_prefix" env:"FS_URL_PREFIX"`
}

// S3Config configures the S3 store and the s3:// resource loader
type S3Config struct {
	Bucket                 string `toml:"bucket" env:"S3_BUCKET"`
	Region                 string `toml:"region" env:"S3_REGION"`
	Endpoint               string `toml:"endpoint" env:"S3_ENDPOINT"`
	AccessKeyID            string `toml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey        string `toml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle           bool   `toml:"use_path_style" env:"S3_USE_PATH_STYLE"`
	PresignDuration        int    `toml:"presign_duration" env:"S3_PRESIGN_DURATION"`
	CreateBucketIfNotExist bool   `toml:"create_bucket_if_not_exist" env:"S3_CREATE_BUCKET_IF_NOT_EXIST"`
	EnableSSE              bool   `toml:"enable_sse" env:"S3_ENABLE_SSE"`
	SSEAlgorithm           string `toml:"sse_algorithm" env:"S3_SSE_ALGORITHM"`
	SSEKMSKeyID            string `toml:"sse_kms_key_id" env:"S3_SSE_KMS_KEY_ID"`
}

// KeyConfig selects how pdf unique names are generated
type KeyConfig struct {
	Strategy string `toml:"strategy" env:"KEY_STRATEGY"` // "uuid", "gitlike"
	Prefix   string `toml:"prefix" env:"KEY_PREFIX"`
}

// EventConfig configures lifecycle notifications
type EventConfig struct {
	RedisURL   string `toml:"redis_url" env:"REDIS_URL"`
	Channel    string `toml:"channel" env:"REDIS_CHANNEL"`
	LogEnabled bool   `toml:"log_enabled" env:"EVENT_LOGGING"`
}

// AuthConfig configures bearer token verification
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret" env:"JWT_SECRET"`
}

// RateLimitConfig limits mutating requests per client. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int     `toml:"burst" env:"RATE_LIMIT_BURST"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case "memory":
	case "postgres", "sqlite":
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	default:
		return errors.New("database_type must be 'memory', 'postgres' or 'sqlite'")
	}

	switch c.Storage.Type {
	case "memory":
	case "fs":
		if c.Storage.FS.BaseDir == "" {
			return errors.New("storage.fs.base_dir is required when using fs storage")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.Keys.Strategy != "" && c.Keys.Strategy != "uuid" && c.Keys.Strategy != "gitlike" {
		return fmt.Errorf("unsupported key strategy: %s", c.Keys.Strategy)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.Environment == "production" && c.Auth.JWTSecret == DevelopmentJWTSecret {
		return errors.New("jwt_secret must be set in production")
	}

	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limit values must not be negative")
	}

	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Runtime holds a built service and the resources it depends on
type Runtime struct {
	Service    sheetmusic.Service
	Repository sheetmusic.Repository
	FileStore  sheetmusic.FileStore

	closers []func()
}

// Close releases database and broker connections in reverse build order
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// BuildService creates the service and its collaborators from the configuration
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{}

	repo, err := c.buildRepository(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	rt.Repository = repo

	store, err := c.buildFileStore(ctx)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build file store: %w", err)
	}
	rt.FileStore = store

	loader, err := c.buildResourceLoader(ctx, store)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build resource loader: %w", err)
	}

	sink, err := c.buildEventSink(ctx, rt, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build event sink: %w", err)
	}

	keys, err := objectkey.New(c.Keys.Strategy, c.Keys.Prefix)
	if err != nil {
		rt.Close()
		return nil, err
	}

	svc, err := sheetmusic.New(
		sheetmusic.WithRepository(repo),
		sheetmusic.WithFileStore(store),
		sheetmusic.WithResourceLoader(loader),
		sheetmusic.WithEventSink(sink),
		sheetmusic.WithKeyGenerator(keys),
		sheetmusic.WithLogger(logger),
		sheetmusic.WithDownloadDir(c.DownloadDir),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc

	return rt, nil
}

type schemaRepository interface {
	sheetmusic.Repository
	EnsureSchema(ctx context.Context) error
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, rt *Runtime) (sheetmusic.Repository, error) {
	var repo schemaRepository

	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := c.newPostgresPool(ctx)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		repo = repopg.NewWithPool(pool)
	case "sqlite":
		db, err := reposqlite.Open(c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { db.Close() })
		repo = reposqlite.New(db)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	if c.AutoMigrate {
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func (c *ServerConfig) newPostgresPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	// Optionally set search_path for the connection
	if schema := c.DBSchema; schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if _, err := conn.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
				return err
			}
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// buildFileStore creates the pdf store based on the configuration
func (c *ServerConfig) buildFileStore(ctx context.Context) (sheetmusic.FileStore, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.Storage.FS.BaseDir,
			URLPrefix: c.Storage.FS.URLPrefix,
		})
	case "s3":
		return s3storage.New(ctx, c.s3Config())
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}

func (c *ServerConfig) buildResourceLoader(ctx context.Context, store sheetmusic.FileStore) (sheetmusic.ResourceLoader, error) {
	if s3Store, ok := store.(*s3storage.Backend); ok {
		return resource.NewLoader(resource.WithS3Client(s3Store.Client())), nil
	}

	client, err := s3storage.NewClient(ctx, c.s3Config())
	if err != nil {
		return nil, err
	}
	return resource.NewLoader(resource.WithS3Client(client)), nil
}

func (c *ServerConfig) buildEventSink(ctx context.Context, rt *Runtime, logger *slog.Logger) (sheetmusic.EventSink, error) {
	if c.Events.RedisURL != "" {
		client, err := redissink.NewClient(ctx, c.Events.RedisURL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { client.Close() })
		return redissink.NewSink(client, c.Events.Channel), nil
	}
	if c.Events.LogEnabled {
		return sheetmusic.NewLogEventSink(logger), nil
	}
	return sheetmusic.NewNoopEventSink(), nil
}

// Migrate creates the relational schema of the configured database
func (c *ServerConfig) Migrate(ctx context.Context) error {
	cfg := *c
	cfg.AutoMigrate = true
	rt := &Runtime{}
	defer rt.Close()

	_, err := cfg.buildRepository(ctx, rt)
	return err
}

func (c *ServerConfig) s3Config() s3storage.Config {
	return s3storage.Config{
		Region:                 c.Storage.S3.Region,
		Bucket:                 c.Storage.S3.Bucket,
		AccessKeyID:            c.Storage.S3.AccessKeyID,
		SecretAccessKey:        c.Storage.S3.SecretAccessKey,
		Endpoint:               c.Storage.S3.Endpoint,
		UsePathStyle:           c.Storage.S3.UsePathStyle,
		PresignDuration:        c.Storage.S3.PresignDuration,
		EnableSSE:              c.Storage.S3.EnableSSE,
		SSEAlgorithm:           c.Storage.S3.SSEAlgorithm,
		SSEKMSKeyID:            c.Storage.S3.SSEKMSKeyID,
		CreateBucketIfNotExist: c.Storage.S3.CreateBucketIfNotExist,
	}
}
