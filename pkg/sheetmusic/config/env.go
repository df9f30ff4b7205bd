package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// WithDotEnv loads variables from a .env file into the process environment.
// Variables already set are not overridden. Apply it before WithEnv.
func WithDotEnv(path string) Option {
	return func(c *ServerConfig) error {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv applies environment variable overrides. Every field tagged with
// `env` is read by cleanenv; unset variables keep their current value.
//
// Two URL-style variables are interpreted on top of that:
//
//	DATABASE_URL - "memory", "postgres://...", "postgresql://..." or
//	               "sqlite:///path/to/db" (also "sqlite://:memory:").
//	               The URL scheme selects DATABASE_TYPE.
//	STORAGE_URL  - "memory://", "file:///path/to/data" or
//	               "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true".
//	               The URL scheme selects STORAGE_TYPE.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.UpdateEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		if v, ok := os.LookupEnv("DATABASE_URL"); ok {
			if err := applyDatabaseURL(v, c); err != nil {
				return err
			}
		}

		if v, ok := os.LookupEnv("STORAGE_URL"); ok && v != "" {
			if err := applyStorageURL(v, c); err != nil {
				return err
			}
		}

		return nil
	}
}

// applyDatabaseURL detects the database type from a DATABASE_URL value
func applyDatabaseURL(dbURL string, c *ServerConfig) error {
	switch {
	case dbURL == "" || dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if path == "" {
			return fmt.Errorf("sqlite path cannot be empty in DATABASE_URL")
		}
		c.DatabaseType = "sqlite"
		c.DatabaseURL = path
	case c.DatabaseType == "sqlite":
		// DATABASE_TYPE=sqlite with a bare path
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgresql://...' or 'sqlite://...')", dbURL)
	}
	return nil
}

// applyStorageURL configures the file store from a STORAGE_URL value
func applyStorageURL(storageURL string, c *ServerConfig) error {
	if storageURL == "memory" || storageURL == "memory://" {
		c.Storage.Type = "memory"
		return nil
	}

	u, err := url.Parse(storageURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		path := u.Host + u.Path
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		c.Storage.Type = "fs"
		c.Storage.FS.BaseDir = path
	case "s3":
		if u.Host == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}
		c.Storage.Type = "s3"
		c.Storage.S3.Bucket = u.Host

		query := u.Query()
		if region := query.Get("region"); region != "" {
			c.Storage.S3.Region = region
		}
		if endpoint := query.Get("endpoint"); endpoint != "" {
			c.Storage.S3.Endpoint = endpoint
		}
		if raw := query.Get("path_style"); raw != "" {
			pathStyle, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
			}
			c.Storage.S3.UsePathStyle = pathStyle
		}
	default:
		return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
	}

	return nil
}
