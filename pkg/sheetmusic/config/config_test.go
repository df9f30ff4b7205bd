package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
	memorystorage "github.com/tendant/sheetmusic/pkg/sheetmusic/storage/memory"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "uuid", cfg.Keys.Strategy)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestWithPort(t *testing.T) {
	cfg, err := Load(WithPort("9090"))
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)

	_, err = Load(WithPort(""))
	assert.Error(t, err)
}

func TestWithDatabase(t *testing.T) {
	tests := []struct {
		name      string
		dbType    string
		url       string
		wantError bool
	}{
		{"memory valid", "memory", "", false},
		{"postgres valid", "postgres", "postgresql://localhost/test", false},
		{"sqlite valid", "sqlite", ":memory:", false},
		{"postgres missing url", "postgres", "", true},
		{"invalid type", "mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(WithDatabase(tt.dbType, tt.url))
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dbType, cfg.DatabaseType)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{
			name:    "production needs a secret",
			opts:    []Option{WithEnvironment("production")},
			wantErr: "jwt_secret must be set",
		},
		{
			name: "production with secret",
			opts: []Option{WithEnvironment("production"), WithJWTSecret("prod-secret")},
		},
		{
			name: "s3 needs bucket",
			opts: []Option{func(c *ServerConfig) error {
				c.Storage.Type = "s3"
				return nil
			}},
			wantErr: "bucket is required",
		},
		{
			name:    "unknown key strategy",
			opts:    []Option{WithKeyStrategy("sha1", "")},
			wantErr: "unsupported key strategy",
		},
		{
			name:    "negative rate limit",
			opts:    []Option{WithRateLimit(-1, 0)},
			wantErr: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts...)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheetmusic.toml")
	content := `
port = "7070"
log_level = "debug"
database_type = "sqlite"
database_url = ":memory:"

[storage]
type = "fs"

[storage.fs]
base_dir = "/srv/pdfs"

[keys]
strategy = "gitlike"
prefix = "catalog"

[rate_limit]
requests_per_second = 1.5
burst = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(WithFile(path))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "fs", cfg.Storage.Type)
	assert.Equal(t, "/srv/pdfs", cfg.Storage.FS.BaseDir)
	assert.Equal(t, "gitlike", cfg.Keys.Strategy)
	assert.Equal(t, 1.5, cfg.RateLimit.RequestsPerSecond)
	// untouched sections keep defaults
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
}

func TestWithFile_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheetmusic.toml")
	require.NoError(t, os.WriteFile(path, []byte(`port = "7070"`), 0644))
	t.Setenv("PORT", "6060")

	cfg, err := Load(WithFile(path), WithEnv())
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Port)
}

func TestWithFile_Errors(t *testing.T) {
	_, err := Load(WithFile(filepath.Join(t.TempDir(), "missing.toml")))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "typo.toml")
	require.NoError(t, os.WriteFile(path, []byte(`prot = "7070"`), 0644))
	_, err = Load(WithFile(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
}

func TestBuildService_Memory(t *testing.T) {
	cfg, err := Load(WithDownloadDir(t.TempDir()))
	require.NoError(t, err)

	rt, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)
	defer rt.Close()

	assert.IsType(t, &memorystorage.Backend{}, rt.FileStore)

	created, err := rt.Service.CreateSheetMusic(context.Background(), sheetmusic.CreateSheetMusicRequest{
		Title:  "Nocturne",
		Writer: "Chopin",
		Pdfs: []sheetmusic.FileUpload{
			{FileName: "n.pdf", Reader: strings.NewReader("%PDF-1.4")},
		},
	}, sheetmusic.Member{ID: 1})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestBuildService_SQLiteAndFS(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(
		WithDatabase("sqlite", filepath.Join(dir, "sheetmusic.db")),
		WithFilesystemStorage(filepath.Join(dir, "pdfs"), ""),
		WithKeyStrategy("gitlike", ""),
	)
	require.NoError(t, err)

	rt, err := cfg.BuildService(context.Background(), slog.Default())
	require.NoError(t, err)
	defer rt.Close()

	created, err := rt.Service.CreateSheetMusic(context.Background(), sheetmusic.CreateSheetMusicRequest{
		Title: "Prelude",
		Pdfs: []sheetmusic.FileUpload{
			{FileName: "prelude.pdf", Reader: strings.NewReader("%PDF-1.4")},
		},
	}, sheetmusic.Member{ID: 1})
	require.NoError(t, err)
	require.Len(t, created.Pdfs, 1)
	assert.True(t, strings.HasPrefix(created.Pdfs[0].UniqueName, "pdfs/"))
	assert.FileExists(t, filepath.Join(dir, "pdfs", filepath.FromSlash(created.Pdfs[0].UniqueName)))
}

func TestMigrate_SQLite(t *testing.T) {
	cfg, err := Load(WithDatabase("sqlite", filepath.Join(t.TempDir(), "m.db")))
	require.NoError(t, err)
	require.NoError(t, cfg.Migrate(context.Background()))
	require.NoError(t, cfg.Migrate(context.Background()))
}
