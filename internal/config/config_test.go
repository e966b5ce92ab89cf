package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/viralpik")
	t.Setenv("R2_ACCOUNT_ID", "acct123")
	t.Setenv("R2_BUCKET_NAME", "assets")
}

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "sb-access-token", cfg.Auth.CookieName)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "assets", cfg.R2.BucketName)
	assert.Equal(t, "auto", cfg.R2.Region)
	assert.Equal(t, "https://acct123.r2.cloudflarestorage.com", cfg.R2.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, time.Hour, cfg.Downloads.URLTTL)
	assert.False(t, cfg.AI.Enabled())
	assert.False(t, cfg.Downloads.AllowAnonymous)
}

func TestLoadConfig_FileThenEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	dir := t.TempDir()
	yaml := "server:\n  address: \":9000\"\n  env: production\nai:\n  account_id: a\n  api_token: tok\n  timeout: 5s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("SERVER_ADDRESS", ":7000")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.True(t, cfg.Server.IsProduction())
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("R2_ENDPOINT", "http://localhost:9000")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("R2_BUCKET_NAME=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("R2_BUCKET_NAME") })

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.R2.BucketName)
	assert.Equal(t, "http://localhost:9000", cfg.R2.Endpoint)
}

func TestValidate(t *testing.T) {
	base := Config{
		Auth:      AuthConfig{JWTSecret: "s"},
		Database:  DatabaseConfig{Driver: DriverMemory},
		R2:        R2Config{BucketName: "b", Endpoint: "http://r2"},
		Downloads: DownloadsConfig{URLTTL: time.Hour},
	}
	require.NoError(t, base.Validate())

	noSecret := base
	noSecret.Auth.JWTSecret = ""
	assert.Error(t, noSecret.Validate())

	pgNoURL := base
	pgNoURL.Database.Driver = DriverPostgres
	assert.Error(t, pgNoURL.Validate())

	unknown := base
	unknown.Database.Driver = "sqlite"
	assert.Error(t, unknown.Validate())

	longCache := base
	longCache.Redis = RedisConfig{Addr: "localhost:6379", URLTTL: 2 * time.Hour}
	assert.Error(t, longCache.Validate())
}
