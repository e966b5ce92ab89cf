package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	R2        R2Config        `mapstructure:"r2"`
	AI        AIConfig        `mapstructure:"ai"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Env     string `mapstructure:"env"`
}

// IsProduction reports whether internal error details must be hidden.
func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Env, "production")
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AuthConfig points at the hosted auth service's token signing secret.
type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	CookieName string `mapstructure:"cookie_name"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url"`
	MongoURI string `mapstructure:"mongo_uri"`
	Name     string `mapstructure:"name"`
	Migrate  bool   `mapstructure:"migrate"`
}

// R2Config describes the S3-compatible bucket holding asset files.
type R2Config struct {
	AccountID       string `mapstructure:"account_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	PublicURL       string `mapstructure:"public_url"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
}

// AIConfig configures the optional inference API. Enrichment is disabled
// unless both the account id and the token are set. NSFW scoring also needs
// NSFWModel, a classifier that emits an "nsfw" label.
type AIConfig struct {
	AccountID         string        `mapstructure:"account_id"`
	APIToken          string        `mapstructure:"api_token"`
	BaseURL           string        `mapstructure:"base_url"`
	EmbeddingModel    string        `mapstructure:"embedding_model"`
	CaptionModel      string        `mapstructure:"caption_model"`
	NSFWModel         string        `mapstructure:"nsfw_model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxImageDimension int           `mapstructure:"max_image_dimension"`
}

func (a AIConfig) Enabled() bool {
	return a.AccountID != "" && a.APIToken != ""
}

// RedisConfig is optional; an empty Addr disables the URL cache.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	URLTTL   time.Duration `mapstructure:"url_ttl"`
}

type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

type DownloadsConfig struct {
	AllowAnonymous bool          `mapstructure:"allow_anonymous"`
	URLTTL         time.Duration `mapstructure:"url_ttl"`
}

// LoadConfig reads configuration from a .env file, an optional config.yaml
// in path, and environment variables, in increasing priority.
func LoadConfig(path string) (config Config, err error) {
	// A local .env only fills variables that are not already set
	if err = godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	// r2.bucket_name -> R2_BUCKET_NAME
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	// --- Read Config File ---
	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return config, err
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, err
	}

	if config.R2.Endpoint == "" && config.R2.AccountID != "" {
		config.R2.Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", config.R2.AccountID)
	}
	config.Database.Driver = strings.ToLower(strings.TrimSpace(config.Database.Driver))

	return config, config.Validate()
}

// Every key needs a default so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.cookie_name", "sb-access-token")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "viralpik")
	v.SetDefault("database.migrate", true)

	v.SetDefault("r2.account_id", "")
	v.SetDefault("r2.access_key_id", "")
	v.SetDefault("r2.secret_access_key", "")
	v.SetDefault("r2.bucket_name", "")
	v.SetDefault("r2.public_url", "")
	v.SetDefault("r2.endpoint", "")
	v.SetDefault("r2.region", "auto")

	v.SetDefault("ai.account_id", "")
	v.SetDefault("ai.api_token", "")
	v.SetDefault("ai.base_url", "https://api.cloudflare.com/client/v4")
	v.SetDefault("ai.embedding_model", "@cf/baai/bge-base-en-v1.5")
	v.SetDefault("ai.caption_model", "@cf/llava-hf/llava-1.5-7b-hf")
	v.SetDefault("ai.nsfw_model", "")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.max_image_dimension", 1024)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.url_ttl", "10m")

	v.SetDefault("ratelimit.per_minute", 30)
	v.SetDefault("ratelimit.burst", 5)

	v.SetDefault("downloads.allow_anonymous", false)
	v.SetDefault("downloads.url_ttl", "1h")
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.R2.BucketName == "" {
		return errors.New("r2.bucket_name is required")
	}
	if c.R2.Endpoint == "" {
		return errors.New("r2.endpoint or r2.account_id is required")
	}
	if c.Redis.Addr != "" && c.Redis.URLTTL >= c.Downloads.URLTTL {
		return errors.New("redis.url_ttl must be shorter than downloads.url_ttl")
	}
	return nil
}
