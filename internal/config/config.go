package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Render   RenderConfig   `mapstructure:"render"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// PublicBaseURL is the externally reachable origin used for preview channel
	// sockets and for the print page the worker opens in a headless browser.
	PublicBaseURL  string   `mapstructure:"public_base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	// PublicEndpoint is the browser facing origin used to sign download links.
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
	// ExportRetentionDays expires finished exports through a bucket lifecycle rule; 0 keeps them.
	ExportRetentionDays int `mapstructure:"export_retention_days"`
}

// RenderConfig tunes the renderers and the transfer channel.
type RenderConfig struct {
	// FontPath points to the CJK capable font used by the document renderer.
	FontPath         string        `mapstructure:"font_path"`
	ChannelTTL       time.Duration `mapstructure:"channel_ttl"`
	ExportRateLimit  int           `mapstructure:"export_rate_limit"`
	ExportRateWindow time.Duration `mapstructure:"export_rate_window"`
	PrintTimeout     time.Duration `mapstructure:"print_timeout"`
	DownloadURLTTL   time.Duration `mapstructure:"download_url_ttl"`
}

// WorkerConfig contains asynq server options.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ClamdConfig configures the optional antivirus scan of uploaded avatars.
type ClamdConfig struct {
	Address string `mapstructure:"address"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.public_base_url", "http://localhost:8080")
	v.SetDefault("api.allowed_origins", []string{})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "phresume")
	v.SetDefault("database.user", "phresume")
	v.SetDefault("database.password", "phresume")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("minio.export_retention_days", 7)
	v.SetDefault("render.font_path", "")
	v.SetDefault("render.channel_ttl", 30*time.Minute)
	v.SetDefault("render.export_rate_limit", 10)
	v.SetDefault("render.export_rate_window", time.Minute)
	v.SetDefault("render.print_timeout", 90*time.Second)
	v.SetDefault("render.download_url_ttl", 15*time.Minute)
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("clamd.address", "")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                    "API_PORT",
		"api.public_base_url":         "API_PUBLIC_BASE_URL",
		"api.allowed_origins":         "API_ALLOWED_ORIGINS",
		"database.host":               "DATABASE_HOST",
		"database.port":               "DATABASE_PORT",
		"database.name":               "POSTGRES_DB",
		"database.user":               "POSTGRES_USER",
		"database.password":           "POSTGRES_PASSWORD",
		"database.sslmode":            "DATABASE_SSLMODE",
		"redis.host":                  "REDIS_HOST",
		"redis.port":                  "REDIS_PORT",
		"minio.endpoint":              "MINIO_ENDPOINT",
		"minio.access_key_id":         "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":     "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":               "MINIO_USE_SSL",
		"minio.bucket":                "MINIO_BUCKET",
		"minio.region":                "MINIO_REGION",
		"minio.public_endpoint":       "MINIO_PUBLIC_ENDPOINT",
		"minio.bucket_lookup":         "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":    "MINIO_AUTO_CREATE_BUCKET",
		"minio.export_retention_days": "MINIO_EXPORT_RETENTION_DAYS",
		"render.font_path":            "RENDER_FONT_PATH",
		"render.channel_ttl":          "RENDER_CHANNEL_TTL",
		"render.export_rate_limit":    "RENDER_EXPORT_RATE_LIMIT",
		"render.export_rate_window":   "RENDER_EXPORT_RATE_WINDOW",
		"render.print_timeout":        "RENDER_PRINT_TIMEOUT",
		"render.download_url_ttl":     "RENDER_DOWNLOAD_URL_TTL",
		"worker.concurrency":          "WORKER_CONCURRENCY",
		"clamd.address":               "CLAMD_ADDRESS",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if u, err := url.Parse(cfg.API.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("api public base url must be an absolute url")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.MinIO.ExportRetentionDays < 0 {
		return errors.New("minio export retention days must not be negative")
	}
	if cfg.Render.ChannelTTL <= 0 {
		return errors.New("render channel ttl must be positive")
	}
	if cfg.Render.ExportRateLimit <= 0 || cfg.Render.ExportRateWindow <= 0 {
		return errors.New("render export rate limit and window must be positive")
	}
	if cfg.Render.DownloadURLTTL <= 0 {
		return errors.New("render download url ttl must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}
