package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port            int      `mapstructure:"port"`
	InternalSecret  string   `mapstructure:"internal_secret"`
	CookieDomain    string   `mapstructure:"cookie_domain"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	MaxResumes      int      `mapstructure:"max_resumes"`
	LoginRatePerHr  int      `mapstructure:"login_rate_per_hour"`
	LoginLockAfter  int      `mapstructure:"login_lock_after"`
	LoginLockTTLMin int      `mapstructure:"login_lock_ttl_min"`
}

// AuthConfig 包含 JWT 密钥与令牌有效期配置。
type AuthConfig struct {
	PrivateKeyPath  string `mapstructure:"private_key_path"`
	PublicKeyPath   string `mapstructure:"public_key_path"`
	AccessTTLMin    int    `mapstructure:"access_ttl_min"`
	RefreshTTLHours int    `mapstructure:"refresh_ttl_hours"`
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

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// UploadConfig 包含头像等用户资产上传的限制。
type UploadConfig struct {
	ClamdAddr        string `mapstructure:"clamd_addr"`
	MaxBytes         int64  `mapstructure:"max_bytes"`
	MaxAssetsPerUser int    `mapstructure:"max_assets_per_user"`
	MaxUploadsPerDay int    `mapstructure:"max_uploads_per_day"`
}

// WorkerConfig 包含导出 Worker 的运行配置。
type WorkerConfig struct {
	Concurrency        int    `mapstructure:"concurrency"`
	InternalAPIBaseURL string `mapstructure:"internal_api_base_url"`
}

// AccessTTL 返回访问令牌有效期。
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLMin) * time.Minute
}

// RefreshTTL 返回刷新令牌有效期。
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLHours) * time.Hour
}

// LoginLockTTL 返回登录失败锁定时长。
func (a APIConfig) LoginLockTTL() time.Duration {
	return time.Duration(a.LoginLockTTLMin) * time.Minute
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

// Addr 返回 host:port 形式的 Redis 地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
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
	v.SetDefault("api.max_resumes", 10)
	v.SetDefault("api.login_rate_per_hour", 10)
	v.SetDefault("api.login_lock_after", 5)
	v.SetDefault("api.login_lock_ttl_min", 15)
	v.SetDefault("auth.private_key_path", "keys/jwt_private.pem")
	v.SetDefault("auth.public_key_path", "keys/jwt_public.pem")
	v.SetDefault("auth.access_ttl_min", 15)
	v.SetDefault("auth.refresh_ttl_hours", 168)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "craftcv")
	v.SetDefault("database.user", "craftcv")
	v.SetDefault("database.password", "craftcv")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("upload.clamd_addr", "")
	v.SetDefault("upload.max_bytes", 5*1024*1024)
	v.SetDefault("upload.max_assets_per_user", 20)
	v.SetDefault("upload.max_uploads_per_day", 50)
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.internal_api_base_url", "http://localhost:8080")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                     "API_PORT",
		"api.internal_secret":          "INTERNAL_API_SECRET",
		"api.cookie_domain":            "COOKIE_DOMAIN",
		"api.allowed_origins":          "ALLOWED_ORIGINS",
		"api.max_resumes":              "MAX_RESUMES_PER_USER",
		"api.login_rate_per_hour":      "LOGIN_RATE_PER_HOUR",
		"api.login_lock_after":         "LOGIN_LOCK_AFTER",
		"api.login_lock_ttl_min":       "LOGIN_LOCK_TTL_MIN",
		"auth.private_key_path":        "JWT_PRIVATE_KEY_PATH",
		"auth.public_key_path":         "JWT_PUBLIC_KEY_PATH",
		"auth.access_ttl_min":          "ACCESS_TOKEN_TTL_MIN",
		"auth.refresh_ttl_hours":       "REFRESH_TOKEN_TTL_HOURS",
		"database.host":                "DATABASE_HOST",
		"database.port":                "DATABASE_PORT",
		"database.name":                "POSTGRES_DB",
		"database.user":                "POSTGRES_USER",
		"database.password":            "POSTGRES_PASSWORD",
		"database.sslmode":             "DATABASE_SSLMODE",
		"redis.host":                   "REDIS_HOST",
		"redis.port":                   "REDIS_PORT",
		"minio.endpoint":               "MINIO_ENDPOINT",
		"minio.public_endpoint":        "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":          "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":      "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                "MINIO_USE_SSL",
		"minio.bucket":                 "MINIO_BUCKET",
		"minio.region":                 "MINIO_REGION",
		"minio.bucket_lookup":          "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":     "MINIO_AUTO_CREATE_BUCKET",
		"upload.clamd_addr":            "CLAMD_ADDR",
		"upload.max_bytes":             "UPLOAD_MAX_BYTES",
		"upload.max_assets_per_user":   "UPLOAD_MAX_ASSETS_PER_USER",
		"upload.max_uploads_per_day":   "UPLOAD_MAX_PER_DAY",
		"worker.concurrency":           "WORKER_CONCURRENCY",
		"worker.internal_api_base_url": "INTERNAL_API_BASE_URL",
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
	if cfg.Auth.AccessTTLMin <= 0 {
		return errors.New("access token ttl must be positive")
	}
	if cfg.Auth.RefreshTTLHours <= 0 {
		return errors.New("refresh token ttl must be positive")
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
	if cfg.Upload.MaxBytes <= 0 {
		return errors.New("upload max bytes must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}
