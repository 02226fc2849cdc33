package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	pkglogger "github.com/snapfeed/snapfeed-backend/pkg/logger"
)

// Config is the application configuration loaded from configs/config.<env>.yaml
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	CORS      CORSConfig      `yaml:"cors"`
	Storage   StorageConfig   `yaml:"storage"`
	Feed      FeedConfig      `yaml:"feed"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Upload    UploadConfig    `yaml:"upload"`
}

type ServerConfig struct {
	Port int    `yaml:"port" validate:"min=1,max=65535"`
	Mode string `yaml:"mode" validate:"oneof=debug release test"`
	Env  string `yaml:"env"`
	// CrossSiteCookies marks auth cookies SameSite=None and turns on the CSRF guard
	CrossSiteCookies bool `yaml:"cross_site_cookies"`
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver" validate:"oneof=mysql postgres"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	SSLMode         string `yaml:"sslmode"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn int    `yaml:"expires_in"` // seconds
}

type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"` // comma separated
}

// StorageConfig selects where uploaded images live
type StorageConfig struct {
	Provider string `yaml:"provider" validate:"oneof=cloudinary s3"`

	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Folder    string `yaml:"folder"`

	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	CDNURL          string `yaml:"cdn_url"`
	BasePath        string `yaml:"base_path"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

type FeedConfig struct {
	DefaultLimit int `yaml:"default_limit" validate:"min=1"`
	MaxLimit     int `yaml:"max_limit" validate:"gtefield=DefaultLimit"`
}

type RateLimitConfig struct {
	RequestsPerMinute  int `yaml:"requests_per_minute"`
	ReactionsPerMinute int `yaml:"reactions_per_minute"`
}

type UploadConfig struct {
	MaxSizeMB int `yaml:"max_size_mb" validate:"min=1,max=100"`
}

// Load reads the YAML file at path, applies environment overrides and fills defaults.
// A missing file is not an error: env vars and defaults are enough to boot.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets secrets and endpoints come from the environment
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Env, "APP_ENV")
	setInt(&cfg.Server.Port, "PORT")
	setBool(&cfg.Server.CrossSiteCookies, "CROSS_SITE_COOKIES")

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")

	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setString(&cfg.Redis.Host, "REDIS_HOST")
	setInt(&cfg.Redis.Port, "REDIS_PORT")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")

	setString(&cfg.JWT.Secret, "ACCESS_TOKEN_SECRET")
	setString(&cfg.CORS.AllowOrigins, "CORS_ALLOW_ORIGINS")

	setString(&cfg.Storage.Provider, "STORAGE_PROVIDER")
	setString(&cfg.Storage.CloudName, "CLOUDINARY_CLOUD_NAME")
	setString(&cfg.Storage.APIKey, "CLOUDINARY_API_KEY")
	setString(&cfg.Storage.APISecret, "CLOUDINARY_API_SECRET")
	setString(&cfg.Storage.AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&cfg.Storage.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	setString(&cfg.Storage.Bucket, "S3_BUCKET")
	setString(&cfg.Storage.Endpoint, "S3_ENDPOINT")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8081
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "local"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		if cfg.Database.Driver == "postgres" {
			cfg.Database.Port = 5432
		} else {
			cfg.Database.Port = 3306
		}
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 10
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 50
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 300
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}

	if cfg.JWT.ExpiresIn == 0 {
		cfg.JWT.ExpiresIn = 900
	}
	if cfg.CORS.AllowOrigins == "" {
		cfg.CORS.AllowOrigins = "http://localhost:3000"
	}
	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = "cloudinary"
	}
	if cfg.Storage.Folder == "" {
		cfg.Storage.Folder = "snapfeed"
	}

	if cfg.Feed.DefaultLimit == 0 {
		cfg.Feed.DefaultLimit = 12
	}
	if cfg.Feed.MaxLimit == 0 {
		cfg.Feed.MaxLimit = 30
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 300
	}
	if cfg.RateLimit.ReactionsPerMinute == 0 {
		cfg.RateLimit.ReactionsPerMinute = 60
	}
	if cfg.Upload.MaxSizeMB == 0 {
		cfg.Upload.MaxSizeMB = 10
	}
}

var configValidator = validator.New()

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return describeFieldError(fieldErrs[0])
		}
		return err
	}
	if c.JWT.Secret == "" && !c.IsDevelopment() {
		return fmt.Errorf("jwt secret is required (ACCESS_TOKEN_SECRET)")
	}
	return nil
}

func describeFieldError(fe validator.FieldError) error {
	switch fe.StructNamespace() {
	case "Config.Database.Driver":
		return fmt.Errorf("unsupported database driver %q", fe.Value())
	case "Config.Storage.Provider":
		return fmt.Errorf("unsupported storage provider %q", fe.Value())
	case "Config.Feed.MaxLimit":
		return fmt.Errorf("feed max_limit %v is below default_limit", fe.Value())
	}
	return fmt.Errorf("invalid config %s=%v (%s %s)", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param())
}

// IsDevelopment reports whether the app runs in a local or development environment
func (c *Config) IsDevelopment() bool {
	switch c.Server.Env {
	case "local", "dev", "development", "test":
		return true
	}
	return false
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxSizeMB) << 20
}

// AllowOriginList splits the comma separated CORS origins
func (c *Config) AllowOriginList() []string {
	var out []string
	for _, o := range strings.Split(c.CORS.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// GetDSN builds the driver specific connection string
func (d DatabaseConfig) GetDSN() string {
	if d.Driver == "postgres" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:     d.DBName,
			RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
		}
		return u.String()
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// LogResolved logs the effective configuration without secrets
func LogResolved(c *Config) {
	pkglogger.GetLogger().Info().
		Str("env", c.Server.Env).
		Int("port", c.Server.Port).
		Str("db_driver", c.Database.Driver).
		Str("db_host", fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)).
		Str("db_name", c.Database.DBName).
		Bool("redis", c.Redis.Enabled).
		Str("storage", c.Storage.Provider).
		Bool("cross_site_cookies", c.Server.CrossSiteCookies).
		Bool("jwt_secret_set", c.JWT.Secret != "").
		Msg("config resolved")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
