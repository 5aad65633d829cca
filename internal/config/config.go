// Package config assembles the service configuration from environment
// variables through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Account store backends.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Session store backends. SessionAuto follows the account store.
const (
	SessionAuto   = "auto"
	SessionMemory = "memory"
	SessionRedis  = "redis"
	SessionSQL    = "sql"
	SessionJWT    = "jwt"
)

// Avatar storage backends.
const (
	AvatarLocal = "local"
	AvatarS3    = "s3"
)

// Config is the full service configuration.
type Config struct {
	Port           string
	PublicBase     string
	StoreBackend   string
	DataFile       string
	RedisURL       string
	DatabaseDSN    string
	SessionBackend string
	SessionTTL     time.Duration
	JWTSecret      string
	AvatarStorage  string
	UploadsDir     string
	S3             S3
	RabbitMQURL    string
	CORSOrigins    string
	LogLevel       string
	BodyLimitMB    int
}

// S3 holds the avatar bucket settings.
type S3 struct {
	Bucket     string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	PublicBase string
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":3000")
	v.SetDefault("PUBLIC_BASE", "http://localhost:3000")
	v.SetDefault("STORE_BACKEND", StoreFile)
	v.SetDefault("DATA_FILE", "data/users.json")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SESSION_BACKEND", SessionAuto)
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("AVATAR_STORAGE", AvatarLocal)
	v.SetDefault("UPLOADS_DIR", "uploads")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_PUBLIC_BASE", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BODY_LIMIT_MB", 10)
}

// Load reads the configuration from v, with environment variables taking
// precedence over defaults, and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv() // Load environment variables

	cfg := &Config{
		Port:           v.GetString("APP_PORT"),
		PublicBase:     strings.TrimRight(v.GetString("PUBLIC_BASE"), "/"),
		StoreBackend:   strings.ToLower(v.GetString("STORE_BACKEND")),
		DataFile:       v.GetString("DATA_FILE"),
		RedisURL:       v.GetString("REDIS_URL"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		SessionBackend: strings.ToLower(v.GetString("SESSION_BACKEND")),
		SessionTTL:     v.GetDuration("SESSION_TTL"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		AvatarStorage:  strings.ToLower(v.GetString("AVATAR_STORAGE")),
		UploadsDir:     v.GetString("UPLOADS_DIR"),
		S3: S3{
			Bucket:     v.GetString("S3_BUCKET"),
			Region:     v.GetString("S3_REGION"),
			Endpoint:   v.GetString("S3_ENDPOINT"),
			AccessKey:  v.GetString("S3_ACCESS_KEY"),
			SecretKey:  v.GetString("S3_SECRET_KEY"),
			PublicBase: v.GetString("S3_PUBLIC_BASE"),
		},
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
		CORSOrigins: v.GetString("CORS_ORIGINS"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		BodyLimitMB: v.GetInt("BODY_LIMIT_MB"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case StoreFile, StoreRedis, StorePostgres, StoreSQLite, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	if c.StoreBackend == StoreFile && c.DataFile == "" {
		errs = append(errs, errors.New("DATA_FILE is required for the file store"))
	}
	if (c.StoreBackend == StorePostgres || c.StoreBackend == StoreSQLite) && c.DatabaseDSN == "" {
		errs = append(errs, fmt.Errorf("DATABASE_DSN is required for the %s store", c.StoreBackend))
	}

	switch c.SessionBackend {
	case SessionAuto, SessionMemory, SessionRedis, SessionSQL:
	case SessionJWT:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required for jwt sessions"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}
	if c.SessionBackend == SessionSQL && c.StoreBackend != StorePostgres && c.StoreBackend != StoreSQLite {
		errs = append(errs, errors.New("sql sessions need a postgres or sqlite STORE_BACKEND"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	switch c.AvatarStorage {
	case AvatarLocal:
		if c.UploadsDir == "" {
			errs = append(errs, errors.New("UPLOADS_DIR is required for local avatar storage"))
		}
	case AvatarS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for s3 avatar storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AVATAR_STORAGE %q", c.AvatarStorage))
	}

	if c.BodyLimitMB <= 0 {
		errs = append(errs, errors.New("BODY_LIMIT_MB must be positive"))
	}
	return errors.Join(errs...)
}

// BodyLimit returns the request body limit in bytes.
func (c *Config) BodyLimit() int {
	return c.BodyLimitMB * 1024 * 1024
}

// ResolvedSessionBackend turns SessionAuto into a concrete backend for the
// given account store.
func (c *Config) ResolvedSessionBackend(store string) string {
	if c.SessionBackend != SessionAuto {
		return c.SessionBackend
	}
	switch store {
	case StoreRedis:
		return SessionRedis
	case StorePostgres, StoreSQLite:
		return SessionSQL
	default:
		return SessionMemory
	}
}
