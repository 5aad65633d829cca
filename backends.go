package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"devlinks/internal/config"
	"devlinks/internal/logging"
	"devlinks/internal/models"
	"devlinks/internal/repositories"
	"devlinks/internal/sessions"
	"devlinks/internal/storage"
)

const connectTimeout = 5 * time.Second

// backends holds the opened stores and what has to be closed on shutdown.
type backends struct {
	store    string
	accounts repositories.AccountRepository
	sessions sessions.Store
	blobs    storage.BlobStore
	db       *gorm.DB
	redis    *redis.Client
	closers  []func() error
}

func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openBackends opens the account store, the session store and the blob
// store selected by cfg. An unreachable redis or postgres store falls back
// to the flat file.
func openBackends(ctx context.Context, cfg *config.Config, logger logging.Logger) (*backends, error) {
	b := &backends{}

	if err := b.openAccounts(ctx, cfg, logger); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openSessions(ctx, cfg, logger); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openBlobs(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *backends) openAccounts(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		b.store = config.StoreMemory
		b.accounts = repositories.NewMemoryAccountRepository()
		return nil

	case config.StoreRedis:
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err == nil {
			b.store = config.StoreRedis
			b.redis = client
			b.closers = append(b.closers, client.Close)
			b.accounts = repositories.NewRedisAccountRepository(client)
			return nil
		}
		logger.Warn(ctx, "redis unreachable, falling back to file store", "error", err)

	case config.StorePostgres, config.StoreSQLite:
		db, err := openDatabase(ctx, cfg.StoreBackend, cfg.DatabaseDSN)
		if err == nil {
			b.store = cfg.StoreBackend
			b.db = db
			if sqlDB, err := db.DB(); err == nil {
				b.closers = append(b.closers, sqlDB.Close)
			}
			b.accounts = repositories.NewGORMAccountRepository(db)
			return nil
		}
		if cfg.StoreBackend == config.StoreSQLite {
			return err
		}
		logger.Warn(ctx, "postgres unreachable, falling back to file store", "error", err)
	}

	repo, err := repositories.NewFileAccountRepository(cfg.DataFile)
	if err != nil {
		return err
	}
	b.store = config.StoreFile
	b.accounts = repo
	return nil
}

func (b *backends) openSessions(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	switch backend := cfg.ResolvedSessionBackend(b.store); backend {
	case config.SessionJWT:
		b.sessions = sessions.NewJWTStore(cfg.JWTSecret, cfg.SessionTTL)

	case config.SessionRedis:
		if b.redis == nil {
			client, err := connectRedis(ctx, cfg.RedisURL)
			if err != nil {
				logger.Warn(ctx, "redis unreachable, keeping sessions in memory", "error", err)
				b.sessions = sessions.NewMemoryStore(cfg.SessionTTL)
				return nil
			}
			b.redis = client
			b.closers = append(b.closers, client.Close)
		}
		b.sessions = sessions.NewRedisStore(b.redis, cfg.SessionTTL)

	case config.SessionSQL:
		if b.db == nil {
			logger.Warn(ctx, "no database for sql sessions, keeping sessions in memory")
			b.sessions = sessions.NewMemoryStore(cfg.SessionTTL)
			return nil
		}
		b.sessions = sessions.NewGORMStore(b.db, cfg.SessionTTL)

	default:
		b.sessions = sessions.NewMemoryStore(cfg.SessionTTL)
	}
	return nil
}

func (b *backends) openBlobs(ctx context.Context, cfg *config.Config) error {
	if cfg.AvatarStorage == config.AvatarS3 {
		blobs, err := storage.NewS3BlobStore(ctx, storage.S3Config{
			Bucket:     cfg.S3.Bucket,
			Region:     cfg.S3.Region,
			Endpoint:   cfg.S3.Endpoint,
			AccessKey:  cfg.S3.AccessKey,
			SecretKey:  cfg.S3.SecretKey,
			PublicBase: cfg.S3.PublicBase,
		})
		if err != nil {
			return err
		}
		b.blobs = blobs
		return nil
	}

	blobs, err := storage.NewLocalBlobStore(cfg.UploadsDir, cfg.PublicBase)
	if err != nil {
		return err
	}
	b.blobs = blobs
	return nil
}

// localUploadsDir returns the directory to serve under /uploads, if any.
func (b *backends) localUploadsDir() (string, bool) {
	local, ok := b.blobs.(*storage.LocalBlobStore)
	if !ok {
		return "", false
	}
	return local.Dir(), true
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func openDatabase(ctx context.Context, backend, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if backend == config.StoreSQLite {
		if dir := filepath.Dir(dsn); dir != "." && !isURI(dsn) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if backend == config.StoreSQLite {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(&models.Account{}, &models.Session{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return db, nil
}

func isURI(dsn string) bool {
	return len(dsn) >= 5 && dsn[:5] == "file:"
}
