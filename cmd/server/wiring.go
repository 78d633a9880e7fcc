package main

import (
	"context"
	"fmt"

	"lockbox/internal/badgerstore"
	"lockbox/internal/config"
	"lockbox/internal/database"
	"lockbox/internal/storage"
	"lockbox/internal/store"
	"lockbox/internal/vault"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func setupLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.DB.Driver {
	case "badger":
		st, err := badgerstore.Open(badgerstore.Options{
			Path:     cfg.DB.BadgerPath,
			InMemory: cfg.DB.InMemory,
			Logger:   logger.Named("badger"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		logger.Info("using badger store", zap.String("path", cfg.DB.BadgerPath), zap.Bool("in_memory", cfg.DB.InMemory))
		return st, nil

	case "postgres":
		if cfg.DB.MigrateOnStart {
			if err := database.Migrate(cfg.DB.Source); err != nil {
				return nil, err
			}
			logger.Info("database migrations applied")
		}

		pool, err := pgxpool.New(ctx, cfg.DB.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("connected to database")
		return database.NewStore(pool), nil
	}
	return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
}

func openBlobStorage(ctx context.Context, cfg *config.Config) (vault.BlobStore, error) {
	switch cfg.Storage.Driver {
	case "s3":
		s3cfg := cfg.Storage.S3
		return storage.NewS3StorageFromConfig(ctx, storage.S3Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			KeyPrefix:       s3cfg.Prefix,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
	case "local":
		return storage.NewLocalStorage(cfg.Storage.Path)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
