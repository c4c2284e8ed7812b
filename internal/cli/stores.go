package cli

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/portal-rpa/internal/artifacts"
	"github.com/tbourn/portal-rpa/internal/config"
	"github.com/tbourn/portal-rpa/internal/credentials"
	"github.com/tbourn/portal-rpa/internal/repo"
	"github.com/tbourn/portal-rpa/internal/services"
	"github.com/tbourn/portal-rpa/internal/storage"
)

// counterStore is what both counter backends provide.
type counterStore interface {
	services.CounterStore
	services.RecordsStore
}

// openDB opens the configured database and migrates the schema.
func openDB(cfg config.Config) (*gorm.DB, error) {
	dsn := cfg.DBPath
	if cfg.DBDriver == "postgres" {
		dsn = cfg.DatabaseURL
	}
	db, err := repo.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// openCounter returns the counter backend selected by COUNTER_BACKEND. The
// returned close func is never nil.
func openCounter(ctx context.Context, cfg config.Config, db *gorm.DB) (counterStore, func() error, error) {
	switch cfg.CounterBackend {
	case "redis":
		client, err := repo.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		store := repo.NewRedisCounterStore(client)
		if err := store.EnsureCounter(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil
	case "sql", "":
		return repo.NewSQLCounterStore(db), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported counter backend %q", cfg.CounterBackend)
	}
}

// openObjectStore connects to the artifact store selected by STORAGE_BACKEND.
func openObjectStore(ctx context.Context, cfg config.Config) (artifacts.ObjectStore, error) {
	sc := cfg.Storage
	switch sc.Backend {
	case "minio":
		m, err := storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:      sc.MinioEndpoint,
			AccessKey:     sc.MinioAccessKey,
			SecretKey:     sc.MinioSecretKey,
			Bucket:        sc.MinioBucket,
			UseSSL:        sc.MinioUseSSL,
			PublicBaseURL: sc.MinioPublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case "drive", "":
		client, err := credentials.NewProvider(sc.CredentialsFile, sc.TokenFile).Client(ctx)
		if err != nil {
			return nil, fmt.Errorf("drive credentials (run `portal-rpa auth`): %w", err)
		}
		d, err := storage.NewDriveStore(ctx, client, sc.DriveFolderID)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", sc.Backend)
	}
}

var (
	_ counterStore = (*repo.SQLCounterStore)(nil)
	_ counterStore = (*repo.RedisCounterStore)(nil)
)
