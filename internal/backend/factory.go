package backend

import (
	"context"
	"fmt"

	"spendlens/internal/blob"
	"spendlens/internal/log"
	"spendlens/internal/store/memory"
	"spendlens/internal/store/postgres"
	"spendlens/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*BackendResult, error) {
	s := memory.New()
	f.logger.InfoContext(ctx, "Initialized memory backend")
	return &BackendResult{Store: s, Cleanup: s.Close}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Postgres backend")
	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

// CreateBlobStore implements Factory.CreateBlobStore
func (f *DefaultFactory) CreateBlobStore(ctx context.Context, config Config) (*BlobResult, error) {
	if err := config.ValidateBlobs(); err != nil {
		return nil, err
	}

	switch config.BlobType {
	case LocalBlobs:
		local, err := blob.NewLocalStore(config.BlobDir, config.BlobBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local receipt store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized local receipt store",
			"dir", config.BlobDir, "base_url", config.BlobBaseURL)
		return &BlobResult{Store: local, Local: local}, nil
	case DriveBlobs:
		drive, err := blob.NewDriveStore(ctx, config.DriveFolderID, config.Google)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Drive receipt store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Drive receipt store", "folder_id", config.DriveFolderID)
		return &BlobResult{Store: drive}, nil
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", config.BlobType)
	}
}
