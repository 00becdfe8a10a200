package backend

import (
	"context"

	"spendlens/internal/blob"
	"spendlens/internal/googleapi"
	"spendlens/internal/store"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult is a document store and its cleanup.
type BackendResult struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// BlobResult is a receipt store. Local is set when receipts live on disk and
// must be served over HTTP.
type BlobResult struct {
	Store blob.Store
	Local *blob.LocalStore
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateBlobStore(ctx context.Context, config Config) (*BlobResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	BlobType      BlobType
	BlobDir       string
	BlobBaseURL   string
	DriveFolderID string

	Google googleapi.Source
}

// BackendType selects the document store.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// BlobType selects where receipts are stored.
type BlobType string

const (
	LocalBlobs BlobType = "local"
	DriveBlobs BlobType = "drive"
)

func (bt BlobType) IsValid() bool {
	return bt == LocalBlobs || bt == DriveBlobs
}
