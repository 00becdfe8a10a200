package backend

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/config"
	"spendlens/internal/core"
	"spendlens/internal/log"
)

func newTestFactory() Factory {
	return NewFactory(log.New(log.Config{Output: io.Discard}))
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:              "sqlite",
		SQLiteDBPath:             "/tmp/x.db",
		BlobBackend:              "drive",
		DriveFolderID:            "folder",
		GoogleServiceAccountFile: "sa.json",
	}
	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, DriveBlobs, cfg.BlobType)
	assert.Equal(t, "sa.json", cfg.Google.File)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "mongo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	res, err := newTestFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	require.NotNil(t, res.Store)
	assert.NoError(t, res.Store.Ping(context.Background()))
	assert.NoError(t, res.Cleanup())
}

func TestCreateBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "spendlens.db")

	res, err := newTestFactory().CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	id, err := res.Store.CreateExpense(ctx, core.RawExpense{
		OwnerID: "alice", Title: "Pizza", Amount: "12.5", Category: "Food", Date: "2025-03-01",
	})
	require.NoError(t, err)

	got, err := res.Store.ListExpenses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
}

func TestCreateBackend_Invalid(t *testing.T) {
	_, err := newTestFactory().CreateBackend(context.Background(), Config{Type: "sheets"})
	assert.Error(t, err)
}

func TestCreateBlobStore(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory()

	res, err := f.CreateBlobStore(ctx, Config{BlobType: LocalBlobs, BlobDir: t.TempDir(), BlobBaseURL: "/receipts"})
	require.NoError(t, err)
	require.NotNil(t, res.Local)

	url, err := res.Store.Upload(ctx, "receipts/alice/r.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "/receipts/receipts/alice/r.png", url)

	_, err = f.CreateBlobStore(ctx, Config{BlobType: DriveBlobs, DriveFolderID: "folder"})
	assert.Error(t, err, "drive needs credentials")

	_, err = f.CreateBlobStore(ctx, Config{BlobType: "s3"})
	assert.Error(t, err)
}
