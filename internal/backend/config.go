package backend

import (
	"fmt"

	"spendlens/internal/config"
	"spendlens/internal/googleapi"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,

		BlobType:      BlobType(appConfig.BlobBackend),
		BlobDir:       appConfig.BlobDir,
		BlobBaseURL:   appConfig.BlobBaseURL,
		DriveFolderID: appConfig.DriveFolderID,

		Google: googleapi.Source{
			JSON: appConfig.GoogleServiceAccountJSON,
			File: appConfig.GoogleServiceAccountFile,
		},
	}, nil
}

// Validate checks the settings the selected store needs.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	}
	return nil
}

// ValidateBlobs checks the settings the selected receipt store needs.
func (c Config) ValidateBlobs() error {
	switch c.BlobType {
	case LocalBlobs:
		if c.BlobDir == "" {
			return fmt.Errorf("blob directory is required for local receipts")
		}
	case DriveBlobs:
		if c.DriveFolderID == "" {
			return fmt.Errorf("drive folder ID is required for drive receipts")
		}
		if c.Google.JSON == "" && c.Google.File == "" {
			return fmt.Errorf("service account credentials are required for drive receipts")
		}
	default:
		return fmt.Errorf("invalid blob backend: %q", c.BlobType)
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}
