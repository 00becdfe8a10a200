// Package googleapi loads service account credentials shared by the Drive
// and Sheets clients.
package googleapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"google.golang.org/api/option"
)

var ErrNoCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

// Source names where service account credentials come from. Inline JSON
// wins over a file path.
type Source struct {
	JSON string
	File string
}

// SourceFromEnv reads GOOGLE_SERVICE_ACCOUNT_JSON and
// GOOGLE_SERVICE_ACCOUNT_FILE, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func SourceFromEnv() Source {
	s := Source{
		JSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		File: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if s.JSON == "" && s.File == "" {
		s.File = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return s
}

func (s Source) IsZero() bool {
	return s.JSON == "" && s.File == ""
}

// Load returns the raw credentials JSON.
func (s Source) Load(ctx context.Context) ([]byte, error) {
	switch {
	case s.JSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(s.JSON), nil
	case s.File != "":
		b, err := os.ReadFile(s.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", s.File, "size", len(b))
		return b, nil
	default:
		return nil, ErrNoCredentials
	}
}

// ClientOptions loads the credentials and scopes them for a Google API client.
func (s Source) ClientOptions(ctx context.Context, scopes ...string) ([]option.ClientOption, error) {
	creds, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{
		option.WithCredentialsJSON(creds),
		option.WithScopes(scopes...),
	}, nil
}
