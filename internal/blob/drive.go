package blob

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	gcreds "spendlens/internal/googleapi"
)

// DriveStore keeps blobs as files in one Google Drive folder. Each file is
// named after its key and readable by anyone holding its link.
type DriveStore struct {
	svc      *drive.Service
	folderID string
}

var _ Store = (*DriveStore)(nil)

func NewDriveStore(ctx context.Context, folderID string, src gcreds.Source, extra ...option.ClientOption) (*DriveStore, error) {
	opts, err := src.ClientOptions(ctx, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("drive credentials: %w", err)
	}
	return NewDriveStoreWithOptions(ctx, folderID, append(opts, extra...)...)
}

func NewDriveStoreWithOptions(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveStore, error) {
	if strings.TrimSpace(folderID) == "" {
		return nil, fmt.Errorf("missing GOOGLE_DRIVE_FOLDER_ID")
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DriveStore{svc: svc, folderID: folderID}, nil
}

func (s *DriveStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	f := &drive.File{
		Name:     key,
		Parents:  []string{s.folderID},
		MimeType: contentType,
	}
	created, err := s.svc.Files.Create(f).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Fields("id", "webViewLink").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := s.svc.Permissions.Create(created.Id, perm).Context(ctx).Do(); err != nil {
		slog.WarnContext(ctx, "Failed to share uploaded blob", "key", key, "file_id", created.Id, "error", err)
	}

	slog.InfoContext(ctx, "Blob uploaded to Drive", "key", key, "file_id", created.Id, "size", len(data))
	return created.WebViewLink, nil
}

func (s *DriveStore) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQuery(key), escapeQuery(s.folderID))
	list, err := s.svc.Files.List().Q(q).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("find %s: %w", key, err)
	}
	for _, f := range list.Files {
		if err := s.svc.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
