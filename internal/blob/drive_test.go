package blob

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu      sync.Mutex
	uploads int
	shared  []string
	deleted []string
	queries []string
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/permissions"):
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		f.shared = append(f.shared, parts[len(parts)-2])
		w.Write([]byte(`{"id":"perm-1"}`))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		f.uploads++
		json.NewEncoder(w).Encode(map[string]string{"id": "file-1", "webViewLink": "https://drive.example/file-1"})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		w.Write([]byte(`{"files":[{"id":"file-1"}]}`))
	case r.Method == http.MethodDelete:
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		f.deleted = append(f.deleted, parts[len(parts)-1])
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	}
}

func TestDriveStore(t *testing.T) {
	fake := &fakeDrive{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewDriveStoreWithOptions(context.Background(), "folder-1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}

	url, err := s.Upload(context.Background(), "receipts/u1/r.pdf", "application/pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://drive.example/file-1" {
		t.Fatalf("unexpected url %q", url)
	}
	if fake.uploads != 1 || len(fake.shared) != 1 || fake.shared[0] != "file-1" {
		t.Fatalf("unexpected calls: uploads=%d shared=%v", fake.uploads, fake.shared)
	}

	if err := s.Delete(context.Background(), "receipts/u1/r.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "file-1" {
		t.Fatalf("unexpected deletes %v", fake.deleted)
	}
	if !strings.Contains(fake.queries[0], "name = 'receipts/u1/r.pdf'") || !strings.Contains(fake.queries[0], "'folder-1' in parents") {
		t.Fatalf("unexpected query %q", fake.queries[0])
	}
}

func TestNewDriveStoreRequiresFolder(t *testing.T) {
	if _, err := NewDriveStoreWithOptions(context.Background(), " ", option.WithoutAuthentication()); err == nil {
		t.Fatal("expected error for missing folder")
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery(`it's`); got != `it\'s` {
		t.Fatalf("unexpected %q", got)
	}
}
