package googleapi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSourceFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/adc.json")

	if got := SourceFromEnv(); got.File != "/etc/adc.json" || got.JSON != "" {
		t.Fatalf("expected ADC fallback, got %+v", got)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/etc/sa.json")
	if got := SourceFromEnv(); got.File != "/etc/sa.json" {
		t.Fatalf("explicit file should win, got %+v", got)
	}
}

func TestSourceLoad(t *testing.T) {
	ctx := context.Background()

	if _, err := (Source{}).Load(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := Source{File: path}.Load(ctx)
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("unexpected load: %q %v", b, err)
	}

	b, err = Source{JSON: `{"inline":true}`, File: path}.Load(ctx)
	if err != nil || string(b) != `{"inline":true}` {
		t.Fatalf("inline JSON should win: %q %v", b, err)
	}

	if _, err := (Source{File: filepath.Join(t.TempDir(), "missing.json")}).Load(ctx); err == nil {
		t.Fatal("expected error for missing file")
	}
}
