package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"copper-backend/internal/shared/storage/object"
)

func TestSaveOpenDelete(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	store.now = func() time.Time { return time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC) }

	payload := []byte("\x89PNG\r\n\x1a\nrest-of-file")
	key, size, mimeType, err := store.Save(context.Background(), "42", "../../evil/sample.png", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(key, "42/20260501-120000-") || !strings.HasSuffix(key, "-sample.png") {
		t.Fatalf("unexpected key %q", key)
	}
	if size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), size)
	}
	if mimeType != "image/png" {
		t.Fatalf("expected image/png, got %q", mimeType)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	rc, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, payload) {
		t.Fatalf("round-trip mismatch")
	}

	if err := store.Delete(context.Background(), key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file removed, got %v", err)
	}
	if err := store.Delete(context.Background(), key); err != nil {
		t.Fatalf("Delete of missing key should be a no-op: %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	store := New(t.TempDir())
	for _, key := range []string{"../outside.png", "/etc/passwd", ".", ""} {
		if _, err := store.Open(context.Background(), key); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("Open(%q) expected ErrInvalidKey, got %v", key, err)
		}
		if err := store.Delete(context.Background(), key); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("Delete(%q) expected ErrInvalidKey, got %v", key, err)
		}
	}
}
