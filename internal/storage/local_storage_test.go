package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func newTestBackend(t *testing.T) *LocalBackend {
	t.Helper()
	backend, err := NewLocalBackend(&Config{LocalPath: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	return backend
}

func TestLocalBackend_ShouldStoreAndRetrieve(t *testing.T) {
	// given
	backend := newTestBackend(t)
	ctx := context.Background()
	content := []byte("jpeg-bytes")

	// when
	err := backend.Store(ctx, "katas/2026/08/img-1.jpg", bytes.NewReader(content))

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reader, err := backend.Get(ctx, "katas/2026/08/img-1.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reader.Close()
	got, _ := io.ReadAll(reader)
	if !bytes.Equal(got, content) {
		t.Fatalf("retrieved content differs")
	}
}

func TestLocalBackend_ShouldReportExistence(t *testing.T) {
	// given
	backend := newTestBackend(t)
	ctx := context.Background()
	backend.Store(ctx, "a/b.jpg", bytes.NewReader([]byte("x")))

	// when / then
	exists, err := backend.Exists(ctx, "a/b.jpg")
	if err != nil || !exists {
		t.Fatalf("expected stored path to exist, got %v / %v", exists, err)
	}
	exists, err = backend.Exists(ctx, "a/missing.jpg")
	if err != nil || exists {
		t.Fatalf("expected missing path to not exist, got %v / %v", exists, err)
	}
}

func TestLocalBackend_DeleteShouldBeIdempotent(t *testing.T) {
	// given
	backend := newTestBackend(t)
	ctx := context.Background()
	backend.Store(ctx, "a/b.jpg", bytes.NewReader([]byte("x")))

	// when
	if err := backend.Delete(ctx, "a/b.jpg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Deleting again must not fail.
	if err := backend.Delete(ctx, "a/b.jpg"); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}

	// then
	if exists, _ := backend.Exists(ctx, "a/b.jpg"); exists {
		t.Fatalf("deleted path must not exist")
	}
}

func TestLocalBackend_ListShouldWalkPrefix(t *testing.T) {
	// given
	backend := newTestBackend(t)
	ctx := context.Background()
	backend.Store(ctx, "katas/2026/08/img-1.jpg", bytes.NewReader([]byte("a")))
	backend.Store(ctx, "katas/2026/08/img-2.jpg", bytes.NewReader([]byte("b")))
	backend.Store(ctx, "thumbs/img-1.jpg", bytes.NewReader([]byte("c")))

	// when
	keys, err := backend.List(ctx, "katas")

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys under katas/, got %v", keys)
	}
	for _, key := range keys {
		if key != "katas/2026/08/img-1.jpg" && key != "katas/2026/08/img-2.jpg" {
			t.Fatalf("unexpected key %q", key)
		}
	}
}

func TestLocalBackend_ListShouldReturnEmptyForMissingPrefix(t *testing.T) {
	// given
	backend := newTestBackend(t)

	// when
	keys, err := backend.List(context.Background(), "nothing-here")

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}
