package storage

import (
	"bytes"
	"context"
	"testing"
)

func TestSweepStray_ShouldDeleteOnlyRecordlessBlobs(t *testing.T) {
	// given: two blobs with records, one left behind by a failed upload
	backend := newTestBackend(t)
	ctx := context.Background()
	backend.Store(ctx, "katas/2026/08/img-1.jpg", bytes.NewReader([]byte("a")))
	backend.Store(ctx, "katas/2026/08/img-1_thumb.jpg", bytes.NewReader([]byte("b")))
	backend.Store(ctx, "katas/2026/08/abandoned.jpg", bytes.NewReader([]byte("c")))
	inUse := map[string]bool{
		"katas/2026/08/img-1.jpg":       true,
		"katas/2026/08/img-1_thumb.jpg": true,
	}

	// when
	deleted, err := sweepStray(ctx, backend, inUse, "katas/")

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "katas/2026/08/abandoned.jpg" {
		t.Fatalf("expected only the recordless blob deleted, got %v", deleted)
	}
	if exists, _ := backend.Exists(ctx, "katas/2026/08/abandoned.jpg"); exists {
		t.Fatalf("stray blob must be gone")
	}
	if exists, _ := backend.Exists(ctx, "katas/2026/08/img-1.jpg"); !exists {
		t.Fatalf("recorded blob must survive the sweep")
	}
}

func TestSweepStray_ShouldIgnoreBlobsOutsidePrefix(t *testing.T) {
	// given
	backend := newTestBackend(t)
	ctx := context.Background()
	backend.Store(ctx, "exports/report.csv", bytes.NewReader([]byte("x")))

	// when
	deleted, err := sweepStray(ctx, backend, map[string]bool{}, "katas/")

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 0 {
		t.Fatalf("blobs outside the prefix must not be touched, got %v", deleted)
	}
	if exists, _ := backend.Exists(ctx, "exports/report.csv"); !exists {
		t.Fatalf("unrelated blob must survive")
	}
}
