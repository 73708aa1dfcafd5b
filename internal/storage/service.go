package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	maxThumbnailWidth  = 300
	maxThumbnailHeight = 300

	defaultMaxFileSize = 20 * 1024 * 1024

	// All image blobs live under this key prefix, which is what the stray
	// sweep scans.
	imagePrefix = "katas/"
)

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type Service struct {
	repo        *Repository
	backend     Backend
	maxFileSize int64
}

func NewService(repo *Repository, backend Backend, maxFileSize int64) *Service {
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	return &Service{
		repo:        repo,
		backend:     backend,
		maxFileSize: maxFileSize,
	}
}

// UploadImage stores one image and returns its reference (the record id).
// This is the surface the kata flows consume.
func (s *Service) UploadImage(ctx context.Context, uploaderID, filename, contentType string, data []byte) (string, error) {
	if !allowedContentTypes[contentType] {
		return "", fmt.Errorf("unsupported content type: %s", contentType)
	}
	if int64(len(data)) > s.maxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max: %d)", len(data), s.maxFileSize)
	}

	hash := sha256.Sum256(data)
	checksum := hex.EncodeToString(hash[:])

	now := time.Now()
	id := uuid.NewString()
	storagePath := buildStoragePath(id, filename, contentType, now)

	if err := s.backend.Store(ctx, storagePath, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	stored := &Object{
		ID:          id,
		UploaderID:  uploaderID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		StoragePath: storagePath,
		Checksum:    checksum,
		CreatedAt:   now.Unix(),
	}

	if err := s.repo.Create(stored); err != nil {
		s.backend.Delete(ctx, storagePath)
		return "", fmt.Errorf("failed to save storage record: %w", err)
	}

	// Dimensions and the thumbnail are filled in after the record exists.
	// Losing either only degrades the record, so failures are logged, not
	// propagated.
	s.processImage(ctx, stored, data)

	return stored.ID, nil
}

// DeleteRef removes the object's blob, thumbnail, and record. Used by the
// kata delete cascade and the orphan cleanup; blob failures are logged, the
// record delete decides the outcome.
func (s *Service) DeleteRef(ctx context.Context, ref string) error {
	stored, err := s.repo.GetByID(ref)
	if err != nil {
		return err
	}

	if err := s.backend.Delete(ctx, stored.StoragePath); err != nil {
		log.Warn().Err(err).Str("path", stored.StoragePath).Msg("Failed to delete storage file")
	}
	if stored.ThumbnailPath != "" {
		if err := s.backend.Delete(ctx, stored.ThumbnailPath); err != nil {
			log.Warn().Err(err).Str("path", stored.ThumbnailPath).Msg("Failed to delete thumbnail")
		}
	}

	return s.repo.Delete(ref)
}

// ListRefs returns every stored image reference, for the orphan scan.
func (s *Service) ListRefs(ctx context.Context) ([]string, error) {
	return s.repo.ListIDs()
}

// SweepStrayBlobs deletes blobs under the image prefix that no storage record
// references. Such blobs appear when a record insert failed and the
// compensating blob delete failed too.
func (s *Service) SweepStrayBlobs(ctx context.Context) ([]string, error) {
	paths, err := s.repo.ListPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to list recorded blob paths: %w", err)
	}
	inUse := make(map[string]bool, len(paths))
	for _, p := range paths {
		inUse[p] = true
	}
	return sweepStray(ctx, s.backend, inUse, imagePrefix)
}

func sweepStray(ctx context.Context, backend Backend, inUse map[string]bool, prefix string) ([]string, error) {
	keys, err := backend.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored blobs: %w", err)
	}

	var deleted []string
	for _, key := range keys {
		if inUse[key] {
			continue
		}
		if err := backend.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("failed to delete stray blob %s: %w", key, err)
		}
		deleted = append(deleted, key)
	}
	return deleted, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Object, error) {
	return s.repo.GetByID(id)
}

func (s *Service) GetData(ctx context.Context, id string) (io.ReadCloser, *Object, error) {
	stored, err := s.repo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.backend.Get(ctx, stored.StoragePath)
	if err != nil {
		return nil, nil, err
	}

	return reader, stored, nil
}

func (s *Service) GetThumbnail(ctx context.Context, id string) (io.ReadCloser, *Object, error) {
	stored, err := s.repo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if stored.ThumbnailPath == "" {
		return nil, nil, fmt.Errorf("no thumbnail available")
	}

	reader, err := s.backend.Get(ctx, stored.ThumbnailPath)
	if err != nil {
		return nil, nil, err
	}

	return reader, stored, nil
}

func (s *Service) processImage(ctx context.Context, stored *Object, data []byte) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return
	}

	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if err := s.repo.UpdateDimensions(stored.ID, w, h); err != nil {
		log.Warn().Err(err).Str("storageId", stored.ID).Msg("Failed to save image dimensions")
	} else {
		stored.Width = &w
		stored.Height = &h
	}

	if err := s.generateThumbnail(ctx, stored, data); err != nil {
		log.Warn().Err(err).Str("storageId", stored.ID).Msg("Failed to generate thumbnail")
	}
}

func (s *Service) generateThumbnail(ctx context.Context, stored *Object, data []byte) error {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode image for thumbnail: %w", err)
	}

	thumb := imaging.Fit(img, maxThumbnailWidth, maxThumbnailHeight, imaging.Lanczos)

	var thumbBuf bytes.Buffer
	if err := imaging.Encode(&thumbBuf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	basePath := strings.TrimSuffix(stored.StoragePath, filepath.Ext(stored.StoragePath))
	thumbnailPath := basePath + "_thumb.jpg"

	if err := s.backend.Store(ctx, thumbnailPath, &thumbBuf); err != nil {
		return fmt.Errorf("failed to store thumbnail: %w", err)
	}

	if err := s.repo.UpdateThumbnail(stored.ID, thumbnailPath); err != nil {
		s.backend.Delete(ctx, thumbnailPath)
		return fmt.Errorf("failed to save thumbnail path: %w", err)
	}

	stored.ThumbnailPath = thumbnailPath
	return nil
}

func buildStoragePath(storageID, filename, contentType string, now time.Time) string {
	year := now.Format("2006")
	month := now.Format("01")
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = extensionFromContentType(contentType)
	}
	return fmt.Sprintf("%s%s/%s/%s%s", imagePrefix, year, month, storageID, ext)
}

func extensionFromContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
