package kata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kataclub/kataclub_server/internal/store"
)

// MediaStore is the object-storage surface the kata flows need. Image
// references held on a kata are the ids returned by UploadImage.
type MediaStore interface {
	UploadImage(ctx context.Context, uploaderID, filename, contentType string, data []byte) (string, error)
	DeleteRef(ctx context.Context, ref string) error
	ListRefs(ctx context.Context) ([]string, error)
	SweepStrayBlobs(ctx context.Context) ([]string, error)
}

// ImageUpload is one image attached to a create or update request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UpdateFieldsRequest carries the scalar fields of the update flow.
type UpdateFieldsRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Style       string   `json:"style"`
	VideoURLs   []string `json:"videoUrls"`
}

// UpdateResult reports which steps of the multi-step update flow completed.
// The scalar-field update is never rolled back once it succeeded, so a failed
// later step leaves a partial success that must be surfaced, not swallowed.
type UpdateResult struct {
	ScalarsUpdated  bool     `json:"scalarsUpdated"`
	ImagesUploaded  []string `json:"imagesUploaded"`
	ImageOrderSaved bool     `json:"imageOrderSaved"`
	FailedStep      string   `json:"failedStep,omitempty"`
	FailureMessage  string   `json:"failureMessage,omitempty"`
}

func (r *UpdateResult) Partial() bool {
	return r.ScalarsUpdated && r.FailedStep != ""
}

const (
	updateStepImages     = "image-upload"
	updateStepImageOrder = "image-order"
)

// CleanupReport lists the orphaned image references actually deleted. It is
// only returned when every deletion succeeded; a mid-scan error aborts with
// no report, so callers never see an ambiguous partial listing.
type CleanupReport struct {
	Deleted    []string `json:"deleted"`
	Count      int      `json:"count"`
	StrayBlobs []string `json:"strayBlobs,omitempty"`
}

// Service orchestrates the multi-step kata mutations against the repository
// and the media store, and reconciles the in-memory snapshot after each one.
// It is the only writer of the store's collection.
type Service struct {
	repo  KataRepository
	media MediaStore
	store *store.Store[*Kata]
}

func NewService(repo KataRepository, media MediaStore) *Service {
	return &Service{
		repo:  repo,
		media: media,
		store: store.New(KeyOf, Matches, Renumber),
	}
}

// Store exposes the read side of the catalog snapshot.
func (s *Service) Store() *store.Store[*Kata] {
	return s.store
}

// Refresh replaces the snapshot with the repository's current state. If ctx is
// already done when the listing returns, the result is discarded without
// touching the store.
func (s *Service) Refresh(ctx context.Context) error {
	s.store.SetLoading(true)

	katas, err := s.repo.List()
	if ctx.Err() != nil {
		s.store.SetLoading(false)
		return ctx.Err()
	}
	if err != nil {
		s.store.SetError(err.Error())
		return err
	}

	s.store.SetAll(katas)
	return nil
}

// Search applies the query to the snapshot and returns the visible list.
func (s *Service) Search(query string) []*Kata {
	s.store.ApplyQuery(query)
	return s.store.Visible()
}

// Create uploads the attached images and persists the record. Image uploads
// are all-or-nothing: a single failure aborts the whole create, deletes any
// blobs already uploaded, and leaves the snapshot untouched.
func (s *Service) Create(ctx context.Context, userID string, k *Kata, images []ImageUpload) (*Kata, error) {
	if err := Validate(k); err != nil {
		return nil, err
	}

	uploaded := make([]string, 0, len(images))
	for _, img := range images {
		ref, err := s.media.UploadImage(ctx, userID, img.Filename, img.ContentType, img.Data)
		if err != nil {
			s.discardRefs(ctx, uploaded)
			return nil, fmt.Errorf("failed to upload image %q: %w", img.Filename, err)
		}
		uploaded = append(uploaded, ref)
	}

	now := time.Now().Unix()
	k.ImageRefs = uploaded
	k.SortOrder = nextSortOrder(s.store.Items())
	k.CreatedBy = userID
	k.CreatedAt = now
	k.UpdatedAt = now

	if err := s.repo.Create(k); err != nil {
		s.discardRefs(ctx, uploaded)
		return nil, fmt.Errorf("failed to create kata: %w", err)
	}

	s.store.UpsertOne(k)
	s.store.ClearError()
	return k, nil
}

// nextSortOrder returns one past the highest order currently in use. Deletions
// leave gaps, so the collection length can collide with a surviving value.
func nextSortOrder(items []*Kata) int {
	next := 0
	for _, k := range items {
		if k.SortOrder >= next {
			next = k.SortOrder + 1
		}
	}
	return next
}

// Update runs the three-step edit flow: scalar fields, then newly attached
// images, then the image-reference order. A failure before the scalar update
// mutates nothing; a failure after it yields a partial result. On any full or
// partial success the snapshot is refreshed from the repository rather than
// trusting the optimistic copy.
func (s *Service) Update(ctx context.Context, id int64, userID string, fields UpdateFieldsRequest, newImages []ImageUpload, imageOrder []string) (*UpdateResult, error) {
	candidate := &Kata{Name: fields.Name, VideoURLs: fields.VideoURLs}
	if err := Validate(candidate); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateFields(id, fields.Name, fields.Description, fields.Style, fields.VideoURLs); err != nil {
		return nil, fmt.Errorf("failed to update kata: %w", err)
	}

	result := &UpdateResult{ScalarsUpdated: true}

	refs := append([]string(nil), existing.ImageRefs...)
	if len(newImages) > 0 {
		uploaded, err := s.uploadAll(ctx, userID, newImages)
		if err != nil {
			result.FailedStep = updateStepImages
			result.FailureMessage = err.Error()
		} else {
			refs = append(refs, uploaded...)
			if err := s.repo.UpdateImageRefs(id, refs); err != nil {
				s.discardRefs(ctx, uploaded)
				result.FailedStep = updateStepImages
				result.FailureMessage = err.Error()
			} else {
				result.ImagesUploaded = uploaded
			}
		}
	}

	if result.FailedStep == "" && len(imageOrder) > 0 {
		if err := validateImageOrder(refs, imageOrder); err != nil {
			result.FailedStep = updateStepImageOrder
			result.FailureMessage = err.Error()
		} else if err := s.repo.UpdateImageRefs(id, imageOrder); err != nil {
			result.FailedStep = updateStepImageOrder
			result.FailureMessage = err.Error()
		} else {
			result.ImageOrderSaved = true
		}
	}

	// Reconcile with the durable copy; server-assigned fields and whatever
	// subset of the steps landed become the snapshot.
	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Int64("kataId", id).Msg("Failed to refresh katas after update")
	}

	if result.Partial() {
		msg := fmt.Sprintf("kata %d partially updated: %s failed: %s", id, result.FailedStep, result.FailureMessage)
		s.store.SetError(msg)
		return result, fmt.Errorf("%s", msg)
	}

	s.store.ClearError()
	return result, nil
}

// Delete removes the record, cascade-deletes its stored images, and drops it
// from the snapshot. A repository failure leaves the snapshot unchanged and
// the item visible.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		s.store.SetError(err.Error())
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		s.store.SetError(err.Error())
		return fmt.Errorf("failed to delete kata: %w", err)
	}

	for _, ref := range existing.ImageRefs {
		if err := s.media.DeleteRef(ctx, ref); err != nil {
			log.Warn().Err(err).Str("ref", ref).Msg("Failed to delete kata image during cascade")
		}
	}

	s.store.RemoveOne(KeyOf(existing))
	s.store.ClearError()
	return nil
}

// Reorder moves an entry in the full catalog and persists the resulting dense
// id -> order mapping. If persistence fails the in-memory order is rolled back
// and the error surfaced; the operation is not retried.
func (s *Service) Reorder(ctx context.Context, oldIndex, newIndex int) error {
	previous := s.store.Items()

	reordered, err := s.store.Reorder(oldIndex, newIndex)
	if err != nil {
		return err
	}

	orders := make(map[int64]int, len(reordered))
	for _, k := range reordered {
		orders[k.ID] = k.SortOrder
	}

	if err := s.repo.UpdateOrders(orders); err != nil {
		s.store.SetAll(previous)
		s.store.SetError(err.Error())
		return fmt.Errorf("failed to persist kata order: %w", err)
	}

	s.store.ClearError()
	return nil
}

// CleanupOrphanedImages deletes stored image references no kata points at,
// then sweeps raw blobs that lost their record entirely. It returns either the
// full list of deletions actually performed or an error, never both.
func (s *Service) CleanupOrphanedImages(ctx context.Context) (*CleanupReport, error) {
	katas, err := s.repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list katas for cleanup: %w", err)
	}

	referenced := make(map[string]bool)
	for _, k := range katas {
		for _, ref := range k.ImageRefs {
			referenced[ref] = true
		}
	}

	all, err := s.media.ListRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored images: %w", err)
	}

	var deleted []string
	for _, ref := range all {
		if referenced[ref] {
			continue
		}
		if err := s.media.DeleteRef(ctx, ref); err != nil {
			return nil, fmt.Errorf("failed to delete orphaned image %s: %w", ref, err)
		}
		deleted = append(deleted, ref)
	}

	// Blobs can outlive their record when a failed upload could not run its
	// compensating delete. Those never show up in ListRefs, so they need a
	// separate pass over the raw blob keys.
	stray, err := s.media.SweepStrayBlobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep stray blobs: %w", err)
	}

	log.Info().Int("deleted", len(deleted)).Int("strayBlobs", len(stray)).Msg("Orphaned image cleanup completed")
	return &CleanupReport{Deleted: deleted, Count: len(deleted), StrayBlobs: stray}, nil
}

func (s *Service) uploadAll(ctx context.Context, userID string, images []ImageUpload) ([]string, error) {
	uploaded := make([]string, 0, len(images))
	for _, img := range images {
		ref, err := s.media.UploadImage(ctx, userID, img.Filename, img.ContentType, img.Data)
		if err != nil {
			s.discardRefs(ctx, uploaded)
			return nil, fmt.Errorf("failed to upload image %q: %w", img.Filename, err)
		}
		uploaded = append(uploaded, ref)
	}
	return uploaded, nil
}

// discardRefs best-effort deletes blobs that were uploaded before a flow
// aborted, so they do not linger as orphans until the next cleanup.
func (s *Service) discardRefs(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := s.media.DeleteRef(ctx, ref); err != nil {
			log.Warn().Err(err).Str("ref", ref).Msg("Failed to discard uploaded image")
		}
	}
}

func validateImageOrder(current, proposed []string) error {
	if len(current) != len(proposed) {
		return fmt.Errorf("%w: image order must list all %d references", ErrValidation, len(current))
	}
	have := make(map[string]int, len(current))
	for _, ref := range current {
		have[ref]++
	}
	for _, ref := range proposed {
		if have[ref] == 0 {
			return fmt.Errorf("%w: unknown image reference %s", ErrValidation, ref)
		}
		have[ref]--
	}
	return nil
}
