package kata

import (
	"context"
	"fmt"
	"testing"
)

// mockMediaStore records uploads and deletions and can be told to fail the
// nth upload.
type mockMediaStore struct {
	nextRef    int
	refs       map[string]bool
	deleted    []string
	failUpload int // fail the nth upload (1-based), 0 disables
	uploads    int
	strayBlobs []string // recordless blob keys reported by the sweep
}

func newMockMediaStore() *mockMediaStore {
	return &mockMediaStore{refs: make(map[string]bool)}
}

func (m *mockMediaStore) UploadImage(_ context.Context, _, filename, _ string, _ []byte) (string, error) {
	m.uploads++
	if m.failUpload > 0 && m.uploads == m.failUpload {
		return "", fmt.Errorf("upload of %s failed", filename)
	}
	m.nextRef++
	ref := fmt.Sprintf("img-%d", m.nextRef)
	m.refs[ref] = true
	return ref, nil
}

func (m *mockMediaStore) DeleteRef(_ context.Context, ref string) error {
	delete(m.refs, ref)
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *mockMediaStore) ListRefs(_ context.Context) ([]string, error) {
	refs := make([]string, 0, len(m.refs))
	for ref := range m.refs {
		refs = append(refs, ref)
	}
	return refs, nil
}

func (m *mockMediaStore) SweepStrayBlobs(_ context.Context) ([]string, error) {
	swept := m.strayBlobs
	m.strayBlobs = nil
	return swept, nil
}

// failingOrderRepo rejects order persistence, everything else delegates.
type failingOrderRepo struct {
	KataRepository
}

func (r *failingOrderRepo) UpdateOrders(map[int64]int) error {
	return fmt.Errorf("database unavailable")
}

func testKata(name string) *Kata {
	return &Kata{Name: name, Style: "Shotokan"}
}

func testImages(n int) []ImageUpload {
	images := make([]ImageUpload, n)
	for i := range images {
		images[i] = ImageUpload{
			Filename:    fmt.Sprintf("photo-%d.jpg", i),
			ContentType: "image/jpeg",
			Data:        []byte("jpeg-bytes"),
		}
	}
	return images
}

func newTestService() (*Service, *MemoryRepository, *mockMediaStore) {
	repo := NewMemoryRepository()
	media := newMockMediaStore()
	return NewService(repo, media), repo, media
}

func TestCreate_ShouldAttachAllUploadedImages(t *testing.T) {
	// given
	service, repo, _ := newTestService()

	// when
	created, err := service.Create(context.Background(), "user-1", testKata("Heian Shodan"), testImages(3))

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created.ImageRefs) != 3 {
		t.Fatalf("expected 3 image refs, got %d", len(created.ImageRefs))
	}
	stored, err := repo.GetByID(created.ID)
	if err != nil {
		t.Fatalf("created kata not persisted: %v", err)
	}
	if stored.CreatedBy != "user-1" {
		t.Fatalf("expected creator recorded, got %q", stored.CreatedBy)
	}
	if service.Store().Len() != 1 {
		t.Fatalf("expected snapshot to contain the new kata")
	}
}

func TestCreate_ShouldDiscardUploadsWhenOneFails(t *testing.T) {
	// given
	service, repo, media := newTestService()
	media.failUpload = 3

	// when
	_, err := service.Create(context.Background(), "user-1", testKata("Heian Shodan"), testImages(3))

	// then
	if err == nil {
		t.Fatalf("expected create to fail")
	}
	if len(media.refs) != 0 {
		t.Fatalf("expected the 2 successful uploads discarded, %d blobs remain", len(media.refs))
	}
	if katas, _ := repo.List(); len(katas) != 0 {
		t.Fatalf("no record may be persisted on a failed create")
	}
	if service.Store().Len() != 0 {
		t.Fatalf("snapshot must stay untouched on a failed create")
	}
}

func TestCreate_ShouldRejectInvalidKata(t *testing.T) {
	// given
	service, _, media := newTestService()

	// when
	_, err := service.Create(context.Background(), "user-1", testKata(""), testImages(1))

	// then
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if media.uploads != 0 {
		t.Fatalf("validation must run before any upload")
	}
}

func TestCreate_ShouldAssignNextSortOrder(t *testing.T) {
	// given
	service, _, _ := newTestService()
	ctx := context.Background()

	// when
	first, _ := service.Create(ctx, "user-1", testKata("Heian Shodan"), nil)
	second, _ := service.Create(ctx, "user-1", testKata("Heian Nidan"), nil)

	// then
	if first.SortOrder != 0 || second.SortOrder != 1 {
		t.Fatalf("expected sort orders 0 and 1, got %d and %d", first.SortOrder, second.SortOrder)
	}
}

func TestCreate_ShouldNotReuseSortOrderAfterDeletion(t *testing.T) {
	// given: three katas, then the first one deleted
	service, _, _ := newTestService()
	ctx := context.Background()
	first, _ := service.Create(ctx, "user-1", testKata("Heian Shodan"), nil)
	service.Create(ctx, "user-1", testKata("Heian Nidan"), nil)
	service.Create(ctx, "user-1", testKata("Tekki Shodan"), nil)
	if err := service.Delete(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// when
	created, err := service.Create(ctx, "user-1", testKata("Bassai Dai"), nil)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[int]string)
	for _, k := range service.Store().Items() {
		if other, taken := seen[k.SortOrder]; taken {
			t.Fatalf("sort order %d shared by %q and %q", k.SortOrder, other, k.Name)
		}
		seen[k.SortOrder] = k.Name
	}
	if created.SortOrder != 3 {
		t.Fatalf("expected the new kata past the highest surviving order, got %d", created.SortOrder)
	}
}

func TestUpdate_ShouldApplyAllThreeSteps(t *testing.T) {
	// given
	service, repo, _ := newTestService()
	ctx := context.Background()
	created, _ := service.Create(ctx, "user-1", testKata("Heian Shodan"), testImages(2))
	order := []string{created.ImageRefs[1], created.ImageRefs[0]}

	// when
	result, err := service.Update(ctx, created.ID, "user-1", UpdateFieldsRequest{
		Name:  "Heian Shodan",
		Style: "Shotokan",
	}, testImages(0), order)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ScalarsUpdated || !result.ImageOrderSaved {
		t.Fatalf("expected full success, got %+v", result)
	}
	stored, _ := repo.GetByID(created.ID)
	if stored.ImageRefs[0] != order[0] || stored.ImageRefs[1] != order[1] {
		t.Fatalf("expected persisted order %v, got %v", order, stored.ImageRefs)
	}
}

func TestUpdate_ShouldSurfacePartialFailure(t *testing.T) {
	// given
	service, repo, media := newTestService()
	ctx := context.Background()
	created, _ := service.Create(ctx, "user-1", testKata("Heian Shodan"), nil)
	media.failUpload = media.uploads + 1

	// when
	result, err := service.Update(ctx, created.ID, "user-1", UpdateFieldsRequest{
		Name: "Heian Shodan (revised)",
	}, testImages(1), nil)

	// then
	if err == nil {
		t.Fatalf("a partial update must return an error")
	}
	if result == nil || !result.Partial() {
		t.Fatalf("expected a partial result, got %+v", result)
	}
	if result.FailedStep != "image-upload" {
		t.Fatalf("expected failed step image-upload, got %q", result.FailedStep)
	}
	// The scalar step is not rolled back.
	stored, _ := repo.GetByID(created.ID)
	if stored.Name != "Heian Shodan (revised)" {
		t.Fatalf("scalar update must survive a later step failure, got %q", stored.Name)
	}
	if service.Store().Err() == "" {
		t.Fatalf("partial failure must be flagged on the snapshot")
	}
}

func TestUpdate_ShouldRejectOrderThatIsNotAPermutation(t *testing.T) {
	// given
	service, _, _ := newTestService()
	ctx := context.Background()
	created, _ := service.Create(ctx, "user-1", testKata("Heian Shodan"), testImages(2))

	// when
	result, err := service.Update(ctx, created.ID, "user-1", UpdateFieldsRequest{
		Name: "Heian Shodan",
	}, nil, []string{created.ImageRefs[0], "img-unknown"})

	// then
	if err == nil {
		t.Fatalf("expected order validation to fail")
	}
	if result.FailedStep != "image-order" {
		t.Fatalf("expected failed step image-order, got %q", result.FailedStep)
	}
}

func TestDelete_ShouldCascadeImageDeletion(t *testing.T) {
	// given
	service, repo, media := newTestService()
	ctx := context.Background()
	created, _ := service.Create(ctx, "user-1", testKata("Heian Shodan"), testImages(2))

	// when
	err := service.Delete(ctx, created.ID)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(media.refs) != 0 {
		t.Fatalf("expected cascade to delete stored images, %d remain", len(media.refs))
	}
	if katas, _ := repo.List(); len(katas) != 0 {
		t.Fatalf("record must be gone")
	}
	if service.Store().Len() != 0 {
		t.Fatalf("snapshot must drop the deleted kata")
	}
}

func TestDelete_ShouldFailForUnknownID(t *testing.T) {
	// given
	service, _, _ := newTestService()

	// when
	err := service.Delete(context.Background(), 42)

	// then
	if err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestReorder_ShouldPersistDenseOrders(t *testing.T) {
	// given
	service, repo, _ := newTestService()
	ctx := context.Background()
	service.Create(ctx, "user-1", testKata("Heian Shodan"), nil)
	service.Create(ctx, "user-1", testKata("Heian Nidan"), nil)
	service.Create(ctx, "user-1", testKata("Tekki Shodan"), nil)

	// when: drag the first kata below the second
	err := service.Reorder(ctx, 0, 2)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	katas, _ := repo.List()
	if katas[0].Name != "Heian Nidan" || katas[1].Name != "Heian Shodan" {
		t.Fatalf("expected persisted order [Nidan Shodan Tekki], got %v", kataNames(katas))
	}
	for i, k := range katas {
		if k.SortOrder != i {
			t.Fatalf("expected dense persisted orders, kata %d has %d", i, k.SortOrder)
		}
	}
}

func TestReorder_ShouldRollBackWhenPersistenceFails(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	media := newMockMediaStore()
	service := NewService(&failingOrderRepo{repo}, media)
	ctx := context.Background()
	service.Create(ctx, "user-1", testKata("Heian Shodan"), nil)
	service.Create(ctx, "user-1", testKata("Heian Nidan"), nil)

	// when
	err := service.Reorder(ctx, 0, 2)

	// then
	if err == nil {
		t.Fatalf("expected persistence error")
	}
	items := service.Store().Items()
	if items[0].Name != "Heian Shodan" || items[1].Name != "Heian Nidan" {
		t.Fatalf("snapshot must roll back to the previous order, got %v", kataNames(items))
	}
	if service.Store().Err() == "" {
		t.Fatalf("rollback must flag the error on the snapshot")
	}
}

func TestReorder_ShouldBeRejectedWhileSearchActive(t *testing.T) {
	// given
	service, _, _ := newTestService()
	ctx := context.Background()
	service.Create(ctx, "user-1", testKata("Heian Shodan"), nil)
	service.Create(ctx, "user-1", testKata("Heian Nidan"), nil)
	service.Search("nidan")

	// when
	err := service.Reorder(ctx, 0, 1)

	// then
	if err == nil {
		t.Fatalf("reorder during an active search must be rejected")
	}
}

func TestSearch_ShouldFilterSnapshot(t *testing.T) {
	// given
	service, _, _ := newTestService()
	ctx := context.Background()
	service.Create(ctx, "user-1", testKata("Heian Shodan"), nil)
	service.Create(ctx, "user-1", testKata("Heian Nidan"), nil)

	// when
	visible := service.Search("nidan")

	// then
	if len(visible) != 1 || visible[0].Name != "Heian Nidan" {
		t.Fatalf("expected only Heian Nidan, got %v", kataNames(visible))
	}
}

func TestCleanupOrphanedImages_ShouldDeleteOnlyUnreferenced(t *testing.T) {
	// given
	service, _, media := newTestService()
	ctx := context.Background()
	created, _ := service.Create(ctx, "user-1", testKata("Heian Shodan"), testImages(1))
	// Simulate an abandoned upload that no kata references.
	orphan, _ := media.UploadImage(ctx, "user-1", "stray.jpg", "image/jpeg", []byte("x"))

	// when
	report, err := service.CleanupOrphanedImages(ctx)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Count != 1 || report.Deleted[0] != orphan {
		t.Fatalf("expected exactly the orphan deleted, got %+v", report)
	}
	if !media.refs[created.ImageRefs[0]] {
		t.Fatalf("referenced image must survive cleanup")
	}
}

func TestCleanupOrphanedImages_ShouldReportSweptStrayBlobs(t *testing.T) {
	// given: a blob whose record insert and compensating delete both failed
	service, _, media := newTestService()
	ctx := context.Background()
	service.Create(ctx, "user-1", testKata("Heian Shodan"), testImages(1))
	media.strayBlobs = []string{"katas/2026/08/abandoned.jpg"}

	// when
	report, err := service.CleanupOrphanedImages(ctx)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.StrayBlobs) != 1 || report.StrayBlobs[0] != "katas/2026/08/abandoned.jpg" {
		t.Fatalf("expected the stray blob in the report, got %+v", report)
	}
	if report.Count != 0 {
		t.Fatalf("referenced images must not be counted as orphans, got %d", report.Count)
	}
}

func TestRefresh_ShouldDiscardResultWhenContextCancelled(t *testing.T) {
	// given
	service, repo, _ := newTestService()
	repo.Create(&Kata{Name: "Heian Shodan"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when
	err := service.Refresh(ctx)

	// then
	if err == nil {
		t.Fatalf("expected context error")
	}
	if service.Store().Len() != 0 {
		t.Fatalf("cancelled refresh must not touch the snapshot")
	}
}

func kataNames(katas []*Kata) []string {
	names := make([]string, len(katas))
	for i, k := range katas {
		names[i] = k.Name
	}
	return names
}
