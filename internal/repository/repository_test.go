package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"cardscan/constants"
	"cardscan/internal/common"
	"cardscan/internal/extract"
)

// openTestDB opens a throwaway SQLite store with the schema applied.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: filepath.Join(t.TempDir(), "cards.db")}, nil)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close(nil) })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleRecord() extract.FieldRecord {
	return extract.FieldRecord{
		Name:     "Jane Doe",
		JobTitle: "Director",
		Company:  "Acme Corp",
		Email:    "jane@acme.com",
		Phone:    "+1 555 123 4567",
		Address:  extract.NotFound,
		Website:  "www.acme.com",
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	if err := db.HealthCheck(context.Background(), time.Second); err != nil {
		t.Errorf("health check failed: %v", err)
	}
}

func TestCardStoreCRUD(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	store := NewCardStore(db, nil)
	ctx := context.Background()

	created, err := store.CreateFromRecord(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("expected a generated ID")
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Jane Doe" || got.Company != "Acme Corp" {
		t.Errorf("unexpected card: %+v", got)
	}
	if got.Address != extract.NotFound {
		t.Errorf("sentinel must round-trip, got %q", got.Address)
	}

	rec := sampleRecord()
	rec.Name = "Jane A. Doe"
	updated, err := store.Update(ctx, created.ID, rec)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Jane A. Doe" {
		t.Errorf("expected updated name, got %q", updated.Name)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 card, got %d", len(list))
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, created.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCardStoreNotFound(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	store := NewCardStore(db, nil)
	ctx := context.Background()

	if _, err := store.GetByID(ctx, uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("get: expected ErrNotFound, got %v", err)
	}
	if _, err := store.Update(ctx, uuid.New(), sampleRecord()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("update: expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("delete: expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreDedup(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	store := NewFileStore(db, nil)
	ctx := context.Background()

	p := UpsertFileParams{
		SourcePath:  "/tmp/cards/1700000000_card.jpg",
		Filename:    "card.jpg",
		FileExt:     "jpg",
		FileSize:    1234,
		ContentHash: "deadbeef",
		UploadedAt:  time.Now(),
	}
	first, dedup, err := store.UpsertByHash(ctx, p)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if dedup {
		t.Error("first upsert must not be deduplicated")
	}

	p.SourcePath = "/tmp/cards/1700000001_card.jpg"
	second, dedup, err := store.UpsertByHash(ctx, p)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if !dedup {
		t.Error("same hash must be deduplicated")
	}
	if second.ID != first.ID {
		t.Errorf("dedup must return the original row, got %s vs %s", second.ID, first.ID)
	}

	got, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ContentHash != "deadbeef" {
		t.Errorf("unexpected hash %q", got.ContentHash)
	}
}

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	files := NewFileStore(db, nil)
	jobs := NewJobStore(db, nil)
	cards := NewCardStore(db, nil)
	ctx := context.Background()

	file, _, err := files.UpsertByHash(ctx, UpsertFileParams{
		SourcePath: "/tmp/c.jpg", Filename: "c.jpg", FileExt: "jpg",
		FileSize: 10, ContentHash: "cafe", UploadedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("file: %v", err)
	}

	job, err := jobs.Start(ctx, file.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if job.Status != string(constants.JobStatusRunning) {
		t.Errorf("expected RUNNING, got %s", job.Status)
	}

	if err := jobs.FinishOCR(ctx, job.ID, OCROutcome{OCRText: "Jane Doe", Confidence: 0.7}); err != nil {
		t.Fatalf("finish ocr: %v", err)
	}
	got, err := jobs.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(constants.JobStatusOCROK) {
		t.Errorf("expected OCR_OK, got %s", got.Status)
	}
	if got.OCRText == nil || *got.OCRText != "Jane Doe" {
		t.Errorf("ocr text not persisted: %+v", got)
	}
	if got.Confidence < 0.69 || got.Confidence > 0.71 {
		t.Errorf("confidence not persisted, got %v", got.Confidence)
	}

	card, err := cards.CreateFromRecord(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("card: %v", err)
	}
	if err := jobs.FinishParseSuccess(ctx, job.ID, card.ID, []byte(`{"name":"Jane Doe"}`), true); err != nil {
		t.Fatalf("finish parse: %v", err)
	}
	got, err = jobs.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(constants.JobStatusParseOK) {
		t.Errorf("expected PARSE_OK, got %s", got.Status)
	}
	if got.CardID == nil || *got.CardID != card.ID {
		t.Errorf("job not linked to card: %+v", got)
	}
	if !got.NeedsReview {
		t.Error("needs_review must be set")
	}
	if got.FinishedAt == nil {
		t.Error("finished_at must be set")
	}
}

func TestJobStoreEnqueueClaim(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	files := NewFileStore(db, nil)
	jobs := NewJobStore(db, nil)
	ctx := context.Background()

	file, _, err := files.UpsertByHash(ctx, UpsertFileParams{
		SourcePath: "/tmp/q.jpg", Filename: "q.jpg", FileExt: "jpg",
		FileSize: 10, ContentHash: "beef", UploadedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("file: %v", err)
	}

	job, err := jobs.Enqueue(ctx, file.ID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.Status != string(constants.JobStatusQueued) {
		t.Errorf("expected QUEUED, got %s", job.Status)
	}

	before := time.Now()
	if err := jobs.MarkRunning(ctx, job.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	got, err := jobs.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(constants.JobStatusRunning) {
		t.Errorf("expected RUNNING, got %s", got.Status)
	}
	if got.StartedAt.Before(before.Add(-time.Second)) {
		t.Errorf("started_at not refreshed on claim: %v", got.StartedAt)
	}

	if err := jobs.MarkRunning(ctx, uuid.New()); err == nil {
		t.Error("claiming an unknown job must fail")
	}
}

func TestJobStoreFailure(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	files := NewFileStore(db, nil)
	jobs := NewJobStore(db, nil)
	ctx := context.Background()

	file, _, err := files.UpsertByHash(ctx, UpsertFileParams{
		SourcePath: "/tmp/x.jpg", Filename: "x.jpg", FileExt: "jpg",
		FileSize: 10, ContentHash: "f00d", UploadedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	job, err := jobs.Start(ctx, file.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := jobs.FinishOCR(ctx, job.ID, OCROutcome{ErrorMessage: "ocr blew up"}); err != nil {
		t.Fatalf("finish ocr: %v", err)
	}
	got, err := jobs.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(constants.JobStatusFailed) {
		t.Errorf("expected FAILED, got %s", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "ocr blew up" {
		t.Errorf("error message not persisted: %+v", got)
	}
}
