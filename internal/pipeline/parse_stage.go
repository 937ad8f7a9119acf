package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cardscan/constants"
	"cardscan/internal/extract"
	"cardscan/internal/repository"
)

// Config holds thresholds and behavior flags for the parse stage.
type Config struct {
	MinConfidence float32 // default 0.60
}

type ParseStage struct {
	Logger    *slog.Logger
	Cfg       Config
	JobsRepo  repository.JobStore
	CardsRepo repository.CardStore
	Extractor *extract.Extractor
	schema    map[string]any
}

func NewParseStage(logger *slog.Logger, cfg Config, jobs repository.JobStore, cards repository.CardStore, ex *extract.Extractor) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.60
	}
	if ex == nil {
		ex = extract.NewExtractor(extract.Config{})
	}
	return &ParseStage{
		Logger:    logger,
		Cfg:       cfg,
		JobsRepo:  jobs,
		CardsRepo: cards,
		Extractor: ex,
		schema:    extract.BuildCardJSONSchema(),
	}
}

// Run executes the field-extraction stage for an existing OCR job.
// Preconditions: job is OCR_OK with non-empty ocr_text.
// Effects: writes extracted_json and needs_review, creates the cards row,
// and links the job to it.
func (p *ParseStage) Run(ctx context.Context, jobID uuid.UUID) (uuid.UUID, error) {
	job, err := p.JobsRepo.GetByID(ctx, jobID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load job: %w", err)
	}
	if job.Status != string(constants.JobStatusOCROK) || job.OCRText == nil {
		return job.ID, fmt.Errorf("job not ready for parse: status=%s ocr_text_empty=%t", job.Status, job.OCRText == nil)
	}

	p.Logger.Info("parsestage.start", "job_id", job.ID, "ocr_bytes", len(*job.OCRText))

	rec, err := p.Extractor.Extract(*job.OCRText)
	if err != nil {
		_ = p.JobsRepo.FinishParseFailure(ctx, job.ID, err.Error())
		return job.ID, fmt.Errorf("extract fields: %w", err)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		_ = p.JobsRepo.FinishParseFailure(ctx, job.ID, err.Error())
		return job.ID, fmt.Errorf("marshal record: %w", err)
	}
	if err := extract.ValidateRecordJSON(p.schema, raw); err != nil {
		_ = p.JobsRepo.FinishParseFailure(ctx, job.ID, err.Error())
		return job.ID, fmt.Errorf("validate record: %w", err)
	}

	needsReview := p.needsReview(rec, job.Confidence)

	card, err := p.CardsRepo.CreateFromRecord(ctx, rec)
	if err != nil {
		_ = p.JobsRepo.FinishParseFailure(ctx, job.ID, err.Error())
		return job.ID, fmt.Errorf("create card: %w", err)
	}

	if err := p.JobsRepo.FinishParseSuccess(ctx, job.ID, card.ID, raw, needsReview); err != nil {
		return job.ID, err
	}

	p.Logger.Info("parsestage.ok",
		"job_id", job.ID,
		"card_id", card.ID,
		"needs_review", needsReview,
	)
	return job.ID, nil
}

// needsReview flags low-confidence scans and records where the anchor
// fields came back empty.
func (p *ParseStage) needsReview(rec extract.FieldRecord, confidence float32) bool {
	if confidence < p.Cfg.MinConfidence {
		return true
	}
	if rec.Name == extract.NotFound {
		return true
	}
	if rec.Email == extract.NotFound && rec.Phone == extract.NotFound {
		return true
	}
	return false
}
