package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cardscan/constants"
	"cardscan/internal/ocr"
	"cardscan/internal/repository"
)

// Compressor shrinks an image file in place before OCR upload.
type Compressor interface {
	Compress(ctx context.Context, path string) error
}

// Recognizer turns an image file into raw text.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (ocr.Result, error)
}

type OCRStage struct {
	FilesRepo  repository.FileStore
	JobsRepo   repository.JobStore
	Compressor Compressor
	Recognizer Recognizer
	Log        *slog.Logger
}

func NewOCRStage(files repository.FileStore, jobs repository.JobStore, comp Compressor, rec Recognizer, log *slog.Logger) *OCRStage {
	if log == nil {
		log = slog.Default()
	}
	return &OCRStage{FilesRepo: files, JobsRepo: jobs, Compressor: comp, Recognizer: rec, Log: log}
}

// Run starts a scan job for fileID, compresses the source image, runs OCR,
// and persists the recognized text. The parse stage is NOT called.
func (s *OCRStage) Run(ctx context.Context, fileID uuid.UUID) (uuid.UUID, ocr.Result, error) {
	return s.run(ctx, uuid.Nil, fileID)
}

// Resume is Run for a job already sitting in QUEUED: the worker claims it
// instead of starting a fresh one, so the ID handed out at enqueue time
// stays valid.
func (s *OCRStage) Resume(ctx context.Context, jobID, fileID uuid.UUID) (uuid.UUID, ocr.Result, error) {
	return s.run(ctx, jobID, fileID)
}

func (s *OCRStage) run(ctx context.Context, jobID, fileID uuid.UUID) (uuid.UUID, ocr.Result, error) {
	row, err := s.FilesRepo.GetByID(ctx, fileID)
	if err != nil {
		return jobID, ocr.Result{}, fmt.Errorf("get file: %w", err)
	}

	if _, ok := constants.AllowedExtensions[row.FileExt]; !ok {
		err := fmt.Errorf("unsupported format: %s", row.FileExt)
		if jobID != uuid.Nil {
			_ = s.JobsRepo.FinishOCR(ctx, jobID, repository.OCROutcome{ErrorMessage: err.Error()})
		}
		return jobID, ocr.Result{}, err
	}

	if jobID == uuid.Nil {
		job, err := s.JobsRepo.Start(ctx, row.ID)
		if err != nil {
			return uuid.Nil, ocr.Result{}, err
		}
		jobID = job.ID
	} else if err := s.JobsRepo.MarkRunning(ctx, jobID); err != nil {
		return jobID, ocr.Result{}, err
	}

	// Compression failures are non-fatal; OCR runs on the original file.
	if s.Compressor != nil {
		if err := s.Compressor.Compress(ctx, row.SourcePath); err != nil {
			s.Log.Warn("ocrstage.compress.failed", "file_id", row.ID, "err", err)
		}
	}

	res, err := s.Recognizer.Recognize(ctx, row.SourcePath)
	if err != nil {
		_ = s.JobsRepo.FinishOCR(ctx, jobID, repository.OCROutcome{ErrorMessage: err.Error()})
		return jobID, res, err
	}

	out := repository.OCROutcome{
		OCRText:    res.Text,
		Confidence: res.Confidence,
	}
	if err := s.JobsRepo.FinishOCR(ctx, jobID, out); err != nil {
		return jobID, res, err
	}

	return jobID, res, nil
}
