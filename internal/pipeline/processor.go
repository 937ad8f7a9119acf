package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Processor coordinates OCR (text recognition) then field parse (card).
type Processor struct {
	Logger *slog.Logger
	OCR    *OCRStage
	Parse  *ParseStage
}

func NewProcessor(logger *slog.Logger, ocr *OCRStage, parse *ParseStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, OCR: ocr, Parse: parse}
}

// ProcessFile runs OCR for a fileID (starting a fresh scan job), then
// parses the recognized text into a card.
// Returns the final jobID (same one started by OCR).
func (p *Processor) ProcessFile(ctx context.Context, fileID uuid.UUID) (uuid.UUID, error) {
	return p.process(ctx, uuid.Nil, fileID)
}

// ProcessJob is the queue entry point: a Nil jobID starts a fresh job,
// anything else resumes the QUEUED row created at enqueue time.
func (p *Processor) ProcessJob(ctx context.Context, jobID, fileID uuid.UUID) (uuid.UUID, error) {
	return p.process(ctx, jobID, fileID)
}

func (p *Processor) process(ctx context.Context, queuedID, fileID uuid.UUID) (uuid.UUID, error) {
	jobID, ocrRes, err := p.OCR.run(ctx, queuedID, fileID)
	if err != nil {
		p.Logger.Error("processor.ocr.failed", "file_id", fileID, "err", err)
		return jobID, err
	}
	p.Logger.Info("processor.ocr.ok",
		"file_id", fileID,
		"job_id", jobID,
		"duration", ocrRes.Duration,
		"confidence", ocrRes.Confidence,
	)

	if _, err := p.Parse.Run(ctx, jobID); err != nil {
		p.Logger.Error("processor.parse.failed", "job_id", jobID, "err", err)
		return jobID, err
	}
	p.Logger.Info("processor.parse.ok", "job_id", jobID)
	return jobID, nil
}
