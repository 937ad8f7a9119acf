package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cardscan/constants"
	"cardscan/internal/common"
	"cardscan/internal/entity"
)

// OCROutcome carries the result of the OCR stage onto the job row.
type OCROutcome struct {
	OCRText      string
	Confidence   float32
	NeedsReview  bool
	ErrorMessage string // non-empty marks the job FAILED
}

// JobStore tracks scan jobs through the OCR and parse stages.
type JobStore interface {
	// Enqueue creates a job in QUEUED for background processing, so the
	// caller has a pollable ID before a worker picks the file up.
	Enqueue(ctx context.Context, fileID uuid.UUID) (*entity.ScanJob, error)
	// MarkRunning advances a queued job when a worker claims it.
	MarkRunning(ctx context.Context, jobID uuid.UUID) error
	Start(ctx context.Context, fileID uuid.UUID) (*entity.ScanJob, error)
	FinishOCR(ctx context.Context, jobID uuid.UUID, out OCROutcome) error
	FinishParseSuccess(ctx context.Context, jobID, cardID uuid.UUID, extracted []byte, needsReview bool) error
	FinishParseFailure(ctx context.Context, jobID uuid.UUID, msg string) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ScanJob, error)
}

type jobStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewJobStore(db *DB, logger *slog.Logger) JobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobStore{db: db.SQL, logger: logger}
}

const jobColumns = `id, file_id, card_id, started_at, finished_at, status,
	error_message, ocr_text, confidence, needs_review, extracted_json`

func (s *jobStore) Enqueue(ctx context.Context, fileID uuid.UUID) (*entity.ScanJob, error) {
	return s.insert(ctx, fileID, constants.JobStatusQueued)
}

func (s *jobStore) Start(ctx context.Context, fileID uuid.UUID) (*entity.ScanJob, error) {
	return s.insert(ctx, fileID, constants.JobStatusRunning)
}

func (s *jobStore) insert(ctx context.Context, fileID uuid.UUID, status constants.JobStatus) (*entity.ScanJob, error) {
	j := &entity.ScanJob{
		ID:        uuid.New(),
		FileID:    fileID,
		StartedAt: time.Now().UTC(),
		Status:    string(status),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_jobs (id, file_id, started_at, status) VALUES ($1, $2, $3, $4)`,
		j.ID.String(), j.FileID.String(), fmtTime(j.StartedAt), j.Status,
	)
	if err != nil {
		s.logger.Error("failed to create job", "file_id", fileID, "status", status, "error", err)
		return nil, common.WrapError(err, "create job")
	}
	return j, nil
}

func (s *jobStore) MarkRunning(ctx context.Context, jobID uuid.UUID) error {
	return s.exec(ctx,
		`UPDATE scan_jobs SET status = $1, started_at = $2 WHERE id = $3`,
		string(constants.JobStatusRunning), fmtTime(time.Now().UTC()), jobID.String())
}

func (s *jobStore) FinishOCR(ctx context.Context, jobID uuid.UUID, out OCROutcome) error {
	if out.ErrorMessage != "" {
		return s.exec(ctx,
			`UPDATE scan_jobs SET status = $1, error_message = $2, finished_at = $3 WHERE id = $4`,
			string(constants.JobStatusFailed), out.ErrorMessage, fmtTime(time.Now().UTC()), jobID.String())
	}
	return s.exec(ctx,
		`UPDATE scan_jobs SET status = $1, ocr_text = $2, confidence = $3, needs_review = $4 WHERE id = $5`,
		string(constants.JobStatusOCROK), out.OCRText, out.Confidence, out.NeedsReview, jobID.String())
}

func (s *jobStore) FinishParseSuccess(ctx context.Context, jobID, cardID uuid.UUID, extracted []byte, needsReview bool) error {
	return s.exec(ctx,
		`UPDATE scan_jobs SET status = $1, card_id = $2, extracted_json = $3,
		        needs_review = (needs_review OR $4), finished_at = $5
		 WHERE id = $6`,
		string(constants.JobStatusParseOK), cardID.String(), string(extracted),
		needsReview, fmtTime(time.Now().UTC()), jobID.String())
}

func (s *jobStore) FinishParseFailure(ctx context.Context, jobID uuid.UUID, msg string) error {
	return s.exec(ctx,
		`UPDATE scan_jobs SET status = $1, error_message = $2, finished_at = $3 WHERE id = $4`,
		string(constants.JobStatusFailed), msg, fmtTime(time.Now().UTC()), jobID.String())
}

func (s *jobStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.ScanJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM scan_jobs WHERE id = $1`, id.String())
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return j, err
}

func (s *jobStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("job update failed", "error", err)
		return common.WrapError(err, "update job")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanJob(r rowScanner) (*entity.ScanJob, error) {
	var (
		j                entity.ScanJob
		idStr, fileIDStr string
		cardID           sql.NullString
		started          string
		finished         sql.NullString
		errMsg, ocrText  sql.NullString
		confidence       float64
		extracted        sql.NullString
	)
	if err := r.Scan(&idStr, &fileIDStr, &cardID, &started, &finished,
		&j.Status, &errMsg, &ocrText, &confidence, &j.NeedsReview, &extracted); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	fileID, err := uuid.Parse(fileIDStr)
	if err != nil {
		return nil, err
	}
	j.ID = id
	j.FileID = fileID
	j.StartedAt = parseTime(started)
	j.Confidence = float32(confidence)
	if cardID.Valid {
		cid, err := uuid.Parse(cardID.String)
		if err != nil {
			return nil, err
		}
		j.CardID = &cid
	}
	if finished.Valid {
		t := parseTime(finished.String)
		j.FinishedAt = &t
	}
	if errMsg.Valid {
		j.ErrorMessage = &errMsg.String
	}
	if ocrText.Valid {
		j.OCRText = &ocrText.String
	}
	if extracted.Valid {
		j.ExtractedJSON = json.RawMessage(extracted.String)
	}
	return &j, nil
}
