package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cardscan/internal/common"
	"cardscan/internal/entity"
)

// UpsertFileParams wraps the attributes of an ingested card image.
type UpsertFileParams struct {
	SourcePath  string
	Filename    string
	FileExt     string
	FileSize    int64
	ContentHash string // sha256, hex
	UploadedAt  time.Time
}

// FileStore tracks uploaded card images, deduplicated by content hash.
type FileStore interface {
	// UpsertByHash returns the existing row (deduplicated=true) when the
	// content hash is already known, otherwise inserts a new one.
	UpsertByHash(ctx context.Context, p UpsertFileParams) (*entity.CardFile, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.CardFile, error)
}

type fileStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewFileStore(db *DB, logger *slog.Logger) FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileStore{db: db.SQL, logger: logger}
}

const fileColumns = `id, source_path, filename, file_ext, file_size, content_hash, uploaded_at`

func (s *fileStore) UpsertByHash(ctx context.Context, p UpsertFileParams) (*entity.CardFile, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM card_files WHERE content_hash = $1`, p.ContentHash)
	existing, err := scanFile(row)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("failed to look up file by hash", "error", err)
		return nil, false, common.WrapError(err, "lookup file")
	}

	f := &entity.CardFile{
		ID:          uuid.New(),
		SourcePath:  p.SourcePath,
		Filename:    p.Filename,
		FileExt:     p.FileExt,
		FileSize:    p.FileSize,
		ContentHash: p.ContentHash,
		UploadedAt:  p.UploadedAt.UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO card_files (`+fileColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID.String(), f.SourcePath, f.Filename, f.FileExt, f.FileSize,
		f.ContentHash, fmtTime(f.UploadedAt),
	)
	if err != nil {
		s.logger.Error("failed to insert file", "error", err)
		return nil, false, common.WrapError(err, "insert file")
	}
	return f, false, nil
}

func (s *fileStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.CardFile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM card_files WHERE id = $1`, id.String())
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return f, err
}

func scanFile(r rowScanner) (*entity.CardFile, error) {
	var (
		f               entity.CardFile
		idStr, uploaded string
	)
	if err := r.Scan(&idStr, &f.SourcePath, &f.Filename, &f.FileExt,
		&f.FileSize, &f.ContentHash, &uploaded); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	f.ID = id
	f.UploadedAt = parseTime(uploaded)
	return &f, nil
}
