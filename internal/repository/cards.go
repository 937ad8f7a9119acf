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
	"cardscan/internal/extract"
)

// CardStore persists saved contact records.
type CardStore interface {
	CreateFromRecord(ctx context.Context, rec extract.FieldRecord) (*entity.Card, error)
	List(ctx context.Context) ([]*entity.Card, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Card, error)
	Update(ctx context.Context, id uuid.UUID, rec extract.FieldRecord) (*entity.Card, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type cardStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewCardStore(db *DB, logger *slog.Logger) CardStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &cardStore{db: db.SQL, logger: logger}
}

const cardColumns = `id, name, job_title, company, email, phone, address, website, created_at, updated_at`

func (s *cardStore) CreateFromRecord(ctx context.Context, rec extract.FieldRecord) (*entity.Card, error) {
	now := time.Now().UTC()
	c := &entity.Card{
		ID:        uuid.New(),
		Name:      rec.Name,
		JobTitle:  rec.JobTitle,
		Company:   rec.Company,
		Email:     rec.Email,
		Phone:     rec.Phone,
		Address:   rec.Address,
		Website:   rec.Website,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cards (`+cardColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID.String(), c.Name, c.JobTitle, c.Company, c.Email, c.Phone,
		c.Address, c.Website, fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt),
	)
	if err != nil {
		s.logger.Error("failed to insert card", "error", err)
		return nil, common.WrapError(err, "insert card")
	}
	return c, nil
}

func (s *cardStore) List(ctx context.Context) ([]*entity.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards ORDER BY created_at DESC`)
	if err != nil {
		s.logger.Error("failed to list cards", "error", err)
		return nil, common.WrapError(err, "list cards")
	}
	defer rows.Close()

	var out []*entity.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *cardStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.Card, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id.String())
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return c, err
}

func (s *cardStore) Update(ctx context.Context, id uuid.UUID, rec extract.FieldRecord) (*entity.Card, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cards SET name = $1, job_title = $2, company = $3, email = $4,
		        phone = $5, address = $6, website = $7, updated_at = $8
		 WHERE id = $9`,
		rec.Name, rec.JobTitle, rec.Company, rec.Email, rec.Phone,
		rec.Address, rec.Website, fmtTime(time.Now().UTC()), id.String(),
	)
	if err != nil {
		s.logger.Error("failed to update card", "card_id", id, "error", err)
		return nil, common.WrapError(err, "update card")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, common.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *cardStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id.String())
	if err != nil {
		s.logger.Error("failed to delete card", "card_id", id, "error", err)
		return common.WrapError(err, "delete card")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(r rowScanner) (*entity.Card, error) {
	var (
		c                       entity.Card
		idStr, created, updated string
	)
	if err := r.Scan(&idStr, &c.Name, &c.JobTitle, &c.Company, &c.Email,
		&c.Phone, &c.Address, &c.Website, &created, &updated); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	c.ID = id
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}
