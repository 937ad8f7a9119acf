package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"cardscan/internal/repository"
)

// Service is a tiny façade over the card store that produces XLSX bytes for exports.
type Service struct {
	cardsRepo repository.CardStore
	logger    *slog.Logger
}

func NewService(cards repository.CardStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cardsRepo: cards, logger: logger}
}

// ExportCardsXLSX returns an XLSX workbook (as bytes) with one row per
// scanned card, newest first as the store returns them.
func (s *Service) ExportCardsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	cards, err := s.cardsRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Cards"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Name",
		"Job Title",
		"Company",
		"Email",
		"Phone",
		"Address",
		"Website",
		"Scanned At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, c := range cards {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, c.Name)
		write(2, c.JobTitle)
		write(3, c.Company)
		write(4, c.Email)
		write(5, c.Phone)
		write(6, c.Address)
		write(7, c.Website)
		write(8, c.CreatedAt.Format("2006-01-02 15:04"))
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "C", 24)
	_ = f.SetColWidth(sheet, "D", "D", 30)
	_ = f.SetColWidth(sheet, "E", "E", 20)
	_ = f.SetColWidth(sheet, "F", "F", 40)
	_ = f.SetColWidth(sheet, "G", "G", 28)
	_ = f.SetColWidth(sheet, "H", "H", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(cards),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
