package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScanJob tracks one pass of a card file through the OCR and parse stages.
type ScanJob struct {
	ID            uuid.UUID       `json:"id"`
	FileID        uuid.UUID       `json:"file_id"`
	CardID        *uuid.UUID      `json:"card_id,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	Status        string          `json:"status"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	OCRText       *string         `json:"ocr_text,omitempty"`
	Confidence    float32         `json:"confidence"`
	NeedsReview   bool            `json:"needs_review"`
	ExtractedJSON json.RawMessage `json:"extracted_json,omitempty"`
}
