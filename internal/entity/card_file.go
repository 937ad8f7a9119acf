package entity

import (
	"time"

	"github.com/google/uuid"
)

// CardFile is an uploaded card image tracked by content hash.
type CardFile struct {
	ID          uuid.UUID `json:"id"`
	SourcePath  string    `json:"source_path"`
	Filename    string    `json:"filename"`
	FileExt     string    `json:"file_ext"`
	FileSize    int64     `json:"file_size"`
	ContentHash string    `json:"content_hash"` // sha256, hex
	UploadedAt  time.Time `json:"uploaded_at"`
}
