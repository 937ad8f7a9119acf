package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cardscan/constants"
	"cardscan/internal/repository"
)

// FSIngestor reads card images from the local filesystem.
type FSIngestor struct {
	FilesRepo   repository.FileStore
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> default set
	Logger      *slog.Logger
}

func NewFSIngestor(files repository.FileStore, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{FilesRepo: files, Logger: logger}
}

func (i *FSIngestor) allowedExt(ext string) bool {
	exts := i.AllowedExts
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	_, ok := exts[ext]
	return ok
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		i.Logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !i.allowedExt(ext) {
		i.Logger.Warn("unsupported or missing extension", "ext", ext, "path", abs)
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		i.Logger.Error("open error", "path", abs, "error", err)
		return out, err
	}
	defer func(f *os.File) {
		if cerr := f.Close(); cerr != nil {
			i.Logger.Warn("close file error", "path", abs, "error", cerr)
		}
	}(f)

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		i.Logger.Error("hash error", "path", abs, "error", err)
		return out, err
	}
	hashHex := hex.EncodeToString(h.Sum(nil))
	now := time.Now().UTC()

	row, dedup, err := i.FilesRepo.UpsertByHash(ctx, repository.UpsertFileParams{
		SourcePath:  abs,
		Filename:    filepath.Base(abs),
		FileExt:     ext,
		FileSize:    size,
		ContentHash: hashHex,
		UploadedAt:  now,
	})
	if err != nil {
		return out, err
	}

	out = IngestionResult{
		SourcePath:   row.SourcePath,
		FileID:       row.ID,
		Deduplicated: dedup,
		HashHex:      hashHex,
		FileExt:      row.FileExt,
		UploadedAt:   row.UploadedAt,
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and calls
// IngestPath for each matching file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if !i.allowedExt(ext) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
