package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"cardscan/internal/common"
	"cardscan/internal/compress"
	"cardscan/internal/ingest"
	"cardscan/internal/ocr"
	"cardscan/internal/pipeline"
	"cardscan/internal/repository"
)

// runscan scans a single card image (or a directory of them) from the
// command line and prints the extracted fields as JSON.
func main() {
	var (
		path = flag.String("path", "", "card image file or directory to scan")
		dir  = flag.Bool("dir", false, "treat -path as a directory")
	)
	flag.Parse()
	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: runscan -path <file|dir> [-dir]")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: cfg.Database.DSN}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	cards := repository.NewCardStore(db, logger)
	files := repository.NewFileStore(db, logger)
	jobs := repository.NewJobStore(db, logger)

	compressor := compress.NewClient(compress.Config{
		APIKey:   cfg.Compress.APIKey,
		Endpoint: cfg.Compress.Endpoint,
		Timeout:  cfg.Compress.Timeout,
	}, logger)
	recognizer := ocr.NewClient(ocr.Config{
		APIKey:      cfg.OCR.APIKey,
		Endpoint:    cfg.OCR.Endpoint,
		Language:    cfg.OCR.Language,
		Engine:      cfg.OCR.Engine,
		MinInterval: cfg.OCR.MinInterval,
		MaxRetries:  cfg.OCR.MaxRetries,
		Timeout:     cfg.OCR.Timeout,
	}, logger)

	ocrStage := pipeline.NewOCRStage(files, jobs, compressor, recognizer, logger)
	parseStage := pipeline.NewParseStage(logger, pipeline.Config{}, jobs, cards, nil)
	proc := pipeline.NewProcessor(logger, ocrStage, parseStage)
	ingestor := ingest.NewFSIngestor(files, logger)

	if *dir {
		results, stats, err := ingestor.IngestDirectory(ctx, *path, true)
		if err != nil {
			logger.Error("ingest directory failed", "error", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "scanned=%d ingested=%d deduplicated=%d failed=%d\n",
			stats.Scanned, stats.Succeeded, stats.Deduplicated, stats.Failed)
		for _, res := range results {
			if res.Err != "" {
				continue
			}
			scanOne(ctx, proc, jobs, cards, res.FileID)
		}
		return
	}

	res, err := ingestor.IngestPath(ctx, *path)
	if err != nil {
		logger.Error("ingest failed", "path", *path, "error", err)
		os.Exit(1)
	}
	scanOne(ctx, proc, jobs, cards, res.FileID)
}

func scanOne(ctx context.Context, proc *pipeline.Processor, jobs repository.JobStore, cards repository.CardStore, fileID uuid.UUID) {
	runCtx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	jobID, err := proc.ProcessFile(runCtx, fileID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed for file %s: %v\n", fileID, err)
		return
	}
	job, err := jobs.GetByID(ctx, jobID)
	if err != nil || job.CardID == nil {
		fmt.Fprintf(os.Stderr, "no card for job %s\n", jobID)
		return
	}
	card, err := cards.GetByID(ctx, *job.CardID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load card: %v\n", err)
		return
	}
	out, _ := json.MarshalIndent(card, "", "  ")
	fmt.Println(string(out))
}
