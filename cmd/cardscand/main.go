package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cardscan/internal/async"
	"cardscan/internal/common"
	"cardscan/internal/compress"
	"cardscan/internal/export"
	"cardscan/internal/ingest"
	"cardscan/internal/ocr"
	"cardscan/internal/pipeline"
	"cardscan/internal/repository"
	"cardscan/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
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
	processor := pipeline.NewProcessor(logger, ocrStage, parseStage)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(4),
		async.WithQueueSize(256),
		async.WithProcessTimeout(3*time.Minute),
	)

	ingestor := ingest.NewFSIngestor(files, logger)
	exporter := export.NewService(cards, logger)

	srv := server.New(logger, cfg.Server.UploadDir, db, cards, jobs, ingestor, processor, queue, exporter)

	err = srv.ListenAndServe(ctx, cfg.Server.HTTPAddr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	logger.Info("cardscand stopped")
}
