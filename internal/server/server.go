package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"cardscan/internal/async"
	"cardscan/internal/export"
	"cardscan/internal/ingest"
	"cardscan/internal/pipeline"
	"cardscan/internal/repository"
)

// Server wires the HTTP surface over the scan pipeline and stores.
type Server struct {
	Logger    *slog.Logger
	UploadDir string

	DB        *repository.DB
	Cards     repository.CardStore
	Jobs      repository.JobStore
	Ingestor  ingest.Ingestor
	Processor *pipeline.Processor
	Queue     async.Queue
	Exporter  *export.Service
}

func New(logger *slog.Logger, uploadDir string, db *repository.DB, cards repository.CardStore, jobs repository.JobStore, ing ingest.Ingestor, proc *pipeline.Processor, queue async.Queue, exp *export.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Logger:    logger,
		UploadDir: uploadDir,
		DB:        db,
		Cards:     cards,
		Jobs:      jobs,
		Ingestor:  ing,
		Processor: proc,
		Queue:     queue,
		Exporter:  exp,
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/export", s.handleExport)
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.handleListCards)
			r.Post("/", s.handleCreateCard)
			r.Get("/{id}", s.handleGetCard)
			r.Put("/{id}", s.handleUpdateCard)
			r.Delete("/{id}", s.handleDeleteCard)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.DB.HealthCheck(r.Context(), 2*time.Second); err != nil {
		respondError(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListenAndServe runs the HTTP server until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("http.listen", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
