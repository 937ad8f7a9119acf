package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"cardscan/internal/async"
	"cardscan/internal/ingest"
)

const maxUploadBytes = 32 << 20 // 32 MiB

type scanResponse struct {
	FileID       uuid.UUID `json:"file_id"`
	JobID        uuid.UUID `json:"job_id"`
	Deduplicated bool      `json:"deduplicated"`
	Card         any       `json:"card,omitempty"`
	NeedsReview  bool      `json:"needs_review,omitempty"`
	Queued       bool      `json:"queued,omitempty"`
}

// handleScan accepts a multipart upload, stores and ingests the file,
// and runs the scan pipeline. With ?async=true the file is queued and
// the response is 202.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, "expected multipart form with a file field")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing file field")
		return
	}
	defer f.Close()

	path, err := ingest.SaveUpload(s.UploadDir, hdr.Filename, f)
	if err != nil {
		respondError(w, s.Logger, err)
		return
	}

	res, err := s.Ingestor.IngestPath(r.Context(), path)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if r.URL.Query().Get("async") == "true" {
		// The job row exists before the 202 goes out, so the returned ID
		// is immediately pollable on /api/jobs/{id}.
		queued, err := s.Jobs.Enqueue(r.Context(), res.FileID)
		if err != nil {
			respondError(w, s.Logger, err)
			return
		}
		job := async.Job{
			FileID:      res.FileID,
			JobID:       queued.ID,
			Force:       res.Deduplicated,
			SubmittedAt: time.Now(),
			TraceID:     chimw.GetReqID(r.Context()),
		}
		if err := s.Queue.Enqueue(r.Context(), job); err != nil {
			respondError(w, s.Logger, err)
			return
		}
		respondJSON(w, http.StatusAccepted, scanResponse{
			FileID:       res.FileID,
			JobID:        queued.ID,
			Deduplicated: res.Deduplicated,
			Queued:       true,
		})
		return
	}

	jobID, err := s.Processor.ProcessFile(r.Context(), res.FileID)
	if err != nil {
		respondError(w, s.Logger, err)
		return
	}

	job, err := s.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		respondError(w, s.Logger, err)
		return
	}
	out := scanResponse{
		FileID:       res.FileID,
		JobID:        jobID,
		Deduplicated: res.Deduplicated,
		NeedsReview:  job.NeedsReview,
	}
	if job.CardID != nil {
		card, err := s.Cards.GetByID(r.Context(), *job.CardID)
		if err == nil {
			out.Card = card
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid job id")
		return
	}
	job, err := s.Jobs.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}
