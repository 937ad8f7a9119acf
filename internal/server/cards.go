package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cardscan/internal/extract"
)

// decodeRecord reads a card payload. Missing or empty fields are
// normalized to the sentinel so stored records stay total.
func decodeRecord(r *http.Request) (extract.FieldRecord, error) {
	var rec extract.FieldRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return rec, err
	}
	for _, f := range []*string{&rec.Name, &rec.JobTitle, &rec.Company, &rec.Email, &rec.Phone, &rec.Address, &rec.Website} {
		if *f == "" {
			*f = extract.NotFound
		}
	}
	return rec, nil
}

func cardID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.Cards.List(r.Context())
	if err != nil {
		respondError(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		badRequest(w, "invalid json body")
		return
	}
	card, err := s.Cards.CreateFromRecord(r.Context(), rec)
	if err != nil {
		respondError(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, card)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, ok := cardID(r)
	if !ok {
		badRequest(w, "invalid card id")
		return
	}
	card, err := s.Cards.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := cardID(r)
	if !ok {
		badRequest(w, "invalid card id")
		return
	}
	rec, err := decodeRecord(r)
	if err != nil {
		badRequest(w, "invalid json body")
		return
	}
	card, err := s.Cards.Update(r.Context(), id, rec)
	if err != nil {
		respondError(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, ok := cardID(r)
	if !ok {
		badRequest(w, "invalid card id")
		return
	}
	if err := s.Cards.Delete(r.Context(), id); err != nil {
		respondError(w, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
