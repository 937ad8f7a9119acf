package server

import (
	"net/http"
)

// handleExport streams the card table as an XLSX attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.Exporter.ExportCardsXLSX(r.Context())
	if err != nil {
		respondError(w, s.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="business_cards.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
