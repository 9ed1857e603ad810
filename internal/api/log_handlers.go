package api

import (
	"net/http"

	"github.com/vytor/studyflow/internal/models"
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Logs.GetHistory(r.Context(), userFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleMonthAchievements(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r, "year")
	if err != nil {
		handleError(w, r, err)
		return
	}
	month, err := intParam(r, "month")
	if err != nil {
		handleError(w, r, err)
		return
	}

	days, err := s.Logs.GetMonthAchievements(r.Context(), userFromContext(r.Context()), year, month)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"days":    days,
		"summary": models.Summarize(year, month, days),
	})
}
