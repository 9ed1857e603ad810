package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/models"
)

type subjectRequest struct {
	DisplayName    string `json:"display_name" validate:"max=128"`
	TotalItemCount int    `json:"total_item_count" validate:"gte=0,lte=100000"`
}

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.Schedule.ListSubjects(r.Context(), userFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"subjects": subjects})
}

func (s *Server) handleSaveSubject(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req subjectRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	subject := models.Subject{
		Code:           chi.URLParam(r, "code"),
		DisplayName:    req.DisplayName,
		TotalItemCount: req.TotalItemCount,
	}
	if err := s.Schedule.SaveSubject(r.Context(), userFromContext(r.Context()), subject); err != nil {
		handleError(w, r, err)
		return
	}
	log.Info("subject saved: code=%s", subject.Code)
	writeJSON(w, r, http.StatusOK, subject)
}

func (s *Server) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	if err := s.Schedule.DeleteSubject(r.Context(), userFromContext(r.Context()), chi.URLParam(r, "code")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetSubject(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	n, err := s.Schedule.ResetSubject(r.Context(), userFromContext(r.Context()), code)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"subject": code, "deleted": n})
}
