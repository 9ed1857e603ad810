package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/services"
)

type stageRequest struct {
	Stage *int `json:"stage" validate:"required,gte=0,lte=1000"`
}

func (s *Server) handleDueItems(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			handleError(w, r, errors.NewBadRequestError("at must be an RFC 3339 timestamp"))
			return
		}
		now = at
	}

	items, err := s.Schedule.GetDueItems(r.Context(), userFromContext(r.Context()), now)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"cutoff": s.Schedule.Engine().EndOfDay(now),
		"items":  items,
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	items, err := s.Schedule.GetNewSuggestions(r.Context(), userFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	ordinal, err := intParam(r, "ordinal")
	if err != nil {
		handleError(w, r, err)
		return
	}
	item, err := s.Schedule.GetItem(r.Context(), userFromContext(r.Context()), chi.URLParam(r, "subject"), ordinal)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) handleSetStage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	ordinal, err := intParam(r, "ordinal")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req stageRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	subject := chi.URLParam(r, "subject")
	item, err := s.Schedule.ManualSetStage(r.Context(), userFromContext(r.Context()), subject, ordinal, *req.Stage, s.now())
	if err != nil {
		handleError(w, r, err)
		return
	}
	log.Info("stage set manually: item_id=%s, stage=%d", item.ID, item.Stage)
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req services.TaskInput
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	item, err := s.Schedule.CreateTask(r.Context(), userFromContext(r.Context()), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, item)
}
