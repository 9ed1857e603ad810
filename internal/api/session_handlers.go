package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/session"
	"github.com/vytor/studyflow/internal/worker"
)

type startSessionRequest struct {
	IsFree  bool     `json:"is_free"`
	ItemIDs []string `json:"item_ids" validate:"max=500,dive,required,max=200"`
}

// attach builds a Coordinator for the request's session and loads the
// current remote state. The caller must Detach it.
func (s *Server) attach(r *http.Request) (*session.Coordinator, error) {
	sessionType := chi.URLParam(r, "type")
	if sessionType == "" || len(sessionType) > 64 || strings.Contains(sessionType, "/") {
		return nil, errors.NewBadRequestError("invalid session type")
	}
	c := s.newCoordinator(userFromContext(r.Context()), sessionType)
	if err := c.Attach(r.Context()); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.attach(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer c.Detach()

	writeJSON(w, r, http.StatusOK, c.Snapshot())
}

// handleStartSession builds the queue from item_ids and starts the session
// in one step.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	c, err := s.attach(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer c.Detach()

	items, err := s.Schedule.ResolveItems(r.Context(), userFromContext(r.Context()), req.ItemIDs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	for _, item := range items {
		if err := c.Add(item); err != nil {
			handleError(w, r, err)
			return
		}
	}

	snap, err := c.Start(r.Context(), req.IsFree)
	if err != nil {
		handleError(w, r, err)
		return
	}
	log.Info("session started: queue=%d, is_free=%t", len(snap.Queue), snap.IsFree)
	writeJSON(w, r, http.StatusCreated, snap)
}

func (s *Server) handleCompleteItem(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	c, err := s.attach(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer c.Detach()

	res, err := c.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !res.Session.Pending {
			handleError(w, r, err)
			return
		}
		// The item effects are durable; only the queue write is missing.
		if s.queueSync(r.Context(), c) {
			log.Warn("completion saved, session write queued for retry: %v", err)
		} else {
			log.Warn("completion saved, session write left for the next request: %v", err)
		}
		writeJSON(w, r, http.StatusAccepted, res)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	c, err := s.attach(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer c.Detach()

	if err := c.Close(r.Context()); err != nil {
		if s.queueSync(r.Context(), c) {
			writeJSON(w, r, http.StatusAccepted, c.Snapshot())
			return
		}
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queueSync hands a coordinator with an unsaved session write to the worker
// pool. It reports whether the retry was queued.
func (s *Server) queueSync(ctx context.Context, c *session.Coordinator) bool {
	if s.Pool == nil {
		return false
	}
	reqLog := logger.FromContext(ctx)
	err := s.Pool.Submit(worker.FuncJob{
		Label: "sync_session",
		Fn: func(ctx context.Context) error {
			return worker.Retry(ctx, s.Retry, c.Sync)
		},
	})
	if err != nil {
		reqLog.Warn("failed to queue session sync: %v", err)
		return false
	}
	return true
}

// handleSessionEvents streams session snapshots as server-sent events until
// the client goes away.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		handleError(w, r, errors.NewInternalError(fmt.Errorf("streaming unsupported")))
		return
	}

	sessionType := chi.URLParam(r, "type")
	if sessionType == "" || len(sessionType) > 64 || strings.Contains(sessionType, "/") {
		handleError(w, r, errors.NewBadRequestError("invalid session type"))
		return
	}
	c := s.newCoordinator(userFromContext(r.Context()), sessionType)

	updates := make(chan session.Snapshot, 1)
	stop := c.OnChange(func(snap session.Snapshot) {
		select {
		case <-updates:
		default:
		}
		updates <- snap
	})
	defer stop()

	if err := c.Attach(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	defer c.Detach()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, c.Snapshot()); err != nil {
		return
	}
	flusher.Flush()
	log.Debug("session event stream opened")

	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("session event stream closed")
			return
		case snap := <-updates:
			if err := writeEvent(w, snap); err != nil {
				log.Debug("client gone: %v", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, snap session.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: session\nid: %d\ndata: %s\n\n", snap.Version, data)
	return err
}
