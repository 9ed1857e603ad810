package api

import (
	"database/sql"
	"time"

	"github.com/vytor/studyflow/internal/jobs"
	"github.com/vytor/studyflow/internal/repository"
	"github.com/vytor/studyflow/internal/services"
	"github.com/vytor/studyflow/internal/session"
	"github.com/vytor/studyflow/internal/worker"
)

// Server holds the dependencies of the HTTP handlers. Session handlers build
// a fresh Coordinator per request; nothing about a session is cached here.
type Server struct {
	Schedule services.ScheduleService
	Logs     services.LogService
	Sessions repository.SessionRepository
	Items    repository.ItemRepository
	Jobs     jobs.JobQueue
	Pool     *worker.Pool
	Retry    worker.RetryPolicy
	DB       *sql.DB
	Now      func() time.Time

	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) newCoordinator(user, sessionType string) *session.Coordinator {
	return session.New(session.Options{
		User:     user,
		Type:     sessionType,
		Sessions: s.Sessions,
		Items:    s.Items,
		Logs:     s.Logs,
		Engine:   s.Schedule.Engine(),
		Jobs:     s.Jobs,
		Retry:    s.Retry,
		Now:      s.now,
	})
}
