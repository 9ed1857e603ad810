package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(userMiddleware)

		r.Get("/subjects", s.handleListSubjects)
		r.Put("/subjects/{code}", s.handleSaveSubject)
		r.Delete("/subjects/{code}", s.handleDeleteSubject)
		r.Post("/subjects/{code}/reset", s.handleResetSubject)

		r.Get("/items/due", s.handleDueItems)
		r.Get("/items/suggestions", s.handleSuggestions)
		r.Get("/items/{subject}/{ordinal}", s.handleGetItem)
		r.Put("/items/{subject}/{ordinal}/stage", s.handleSetStage)
		r.Post("/tasks", s.handleCreateTask)

		r.Get("/history", s.handleHistory)
		r.Get("/achievements/{year}/{month}", s.handleMonthAchievements)

		r.Route("/sessions/{type}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/", s.handleStartSession)
			r.Delete("/", s.handleCloseSession)
			r.Post("/items/{id}/complete", s.handleCompleteItem)
			r.Get("/events", s.handleSessionEvents)
		})
	})
	return r
}
