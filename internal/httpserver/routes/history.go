package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerHistory, requestTimeout) }

func registerHistory(r chi.Router, d deps.Deps) {
	r.With(admin(d)).Get("/history", handlers.History(d))
	r.With(admin(d)).Post("/history/restore/{id}", handlers.RestoreAnnouncement(d))
}
