package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerAnnouncements, requestTimeout) }

func registerAnnouncements(r chi.Router, d deps.Deps) {
	r.Get("/announcements/public", handlers.PublicAnnouncements(d))

	r.Group(func(r chi.Router) {
		r.Use(admin(d))
		r.Get("/announcements", handlers.ListAnnouncements(d))
		r.Post("/announcements", handlers.CreateAnnouncement(d))
		r.Get("/announcements/{id}", handlers.GetAnnouncement(d))
		r.Put("/announcements/{id}", handlers.UpdateAnnouncement(d))
		r.Delete("/announcements/{id}", handlers.DeleteAnnouncement(d))
	})
}
