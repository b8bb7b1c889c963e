package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerLive, requestTimeout) }

func registerLive(r chi.Router, d deps.Deps) {
	r.Get("/status", handlers.LiveStatus(d))
	r.With(admin(d)).Post("/start", handlers.StartLive(d))
	r.With(admin(d)).Post("/stop", handlers.StopLive(d))
}
