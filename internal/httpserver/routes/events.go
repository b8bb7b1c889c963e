package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerEvents) }

func registerEvents(r chi.Router, d deps.Deps) {
	r.Get("/events", handlers.Events(d))
	r.Get("/ws", handlers.WebSocket(d))
}
