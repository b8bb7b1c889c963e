package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerAuth, requestTimeout) }

// Registering further operators requires an identity once auth is enforced;
// the first admin is seeded from config.
func registerAuth(r chi.Router, d deps.Deps) {
	r.With(admin(d)).Post("/auth/register", handlers.Register(d))
	r.Post("/auth/login", handlers.Login(d))
}
