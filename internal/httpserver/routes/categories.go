package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerCategories, requestTimeout) }

func registerCategories(r chi.Router, d deps.Deps) {
	r.Get("/categories", handlers.Categories(d))
	r.With(admin(d)).Post("/categories", handlers.CreateCategory(d))
	r.With(admin(d)).Delete("/categories/{id}", handlers.DeleteCategory(d))
}
