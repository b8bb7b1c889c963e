package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
)

type categoryRequest struct {
	Name string `json:"name" validate:"required"`
}

func Categories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := d.Board.Categories(r.Context())
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, cats)
	}
}

func CreateCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if err := decodeJSON(w, r, d.Validate, &req, false); err != nil {
			writeError(w, r, d, err)
			return
		}
		c, err := d.Board.CreateCategory(r.Context(), req.Name)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func DeleteCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := d.Board.DeleteCategory(r.Context(), id); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Category deleted", ID: id})
	}
}
