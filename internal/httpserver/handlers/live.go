package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
)

type startLiveRequest struct {
	Link      string `json:"link"`
	UserEmail string `json:"userEmail" validate:"omitempty,email"`
}

func LiveStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := d.Live.Status(r.Context())
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

func StartLive(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startLiveRequest
		if err := decodeJSON(w, r, d.Validate, &req, false); err != nil {
			writeError(w, r, d, err)
			return
		}
		session, err := d.Live.Start(r.Context(), req.Link, actor(r, d, req.UserEmail))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

func StopLive(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req attributionRequest
		if err := decodeJSON(w, r, d.Validate, &req, true); err != nil {
			writeError(w, r, d, err)
			return
		}
		session, err := d.Live.Stop(r.Context(), actor(r, d, req.UserEmail))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}
