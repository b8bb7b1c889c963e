package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
)

// History lists audit entries most recent first. ?action= narrows to one
// action and ?q= matches title or content.
func History(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter domain.HistoryFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("action")); raw != "" && raw != "all" {
			action, ok := domain.ParseAction(raw)
			if !ok {
				writeError(w, r, d, domain.InvalidInput("unknown action: "+raw))
				return
			}
			filter.Action = action
		}
		filter.Query = r.URL.Query().Get("q")

		entries, err := d.Board.History().List(r.Context(), filter)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// RestoreAnnouncement reinstates the latest deleted snapshot of an id.
func RestoreAnnouncement(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req attributionRequest
		if err := decodeJSON(w, r, d.Validate, &req, true); err != nil {
			writeError(w, r, d, err)
			return
		}

		a, err := d.Board.Restore(r.Context(), chi.URLParam(r, "id"), actor(r, d, req.UserEmail))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeView(w, r, d, http.StatusOK, a)
	}
}
