package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
)

type visibleResponse struct {
	Announcements     []domain.AnnouncementView `json:"announcements"`
	RotationSuspended bool                      `json:"rotationSuspended"`
}

// writeViews responds with anns, category references resolved.
func writeViews(w http.ResponseWriter, r *http.Request, d deps.Deps, status int, anns []domain.Announcement) {
	out, err := d.Board.Views(r.Context(), anns...)
	if err != nil {
		writeError(w, r, d, err)
		return
	}
	writeJSON(w, status, out)
}

// writeView responds with a single announcement, its category resolved.
func writeView(w http.ResponseWriter, r *http.Request, d deps.Deps, status int, a domain.Announcement) {
	out, err := d.Board.Views(r.Context(), a)
	if err != nil {
		writeError(w, r, d, err)
		return
	}
	writeJSON(w, status, out[0])
}

// PublicAnnouncements returns what displays should rotate through right now.
func PublicAnnouncements(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vis, err := d.Board.Visible(r.Context())
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		items, err := d.Board.Views(r.Context(), vis.Items...)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, visibleResponse{
			Announcements:     items,
			RotationSuspended: vis.RotationSuspended,
		})
	}
}

// ListAnnouncements returns every stored announcement, newest first.
func ListAnnouncements(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		anns, err := d.Board.List(r.Context())
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeViews(w, r, d, http.StatusOK, anns)
	}
}

func GetAnnouncement(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := d.Board.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeView(w, r, d, http.StatusOK, a)
	}
}

func CreateAnnouncement(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := readAnnouncementForm(w, r, d)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		draft, err := form.draft()
		if err != nil {
			discardUpload(d, form)
			writeError(w, r, d, err)
			return
		}

		a, err := d.Board.Create(r.Context(), draft, actor(r, d, form.UserEmail))
		if err != nil {
			discardUpload(d, form)
			writeError(w, r, d, err)
			return
		}
		writeView(w, r, d, http.StatusCreated, a)
	}
}

// UpdateAnnouncement applies a partial update. Only fields present in the
// body change.
func UpdateAnnouncement(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := readAnnouncementForm(w, r, d)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		patch, err := form.patch()
		if err != nil {
			discardUpload(d, form)
			writeError(w, r, d, err)
			return
		}

		a, err := d.Board.Update(r.Context(), chi.URLParam(r, "id"), patch, actor(r, d, form.UserEmail))
		if err != nil {
			discardUpload(d, form)
			writeError(w, r, d, err)
			return
		}
		writeView(w, r, d, http.StatusOK, a)
	}
}

type attributionRequest struct {
	UserEmail string `json:"userEmail" validate:"omitempty,email"`
}

func DeleteAnnouncement(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req attributionRequest
		if err := decodeJSON(w, r, d.Validate, &req, true); err != nil {
			writeError(w, r, d, err)
			return
		}

		id := chi.URLParam(r, "id")
		if _, err := d.Board.Delete(r.Context(), id, actor(r, d, req.UserEmail)); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Announcement deleted successfully", ID: id})
	}
}

// discardUpload removes an image saved for a request whose mutation failed.
func discardUpload(d deps.Deps, form *announcementForm) {
	if form.upload == "" || d.Uploads == nil {
		return
	}
	if err := d.Uploads.Remove(form.upload); err != nil {
		d.Logger.Warn("failed to discard unused upload",
			logger.String("image", form.upload),
			logger.Error(err))
	}
}
