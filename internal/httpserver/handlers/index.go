package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
)

type indexResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

var endpoints = map[string]string{
	"public":     "GET /api/announcements/public",
	"list":       "GET /api/announcements",
	"get":        "GET /api/announcements/{id}",
	"create":     "POST /api/announcements (JSON or multipart with image)",
	"update":     "PUT /api/announcements/{id} (JSON or multipart with image)",
	"delete":     "DELETE /api/announcements/{id}",
	"history":    "GET /api/history?action=&q=",
	"restore":    "POST /api/history/restore/{id}",
	"categories": "GET|POST /api/categories, DELETE /api/categories/{id}",
	"status":     "GET /api/status",
	"start":      "POST /api/start",
	"stop":       "POST /api/stop",
	"register":   "POST /api/auth/register",
	"login":      "POST /api/auth/login",
	"events":     "GET /api/events (Server-Sent Events)",
	"websocket":  "GET /api/ws",
	"uploads":    "GET /uploads/{file}",
	"health":     "GET /healthz",
	"ready":      "GET /readyz",
	"infra":      "GET /infra",
	"metrics":    "GET /metrics",
}

// Index describes the API.
func Index(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, indexResponse{
			Message:   "Digital Notice Board API",
			Version:   d.Version,
			Endpoints: endpoints,
		})
	}
}
