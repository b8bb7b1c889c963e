package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/noticeboard/internal/broadcast"
	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
)

// topics reads ?topics=a,b. No value subscribes to every topic.
func topics(r *http.Request) []string {
	raw := r.URL.Query().Get("topics")
	if raw == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Events streams board events as Server-Sent Events.
func Events(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Streams outlive the server-wide write timeout.
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		err := broadcast.ServeSSE(d.Hub, w, r, topics(r)...)
		if errors.Is(err, broadcast.ErrStreamUnsupported) {
			writeError(w, r, d, domain.StorageFailure("open event stream", err))
			return
		}
		if err != nil {
			d.Logger.Warn("event stream ended with error",
				logger.String("remote_ip", r.RemoteAddr),
				logger.Error(err))
		}
	}
}

// WebSocket streams board events as JSON frames over a WebSocket.
func WebSocket(d deps.Deps) http.HandlerFunc {
	upgrader := d.Upgrader
	if upgrader == nil {
		upgrader = broadcast.Upgrader(nil)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := broadcast.ServeWS(d.Hub, upgrader, w, r, topics(r)...); err != nil {
			d.Logger.Debug("websocket closed",
				logger.String("remote_ip", r.RemoteAddr),
				logger.Error(err))
		}
	}
}
