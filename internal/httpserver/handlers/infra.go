package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
)

type componentStatus struct {
	OK          bool   `json:"ok"`
	Backend     string `json:"backend,omitempty"`
	Subscribers *int   `json:"subscribers,omitempty"`
	Relay       *bool  `json:"relay,omitempty"`
	Visible     *int   `json:"visible,omitempty"`
	Emergency   *bool  `json:"emergency,omitempty"`
	Live        string `json:"live,omitempty"`
	Error       string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports component status for operators.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		components := map[string]componentStatus{
			"store":     checkStore(ctx, d),
			"broadcast": checkBroadcast(d),
			"board":     checkBoard(ctx, d),
			"live":      checkLive(ctx, d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

// overallStatus is "critical" when the store is down and "degraded" when any
// other component is.
func overallStatus(components map[string]componentStatus) string {
	if s, ok := components["store"]; ok && !s.OK {
		return "critical"
	}
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "ok"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{Backend: d.StoreBackend, Error: "not initialized"}
	}
	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{Backend: d.StoreBackend, Error: err.Error()}
	}
	return componentStatus{OK: true, Backend: d.StoreBackend}
}

func checkBroadcast(d deps.Deps) componentStatus {
	if d.Hub == nil {
		return componentStatus{Error: "not initialized"}
	}
	n := d.Hub.Count()
	relay := d.RelayEnabled
	return componentStatus{OK: true, Subscribers: &n, Relay: &relay}
}

func checkBoard(ctx context.Context, d deps.Deps) componentStatus {
	if d.Board == nil {
		return componentStatus{Error: "not initialized"}
	}
	vis, err := d.Board.Visible(ctx)
	if err != nil {
		return componentStatus{Error: string(domain.KindOf(err))}
	}
	n := len(vis.Items)
	return componentStatus{OK: true, Visible: &n, Emergency: &vis.RotationSuspended}
}

func checkLive(ctx context.Context, d deps.Deps) componentStatus {
	if d.Live == nil {
		return componentStatus{Error: "not initialized"}
	}
	session, err := d.Live.Status(ctx)
	if err != nil {
		return componentStatus{Error: string(domain.KindOf(err))}
	}
	return componentStatus{OK: true, Live: string(session.Status)}
}
