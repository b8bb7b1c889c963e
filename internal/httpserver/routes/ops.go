package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/mw"
	"github.com/MrSnakeDoc/noticeboard/internal/uploads"
)

func init() { Register(registerOps, requestTimeout) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/", handlers.Index(d))
	r.Get("/healthz", handlers.Healthz(d))
	r.Get("/readyz", handlers.Readyz(d))

	restricted := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))
	restricted.Get("/infra", handlers.Infra(d))
	restricted.Method("GET", "/metrics", promhttp.Handler())

	if d.Uploads != nil {
		r.Method("GET", uploads.PublicPrefix+"*", d.Uploads.Handler())
	}
}
