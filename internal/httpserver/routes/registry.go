package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

// requestTimeout bounds ordinary requests. Event streams register without it.
var requestTimeout = middleware.Timeout(15 * time.Second)

type entry struct {
	reg Registrar
	mws []Middleware
}

var (
	registry    []entry
	apiRegistry []entry
)

// Register a root-level registrar with optional per-route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterAPI registers routes under /api, behind rate limiting and token
// authentication.
func RegisterAPI(reg Registrar, mws ...Middleware) {
	apiRegistry = append(apiRegistry, entry{reg: reg, mws: mws})
}

// Called once from server.New()
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		mount(r, e, d)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(mw.RateLimit(mw.RateLimitConfig{
			RPS:        d.RateLimitRPS,
			Burst:      d.RateLimitBurst,
			MaxEntries: 10000,
			TrustProxy: d.TrustProxy,
		}))
		if d.Auth != nil {
			api.Use(mw.Authenticate(d.Auth.Tokens(), d.Logger))
		}
		for _, e := range apiRegistry {
			mount(api, e, d)
		}
	})
}

func mount(r chi.Router, e entry, d deps.Deps) {
	if len(e.mws) == 0 {
		e.reg(r, d)
		return
	}
	e.reg(r.With(e.mws...), d) // apply per-route middlewares
}

// admin guards mutating routes.
func admin(d deps.Deps) Middleware {
	return mw.RequireIdentity(d.AuthRequired)
}
