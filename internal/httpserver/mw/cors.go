package mw

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORS allows browser displays and the admin panel to call the API from
// the given origins. "*" allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	})
}

// OriginAllowed reports whether origin matches the CORS list. It backs the
// WebSocket origin check so both transports accept the same callers.
func OriginAllowed(origins []string) func(origin string) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return nil
	}
	return func(origin string) bool {
		return slices.Contains(origins, origin)
	}
}
