package mw

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/noticeboard/internal/auth"
	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
)

// Authenticate resolves a Bearer token into an auth.Identity on the request
// context. Requests without a token, or with one that does not verify, pass
// through anonymously so a stale token never locks a display out of public
// reads; RequireIdentity guards the routes that need an identity. A nil
// tokens disables the check.
func Authenticate(tokens *auth.Tokens, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokens == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			id, err := tokens.Parse(raw)
			if err != nil {
				log.Debug("ignoring invalid bearer token",
					logger.String("path", r.URL.Path),
					logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireIdentity rejects anonymous requests when required is true.
func RequireIdentity(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !required {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.FromContext(r.Context()); !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="noticeboard"`)
				writeJSONError(w, http.StatusUnauthorized, string(domain.KindUnauthorized), "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeJSONError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": kind})
}
