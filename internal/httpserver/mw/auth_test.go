package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/noticeboard/internal/auth"
	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
)

func TestAuthenticate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens, err := auth.NewTokens("0123456789abcdef", time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatal(err)
	}
	valid, _, err := tokens.Issue(domain.User{Email: "ops@example.com", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	other, _ := auth.NewTokens("fedcba9876543210", time.Hour, func() time.Time { return now })
	forged, _, _ := other.Issue(domain.User{Email: "ops@example.com", Role: domain.RoleAdmin})

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ""
		if id, ok := auth.FromContext(r.Context()); ok {
			seen = id.Email
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := Authenticate(tokens, logger.NewNop())(next)

	tests := []struct {
		name     string
		header   string
		status   int
		identity string
	}{
		{"anonymous", "", http.StatusNoContent, ""},
		{"valid token", "Bearer " + valid, http.StatusNoContent, "ops@example.com"},
		{"lowercase scheme", "bearer " + valid, http.StatusNoContent, "ops@example.com"},
		{"other scheme ignored", "Basic b3BzOnB3", http.StatusNoContent, ""},
		{"garbage token is anonymous", "Bearer abc.def.ghi", http.StatusNoContent, ""},
		{"wrong secret is anonymous", "Bearer " + forged, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/announcements", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if seen != tt.identity {
				t.Fatalf("identity = %q, want %q", seen, tt.identity)
			}
		})
	}

	later := now.Add(2 * time.Hour)
	expired, _ := auth.NewTokens("0123456789abcdef", time.Hour, func() time.Time { return later })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	rr := httptest.NewRecorder()
	seen = "unset"
	Authenticate(expired, logger.NewNop())(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || seen != "" {
		t.Fatalf("expired token status = %d identity = %q, want anonymous pass-through", rr.Code, seen)
	}

	// Guarded routes still refuse the request once it is anonymous.
	guarded := Authenticate(tokens, logger.NewNop())(RequireIdentity(true)(next))
	req = httptest.NewRequest(http.MethodPost, "/api/announcements", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	rr = httptest.NewRecorder()
	guarded.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token on guarded route = %d, want 401", rr.Code)
	}
}

func TestRequireIdentity(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		required bool
		identity bool
		want     int
	}{
		{"optional anonymous", false, false, http.StatusNoContent},
		{"required anonymous", true, false, http.StatusUnauthorized},
		{"required identified", true, true, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/announcements", nil)
			if tt.identity {
				req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Email: "ops@example.com"}))
			}
			rr := httptest.NewRecorder()
			RequireIdentity(tt.required)(next).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("missing WWW-Authenticate")
			}
		})
	}
}
