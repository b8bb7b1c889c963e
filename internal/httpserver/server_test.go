package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrSnakeDoc/noticeboard/internal/auth"
	"github.com/MrSnakeDoc/noticeboard/internal/board"
	"github.com/MrSnakeDoc/noticeboard/internal/broadcast"
	"github.com/MrSnakeDoc/noticeboard/internal/broadcast/broadcasttest"
	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/noticeboard/internal/live"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
	"github.com/MrSnakeDoc/noticeboard/internal/uploads"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	adminEmail   = "admin@example.com"
	adminPass    = "s3cret-pass"
	operatorMail = "ops@example.com"
)

var pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

type testEnv struct {
	handler http.Handler
	board   *board.Manager
	rec     *broadcasttest.Recorder
	uploads *uploads.Store
}

// newTestEnv wires a router over an in-memory store. mutate adjusts the
// deps before the router is built.
func newTestEnv(t *testing.T, mutate func(*deps.Deps)) *testEnv {
	t.Helper()

	log := logger.NewNop()
	st := store.NewMemory()
	rec := &broadcasttest.Recorder{}

	up, err := uploads.New(t.TempDir(), 1024)
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := auth.NewTokens(testSecret, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	authService := auth.NewService(auth.Config{Store: st, Tokens: tokens, Logger: log, Cost: bcrypt.MinCost})
	if _, err := authService.EnsureAdmin(context.Background(), adminEmail, adminPass); err != nil {
		t.Fatal(err)
	}

	b := board.New(board.Config{Store: st, Publisher: rec, Logger: log, Images: up})
	hub := broadcast.NewHub(log, broadcast.Options{})
	t.Cleanup(hub.Close)

	d := deps.Deps{
		Logger:       log,
		StartTime:    time.Now(),
		Version:      "test",
		StoreBackend: "memory",
		Store:        st,
		Board:        b,
		Live:         live.NewController(st, rec, log, nil),
		Auth:         authService,
		Hub:          hub,
		Uploads:      up,
		Validate:     validator.New(),
	}
	if mutate != nil {
		mutate(&d)
	}

	return &testEnv{
		handler: NewRouter(log, d),
		board:   b,
		rec:     rec,
		uploads: up,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

type announcementJSON struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Image    string    `json:"image"`
	Category string    `json:"category"`
	CatName  string    `json:"categoryName"`
	Priority int       `json:"priority"`
	Active   bool      `json:"active"`
	Duration int       `json:"duration"`
	StartAt  time.Time `json:"startAt"`
	EndAt    time.Time `json:"endAt"`
	Kind     string    `json:"kind"`
}

type publicJSON struct {
	Announcements     []announcementJSON `json:"announcements"`
	RotationSuspended bool               `json:"rotationSuspended"`
}

type errorJSON struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (e *testEnv) create(t *testing.T, body map[string]any) announcementJSON {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/announcements", body, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rr.Code, rr.Body.String())
	}
	return decode[announcementJSON](t, rr)
}

func TestCreateAnnouncementDefaults(t *testing.T) {
	env := newTestEnv(t, nil)

	a := env.create(t, map[string]any{"title": "Fire drill", "content": "Friday 10:00"})
	if a.ID == "" {
		t.Fatal("expected an id")
	}
	if a.Priority != domain.DefaultPriority || a.Duration != domain.DefaultDurationDays || !a.Active {
		t.Fatalf("defaults not applied: %+v", a)
	}
	if got := a.EndAt.Sub(a.StartAt); got != 7*24*time.Hour {
		t.Fatalf("window = %v, want 7 days", got)
	}
	if a.Kind != string(domain.KindText) {
		t.Fatalf("kind = %q, want text", a.Kind)
	}
	if n := len(env.rec.StateChanges()); n != 1 {
		t.Fatalf("state changes = %d, want 1", n)
	}
}

func TestCreateAnnouncementRejects(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body any
	}{
		{"missing content", map[string]any{"title": "x"}},
		{"blank title", map[string]any{"title": "  ", "content": "x"}},
		{"priority out of range", map[string]any{"title": "x", "content": "y", "priority": 6}},
		{"zero duration", map[string]any{"title": "x", "content": "y", "duration": 0}},
		{"end before start", map[string]any{"title": "x", "content": "y", "startAt": "2030-01-02T00:00:00Z", "endAt": "2030-01-01T00:00:00Z"}},
		{"bad timestamp", map[string]any{"title": "x", "content": "y", "startAt": "tomorrow"}},
		{"unknown field", map[string]any{"title": "x", "content": "y", "colour": "red"}},
		{"image reference in json", map[string]any{"title": "x", "content": "y", "image": "/uploads/a.png"}},
		{"malformed json", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/announcements", tt.body, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body = %s", rr.Code, rr.Body.String())
			}
			if got := decode[errorJSON](t, rr); got.Kind != string(domain.KindInvalidInput) {
				t.Fatalf("kind = %q", got.Kind)
			}
		})
	}
	if n := len(env.rec.Events()); n != 0 {
		t.Fatalf("rejected requests published %d events", n)
	}
}

func TestCreateAnnouncementMultipart(t *testing.T) {
	env := newTestEnv(t, nil)

	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	_ = mp.WriteField("title", "Menu")
	_ = mp.WriteField("content", "Soup of the day")
	_ = mp.WriteField("priority", "3")
	_ = mp.WriteField("isActive", "true")
	part, err := mp.CreateFormFile("image", "menu.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(pngData)
	_ = mp.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/announcements", &buf)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	a := decode[announcementJSON](t, rr)
	if a.Priority != 3 || a.Kind != string(domain.KindMixed) {
		t.Fatalf("unexpected announcement: %+v", a)
	}
	if !strings.HasPrefix(a.Image, uploads.PublicPrefix) || !strings.HasSuffix(a.Image, ".png") {
		t.Fatalf("image = %q", a.Image)
	}

	img := env.do(t, http.MethodGet, a.Image, nil, nil)
	if img.Code != http.StatusOK || !bytes.Equal(img.Body.Bytes(), pngData) {
		t.Fatalf("serving image: status = %d", img.Code)
	}
}

func TestCreateAnnouncementMultipartDiscardsImageOnFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	_ = mp.WriteField("title", "No content")
	part, _ := mp.CreateFormFile("image", "x.png")
	_, _ = part.Write(pngData)
	_ = mp.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/announcements", &buf)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	files, err := os.ReadDir(env.uploads.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Fatalf("upload dir holds %d files after failed create", len(files))
	}
}

func TestPublicAnnouncements(t *testing.T) {
	env := newTestEnv(t, nil)

	low := env.create(t, map[string]any{"title": "low", "content": "c", "priority": 5})
	high := env.create(t, map[string]any{"title": "high", "content": "c", "priority": 1})
	env.create(t, map[string]any{"title": "paused", "content": "c", "active": false})
	env.create(t, map[string]any{"title": "future", "content": "c", "startAt": "2999-01-01T00:00:00Z"})
	env.create(t, map[string]any{"title": "expired", "content": "c", "startAt": "2001-01-01", "endAt": "2001-01-02"})

	rr := env.do(t, http.MethodGet, "/api/announcements/public", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decode[publicJSON](t, rr)
	if got.RotationSuspended {
		t.Fatal("rotation suspended without an emergency")
	}
	if len(got.Announcements) != 2 || got.Announcements[0].ID != high.ID || got.Announcements[1].ID != low.ID {
		t.Fatalf("visible = %+v", got.Announcements)
	}

	emergency := env.create(t, map[string]any{"title": "evacuate", "content": "now", "priority": 0})
	got = decode[publicJSON](t, env.do(t, http.MethodGet, "/api/announcements/public", nil, nil))
	if !got.RotationSuspended || len(got.Announcements) != 1 || got.Announcements[0].ID != emergency.ID {
		t.Fatalf("emergency not pinned: %+v", got)
	}

	all := decode[[]announcementJSON](t, env.do(t, http.MethodGet, "/api/announcements", nil, nil))
	if len(all) != 6 {
		t.Fatalf("list returned %d, want 6", len(all))
	}
}

func TestUpdateAnnouncement(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.create(t, map[string]any{"title": "t", "content": "c", "startAt": "2030-01-01T00:00:00Z"})

	tests := []struct {
		name   string
		id     string
		body   any
		status int
		check  func(t *testing.T, got announcementJSON)
	}{
		{
			name:   "partial title",
			id:     a.ID,
			body:   map[string]any{"title": "renamed"},
			status: http.StatusOK,
			check: func(t *testing.T, got announcementJSON) {
				if got.Title != "renamed" || got.Content != "c" {
					t.Fatalf("got %+v", got)
				}
			},
		},
		{
			name:   "duration recomputes end",
			id:     a.ID,
			body:   map[string]any{"duration": 2},
			status: http.StatusOK,
			check: func(t *testing.T, got announcementJSON) {
				want := time.Date(2030, 1, 3, 0, 0, 0, 0, time.UTC)
				if !got.EndAt.Equal(want) {
					t.Fatalf("endAt = %v, want %v", got.EndAt, want)
				}
			},
		},
		{name: "empty patch", id: a.ID, body: map[string]any{}, status: http.StatusBadRequest},
		{name: "blank content", id: a.ID, body: map[string]any{"content": ""}, status: http.StatusBadRequest},
		{name: "unknown id", id: "missing", body: map[string]any{"title": "x"}, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPut, "/api/announcements/"+tt.id, tt.body, nil)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.status, rr.Body.String())
			}
			if tt.check != nil {
				tt.check(t, decode[announcementJSON](t, rr))
			}
		})
	}
}

func TestDeleteHistoryRestore(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.create(t, map[string]any{"title": "Lost keys", "content": "at reception"})

	rr := env.do(t, http.MethodDelete, "/api/announcements/"+a.ID, map[string]any{"userEmail": operatorMail}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if msg := decode[map[string]string](t, rr); msg["id"] != a.ID {
		t.Fatalf("delete response = %v", msg)
	}
	if rr := env.do(t, http.MethodGet, "/api/announcements/"+a.ID, nil, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/api/announcements/"+a.ID, nil, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rr.Code)
	}

	type entry struct {
		Action   string           `json:"action"`
		User     *string          `json:"user"`
		Snapshot announcementJSON `json:"snapshot"`
	}
	deleted := decode[[]entry](t, env.do(t, http.MethodGet, "/api/history?action=deleted&q=keys", nil, nil))
	if len(deleted) != 1 || deleted[0].Snapshot.ID != a.ID {
		t.Fatalf("deleted history = %+v", deleted)
	}
	if deleted[0].User == nil || *deleted[0].User != operatorMail {
		t.Fatalf("deleted entry not attributed: %+v", deleted[0].User)
	}
	if rr := env.do(t, http.MethodGet, "/api/history?action=bogus", nil, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bogus action filter = %d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/history/restore/"+a.ID, nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("restore status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := decode[announcementJSON](t, rr); got.ID != a.ID || got.Title != a.Title {
		t.Fatalf("restored = %+v", got)
	}
	if rr := env.do(t, http.MethodPost, "/api/history/restore/"+a.ID, nil, nil); rr.Code != http.StatusConflict {
		t.Fatalf("restoring a live id = %d, want 409", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/history/restore/never-existed", nil, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("restoring unknown id = %d, want 404", rr.Code)
	}

	all := decode[[]entry](t, env.do(t, http.MethodGet, "/api/history?action=all", nil, nil))
	if len(all) != 3 || all[0].Action != string(domain.ActionRestored) {
		t.Fatalf("history = %+v", all)
	}
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "Safety"}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rr.Code, rr.Body.String())
	}
	cat := decode[domain.Category](t, rr)

	if rr := env.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "safety"}, nil); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate name = %d, want 409", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/categories", map[string]any{"name": ""}, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty name = %d, want 400", rr.Code)
	}

	a := env.create(t, map[string]any{"title": "t", "content": "c", "category": cat.ID})
	if a.Category != cat.ID || a.CatName != "Safety" {
		t.Fatalf("category = %q/%q, want %q/Safety", a.Category, a.CatName, cat.ID)
	}
	unknown := env.create(t, map[string]any{"title": "t", "content": "c", "category": "nope"})
	if unknown.Category != "" || unknown.CatName != "" {
		t.Fatalf("unknown category = %q/%q, want none", unknown.Category, unknown.CatName)
	}

	cats := decode[[]domain.Category](t, env.do(t, http.MethodGet, "/api/categories", nil, nil))
	if len(cats) != 1 {
		t.Fatalf("categories = %+v", cats)
	}

	if rr := env.do(t, http.MethodDelete, "/api/categories/"+cat.ID, nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/api/categories/"+cat.ID, nil, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rr.Code)
	}

	// The now dangling reference resolves to no category.
	got := decode[announcementJSON](t, env.do(t, http.MethodGet, "/api/announcements/"+a.ID, nil, nil))
	if got.Category != "" || got.CatName != "" {
		t.Fatalf("category after delete = %q/%q, want none", got.Category, got.CatName)
	}
}

func TestLiveSession(t *testing.T) {
	env := newTestEnv(t, nil)

	status := decode[domain.LiveSession](t, env.do(t, http.MethodGet, "/api/status", nil, nil))
	if status.Status != domain.LiveOff || status.Link != nil {
		t.Fatalf("initial status = %+v", status)
	}

	if rr := env.do(t, http.MethodPost, "/api/start", map[string]any{"link": " "}, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("blank link = %d, want 400", rr.Code)
	}

	rr := env.do(t, http.MethodPost, "/api/start", map[string]any{"link": "https://stream.example.com/x"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", rr.Code, rr.Body.String())
	}
	status = decode[domain.LiveSession](t, env.do(t, http.MethodGet, "/api/status", nil, nil))
	if status.Status != domain.LiveOn || status.Link == nil || *status.Link != "https://stream.example.com/x" {
		t.Fatalf("status after start = %+v", status)
	}

	if rr := env.do(t, http.MethodPost, "/api/stop", nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("stop status = %d", rr.Code)
	}
	status = decode[domain.LiveSession](t, env.do(t, http.MethodGet, "/api/status", nil, nil))
	if status.Status != domain.LiveOff || status.Link != nil {
		t.Fatalf("status after stop = %+v", status)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) { d.AuthRequired = true })
	body := map[string]any{"title": "t", "content": "c"}

	if rr := env.do(t, http.MethodPost, "/api/announcements", body, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d, want 401", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/announcements/public", nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("public feed = %d, want 200", rr.Code)
	}

	// A stale token reads public routes anonymously but cannot mutate.
	bad := http.Header{"Authorization": {"Bearer not-a-token"}}
	if rr := env.do(t, http.MethodGet, "/api/announcements/public", nil, bad); rr.Code != http.StatusOK {
		t.Fatalf("public feed with invalid token = %d, want 200", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/announcements", body, bad); rr.Code != http.StatusUnauthorized {
		t.Fatalf("create with invalid token = %d, want 401", rr.Code)
	}

	if rr := env.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": adminEmail, "password": "wrong"}, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d, want 401", rr.Code)
	}
	rr := env.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "ADMIN@example.com", "password": adminPass}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login = %d, body = %s", rr.Code, rr.Body.String())
	}
	login := decode[struct {
		Token string `json:"token"`
	}](t, rr)
	if login.Token == "" {
		t.Fatal("login returned no token")
	}
	authz := http.Header{"Authorization": {"Bearer " + login.Token}}

	// A body email cannot override the verified identity.
	rr = env.do(t, http.MethodPost, "/api/announcements",
		map[string]any{"title": "t", "content": "c", "userEmail": "someone@example.com"}, authz)
	if rr.Code != http.StatusCreated {
		t.Fatalf("authenticated create = %d, body = %s", rr.Code, rr.Body.String())
	}
	type entry struct {
		User *string `json:"user"`
	}
	entries := decode[[]entry](t, env.do(t, http.MethodGet, "/api/history", nil, authz))
	if len(entries) != 1 || entries[0].User == nil || *entries[0].User != adminEmail {
		t.Fatalf("history attribution = %+v", entries)
	}

	if rr := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{"email": operatorMail, "password": "another-pass"}, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous register = %d, want 401", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{"email": operatorMail, "password": "another-pass"}, authz); rr.Code != http.StatusCreated {
		t.Fatalf("register = %d, body = %s", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{"email": operatorMail, "password": "another-pass"}, authz); rr.Code != http.StatusConflict {
		t.Fatalf("duplicate register = %d, want 409", rr.Code)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		path   string
		status int
		field  string
	}{
		{"/", http.StatusOK, "message"},
		{"/healthz", http.StatusOK, "status"},
		{"/readyz", http.StatusOK, "ready"},
		{"/infra", http.StatusOK, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, tt.path, nil, nil)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.status, rr.Body.String())
			}
			if got := decode[map[string]any](t, rr); got[tt.field] == nil {
				t.Fatalf("missing %q in %v", tt.field, got)
			}
		})
	}

	noStore := newTestEnv(t, func(d *deps.Deps) { d.Store = nil })
	if rr := noStore.do(t, http.MethodGet, "/readyz", nil, nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without store = %d, want 503", rr.Code)
	}
}

func TestOperationalEndpointsRestricted(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
		d.AllowedHosts = []string{"board.example.com"}
	})

	tests := []struct {
		name   string
		remote string
		host   string
		status int
	}{
		{"outside cidr", "192.0.2.1:1234", "board.example.com", http.StatusForbidden},
		{"wrong host", "10.1.2.3:1234", "evil.example.com", http.StatusForbidden},
		{"allowed", "10.1.2.3:1234", "board.example.com:8080", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			req.RemoteAddr = tt.remote
			req.Host = tt.host
			rr := httptest.NewRecorder()
			env.handler.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
		})
	}

	// Health endpoints stay open.
	if rr := env.do(t, http.MethodGet, "/healthz", nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rr.Code)
	}
}

func TestAPIRateLimited(t *testing.T) {
	env := newTestEnv(t, func(d *deps.Deps) {
		d.RateLimitRPS = 0.001
		d.RateLimitBurst = 2
	})

	for i := 0; i < 2; i++ {
		if rr := env.do(t, http.MethodGet, "/api/categories", nil, nil); rr.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i, rr.Code)
		}
	}
	rr := env.do(t, http.MethodGet, "/api/categories", nil, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	if rr := env.do(t, http.MethodGet, "/healthz", nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz throttled: %d", rr.Code)
	}
}

func TestUploadsRejectTraversal(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := os.WriteFile(filepath.Join(filepath.Dir(env.uploads.Dir()), "secret.txt"), []byte("top-secret"), 0o600); err != nil {
		t.Fatal(err)
	}
	rr := env.do(t, http.MethodGet, "/uploads/../secret.txt", nil, nil)
	if rr.Code == http.StatusOK && strings.Contains(rr.Body.String(), "top-secret") {
		t.Fatalf("served a file outside the upload dir")
	}
}
