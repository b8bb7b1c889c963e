package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/noticeboard/internal/broadcast"
	"github.com/MrSnakeDoc/noticeboard/internal/broadcast/broadcasttest"
	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeImages struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (f *fakeImages) Remove(ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ref)
	return f.err
}

type fixture struct {
	m      *Manager
	store  store.Store
	rec    *broadcasttest.Recorder
	clock  *clock
	images *fakeImages
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  store.NewMemory(),
		rec:    &broadcasttest.Recorder{},
		clock:  &clock{now: t0},
		images: &fakeImages{},
	}
	f.m = New(Config{
		Store:     f.store,
		Publisher: f.rec,
		Images:    f.images,
		Clock:     f.clock.Now,
	})
	return f
}

func intPtr(v int) *int              { return &v }
func strPtr(v string) *string        { return &v }
func boolPtr(v bool) *bool           { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func (f *fixture) create(t *testing.T, title string, priority int) domain.Announcement {
	t.Helper()
	a, err := f.m.Create(context.Background(), domain.Draft{
		Title:    title,
		Content:  title + " details",
		Priority: intPtr(priority),
	}, "")
	if err != nil {
		t.Fatalf("Create(%q) error = %v", title, err)
	}
	return a
}

func (f *fixture) history(t *testing.T, action domain.Action) []domain.HistoryEntry {
	t.Helper()
	entries, err := f.m.History().List(context.Background(), domain.HistoryFilter{Action: action})
	if err != nil {
		t.Fatal(err)
	}
	return entries
}

func visibleIDs(t *testing.T, m *Manager) ([]string, bool) {
	t.Helper()
	v, err := m.Visible(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, len(v.Items))
	for i, a := range v.Items {
		ids[i] = a.ID
	}
	return ids, v.RotationSuspended
}

func TestCreateRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cat, err := f.m.CreateCategory(ctx, "Safety")
	if err != nil {
		t.Fatal(err)
	}

	start := t0.Add(2 * time.Hour)
	end := t0.Add(3 * day)
	d := domain.Draft{
		Title:    "Fire Drill",
		Content:  "Assemble in the car park",
		Image:    "/uploads/drill.png",
		Category: cat.ID,
		Priority: intPtr(3),
		Duration: intPtr(2),
		Active:   boolPtr(false),
		StartAt:  timePtr(start),
		EndAt:    timePtr(end),
	}
	created, err := f.m.Create(ctx, d, "ops@example.com")
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.m.Get(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != d.Title || got.Content != d.Content || got.Image != d.Image ||
		got.Category != d.Category || got.Priority != 3 || got.Duration != 2 ||
		got.Active || !got.StartAt.Equal(start) || !got.EndAt.Equal(end) {
		t.Errorf("Get() = %+v, want fields of %+v", got, d)
	}
	if got.Kind() != domain.KindMixed {
		t.Errorf("Kind() = %s, want mixed", got.Kind())
	}

	entries := f.history(t, domain.ActionCreated)
	if len(entries) != 1 || entries[0].User == nil || *entries[0].User != "ops@example.com" {
		t.Fatalf("created history = %+v", entries)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		d    domain.Draft
	}{
		{"missing title", domain.Draft{Content: "c"}},
		{"missing content", domain.Draft{Title: "t"}},
		{"priority too high", domain.Draft{Title: "t", Content: "c", Priority: intPtr(6)}},
		{"zero duration", domain.Draft{Title: "t", Content: "c", Duration: intPtr(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.m.Create(context.Background(), tt.d, "")
			if !domain.IsKind(err, domain.KindInvalidInput) {
				t.Fatalf("Create() error = %v, want invalid input", err)
			}
		})
	}

	if n := len(f.history(t, "")); n != 0 {
		t.Errorf("rejected creates left %d history entries", n)
	}
	if n := len(f.rec.Events()); n != 0 {
		t.Errorf("rejected creates published %d events", n)
	}
}

func TestFireDrillWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.m.Create(ctx, domain.Draft{
		Title:    "Fire Drill",
		Content:  "Tuesday 10:00",
		Priority: intPtr(3),
		Duration: intPtr(7),
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !a.EndAt.Equal(t0.Add(7 * day)) {
		t.Fatalf("EndAt = %v, want t0+7d", a.EndAt)
	}

	f.clock.Set(t0.Add(7*day - time.Nanosecond))
	if ids, _ := visibleIDs(t, f.m); len(ids) != 1 || ids[0] != a.ID {
		t.Fatalf("visible just before expiry = %v", ids)
	}

	f.clock.Set(t0.Add(7 * day))
	if ids, _ := visibleIDs(t, f.m); len(ids) != 0 {
		t.Fatalf("visible at expiry = %v, want none", ids)
	}

	// Expiry is not a mutation.
	if n := len(f.history(t, "")); n != 1 {
		t.Errorf("history entries = %d, want 1", n)
	}
}

func TestVisibleOrder(t *testing.T) {
	f := newFixture(t)

	low := f.create(t, "low", 5)
	high := f.create(t, "high", 2)

	ids, suspended := visibleIDs(t, f.m)
	if suspended {
		t.Fatal("rotation suspended without emergency")
	}
	if len(ids) != 2 || ids[0] != high.ID || ids[1] != low.ID {
		t.Fatalf("visible = %v, want [high(2) low(5)]", ids)
	}
}

func TestEmergencyEscalation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, "A", 2)
	b := f.create(t, "B", 1)

	if _, err := f.m.Update(ctx, b.ID, domain.Patch{Priority: intPtr(domain.PriorityEmergency)}, ""); err != nil {
		t.Fatal(err)
	}

	var (
		wg sync.WaitGroup
		c  domain.Announcement
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		c, err = f.m.Create(ctx, domain.Draft{Title: "C", Content: "c", Priority: intPtr(5)}, "")
		if err != nil {
			t.Error(err)
		}
	}()
	ids, suspended := visibleIDs(t, f.m)
	wg.Wait()

	if !suspended || len(ids) != 1 || ids[0] != b.ID {
		t.Fatalf("visible = %v suspended=%v, want only B", ids, suspended)
	}

	ids, suspended = visibleIDs(t, f.m)
	if !suspended || len(ids) != 1 || ids[0] != b.ID {
		t.Fatalf("visible after C = %v suspended=%v, want only B", ids, suspended)
	}

	all, err := f.m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("stored announcements = %d, want A, B and C", len(all))
	}
	if all[0].ID != c.ID {
		t.Errorf("List()[0] = %s, want newest (C)", all[0].Title)
	}

	// Stepping B down restores rotation.
	if _, err := f.m.Update(ctx, b.ID, domain.Patch{Priority: intPtr(1)}, ""); err != nil {
		t.Fatal(err)
	}
	ids, suspended = visibleIDs(t, f.m)
	if suspended || len(ids) != 3 || ids[0] != b.ID || ids[1] != a.ID || ids[2] != c.ID {
		t.Fatalf("visible after de-escalation = %v", ids)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "Canteen", 3)

	f.clock.Set(t0.Add(time.Hour))
	got, err := f.m.Update(ctx, a.ID, domain.Patch{Duration: intPtr(1), Title: strPtr("Canteen closed")}, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Canteen closed" || got.Content != a.Content || got.Priority != 3 {
		t.Errorf("partial update changed untouched fields: %+v", got)
	}
	if !got.EndAt.Equal(a.StartAt.Add(day)) {
		t.Errorf("EndAt = %v, want recomputed from duration", got.EndAt)
	}
	if !got.UpdatedAt.Equal(t0.Add(time.Hour)) || !got.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("timestamps = created %v updated %v", got.CreatedAt, got.UpdatedAt)
	}

	changes := f.rec.StateChanges()
	last := changes[len(changes)-1]
	if last.Action != broadcast.ActionUpdate || last.Announcement == nil || last.Announcement.Title != "Canteen closed" {
		t.Errorf("state-changed = %+v", last)
	}
	if last.Announcement.Kind != domain.KindText {
		t.Errorf("event kind = %s, want text", last.Announcement.Kind)
	}
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "A", 3)
	f.rec.Reset()

	tests := []struct {
		name string
		id   string
		p    domain.Patch
		kind domain.ErrorKind
	}{
		{"unknown id", "missing", domain.Patch{Title: strPtr("x")}, domain.KindNotFound},
		{"empty patch", a.ID, domain.Patch{}, domain.KindInvalidInput},
		{"blank title", a.ID, domain.Patch{Title: strPtr("  ")}, domain.KindInvalidInput},
		{"bad priority", a.ID, domain.Patch{Priority: intPtr(-1)}, domain.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.m.Update(ctx, tt.id, tt.p, "")
			if !domain.IsKind(err, tt.kind) {
				t.Fatalf("Update() error = %v, want %s", err, tt.kind)
			}
		})
	}

	if n := len(f.history(t, domain.ActionUpdated)); n != 0 {
		t.Errorf("failed updates appended %d entries", n)
	}
	if n := len(f.rec.Events()); n != 0 {
		t.Errorf("failed updates published %d events", n)
	}
	got, _ := f.m.Get(ctx, a.ID)
	if got.Title != "A" || got.Priority != 3 {
		t.Errorf("failed update partially applied: %+v", got)
	}
}

func TestReplacingImageRemovesOldFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.images.err = errors.New("permission denied")

	a, err := f.m.Create(ctx, domain.Draft{Title: "t", Content: "c", Image: "/uploads/old.png"}, "")
	if err != nil {
		t.Fatal(err)
	}

	// Cleanup failure does not fail the update.
	if _, err := f.m.Update(ctx, a.ID, domain.Patch{Image: strPtr("/uploads/new.png")}, ""); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := f.m.Update(ctx, a.ID, domain.Patch{Title: strPtr("t2")}, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.m.Delete(ctx, a.ID, ""); err != nil {
		t.Fatal(err)
	}

	if len(f.images.removed) != 1 || f.images.removed[0] != "/uploads/old.png" {
		t.Errorf("removed = %v, want only the replaced image", f.images.removed)
	}
}

func TestDeleteAndRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.create(t, "X", 2)
	other := f.create(t, "other", 4)

	deleted, err := f.m.Delete(ctx, x.ID, "ops@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if deleted.ID != x.ID {
		t.Fatalf("Delete() returned %s", deleted.ID)
	}

	if _, err := f.m.Get(ctx, x.ID); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
	if ids, _ := visibleIDs(t, f.m); len(ids) != 1 || ids[0] != other.ID {
		t.Errorf("visible after delete = %v", ids)
	}

	entries := f.history(t, domain.ActionDeleted)
	if len(entries) != 1 {
		t.Fatalf("deleted entries = %d, want 1", len(entries))
	}
	if snap := entries[0].Snapshot; snap.ID != x.ID || snap.Title != x.Title || !snap.UpdatedAt.Equal(x.UpdatedAt) {
		t.Errorf("snapshot = %+v, want pre-delete state %+v", snap, x)
	}

	changes := f.rec.StateChanges()
	if last := changes[len(changes)-1]; last.Action != broadcast.ActionDelete || last.ID != x.ID {
		t.Errorf("state-changed after delete = %+v", last)
	}

	if _, err := f.m.Delete(ctx, x.ID, ""); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}

	f.clock.Set(t0.Add(time.Minute))
	restored, err := f.m.Restore(ctx, x.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if restored.ID != x.ID || !restored.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("restored = %+v", restored)
	}
	if ids, _ := visibleIDs(t, f.m); len(ids) != 2 || ids[0] != x.ID {
		t.Errorf("visible after restore = %v", ids)
	}
	if n := len(f.history(t, domain.ActionRestored)); n != 1 {
		t.Errorf("restored entries = %d, want 1", n)
	}

	if _, err := f.m.Restore(ctx, x.ID, ""); !domain.IsKind(err, domain.KindConflict) {
		t.Errorf("Restore() of live id error = %v, want conflict", err)
	}
	if _, err := f.m.Restore(ctx, other.ID+"-never", ""); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("Restore() of unknown id error = %v, want not found", err)
	}
}

func TestEventPublishedBeforeReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, "A", 1)
	if n := len(f.rec.Topic(broadcast.TopicStateChanged)); n != 1 {
		t.Fatalf("events after Create returned = %d", n)
	}
	if _, err := f.m.Update(ctx, a.ID, domain.Patch{Active: boolPtr(false)}, ""); err != nil {
		t.Fatal(err)
	}
	if n := len(f.rec.Topic(broadcast.TopicStateChanged)); n != 2 {
		t.Fatalf("events after Update returned = %d", n)
	}
	if _, err := f.m.Delete(ctx, a.ID, ""); err != nil {
		t.Fatal(err)
	}

	want := []string{broadcast.ActionCreate, broadcast.ActionUpdate, broadcast.ActionDelete}
	changes := f.rec.StateChanges()
	if len(changes) != len(want) {
		t.Fatalf("state changes = %d, want %d", len(changes), len(want))
	}
	for i, sc := range changes {
		if sc.Action != want[i] {
			t.Errorf("event %d action = %s, want %s", i, sc.Action, want[i])
		}
	}
}

func TestConcurrentUpdatesKeepEveryChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "A", 3)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var p domain.Patch
			if i%2 == 0 {
				p.Title = strPtr(fmt.Sprintf("title-%d", i))
			} else {
				p.Content = strPtr(fmt.Sprintf("content-%d", i))
			}
			if _, err := f.m.Update(ctx, a.ID, p, ""); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	updates := f.history(t, domain.ActionUpdated)
	if len(updates) != writers {
		t.Fatalf("updated entries = %d, want %d", len(updates), writers)
	}

	// Each entry must build on the previous one: the newest snapshot carries
	// the latest title and the latest content written.
	var lastTitle, lastContent string
	for i := len(updates) - 1; i >= 0; i-- {
		s := updates[i].Snapshot
		if lastTitle != "" && s.Title != lastTitle && s.Content != lastContent {
			t.Fatalf("entry %d changed both fields: lost update", i)
		}
		lastTitle, lastContent = s.Title, s.Content
	}
	got, _ := f.m.Get(ctx, a.ID)
	if got.Title != updates[0].Snapshot.Title || got.Content != updates[0].Snapshot.Content {
		t.Errorf("stored %q/%q, newest snapshot %q/%q", got.Title, got.Content,
			updates[0].Snapshot.Title, updates[0].Snapshot.Content)
	}
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	news, err := f.m.CreateCategory(ctx, " News ")
	if err != nil {
		t.Fatal(err)
	}
	if news.Name != "News" {
		t.Errorf("name = %q, want trimmed", news.Name)
	}
	if _, err := f.m.CreateCategory(ctx, "news"); !domain.IsKind(err, domain.KindConflict) {
		t.Errorf("duplicate name error = %v, want conflict", err)
	}
	if _, err := f.m.CreateCategory(ctx, " "); !domain.IsKind(err, domain.KindInvalidInput) {
		t.Errorf("blank name error = %v, want invalid input", err)
	}
	if _, err := f.m.CreateCategory(ctx, "Events"); err != nil {
		t.Fatal(err)
	}

	cats, err := f.m.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0].Name != "Events" || cats[1].Name != "News" {
		t.Fatalf("Categories() = %+v", cats)
	}

	a, err := f.m.Create(ctx, domain.Draft{Title: "t", Content: "c", Category: news.ID}, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.m.DeleteCategory(ctx, news.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.m.DeleteCategory(ctx, news.ID); !domain.IsKind(err, domain.KindNotFound) {
		t.Errorf("second DeleteCategory() error = %v", err)
	}

	got, _ := f.m.Get(ctx, a.ID)
	if got.Category != news.ID {
		t.Errorf("stored category = %q, want the original reference kept", got.Category)
	}
	views, err := f.m.Views(ctx, got)
	if err != nil {
		t.Fatal(err)
	}
	if views[0].Category != "" || views[0].CategoryName != "" {
		t.Errorf("dangling category should resolve to none, got %q/%q", views[0].Category, views[0].CategoryName)
	}
}

func TestUnknownCategoryIsNotAnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	safety, err := f.m.CreateCategory(ctx, "Safety")
	if err != nil {
		t.Fatal(err)
	}

	a, err := f.m.Create(ctx, domain.Draft{Title: "t", Content: "c", Category: "deleted-cat"}, "")
	if err != nil {
		t.Fatalf("Create() with unknown category error = %v", err)
	}
	b, err := f.m.Create(ctx, domain.Draft{Title: "t", Content: "c", Category: safety.ID}, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.m.Update(ctx, b.ID, domain.Patch{Category: strPtr("gone")}, ""); err != nil {
		t.Fatalf("Update() to unknown category error = %v", err)
	}
	b, _ = f.m.Get(ctx, b.ID)
	c, err := f.m.Create(ctx, domain.Draft{Title: "t", Content: "c", Category: safety.ID}, "")
	if err != nil {
		t.Fatal(err)
	}

	views, err := f.m.Views(ctx, a, b, c)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name         string
		view         domain.AnnouncementView
		category     string
		categoryName string
	}{
		{"created dangling", views[0], "", ""},
		{"updated dangling", views[1], "", ""},
		{"resolved", views[2], safety.ID, "Safety"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.view.Category != tt.category || tt.view.CategoryName != tt.categoryName {
				t.Errorf("view category = %q/%q, want %q/%q",
					tt.view.Category, tt.view.CategoryName, tt.category, tt.categoryName)
			}
		})
	}
}
