// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

var base = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func sample(id string) domain.Announcement {
	return domain.Announcement{
		ID:        id,
		Title:     "title " + id,
		Content:   "content " + id,
		Priority:  2,
		Active:    true,
		Duration:  7,
		StartAt:   base,
		EndAt:     base.Add(7 * 24 * time.Hour),
		CreatedAt: base,
		UpdatedAt: base,
	}
}

// Run exercises the store contract against stores built by open.
func Run(t *testing.T, open Factory) {
	t.Run("announcement round trip", func(t *testing.T) { testAnnouncementRoundTrip(t, open(t)) })
	t.Run("remove announcement", func(t *testing.T) { testRemove(t, open(t)) })
	t.Run("history most recent first", func(t *testing.T) { testHistoryOrder(t, open(t)) })
	t.Run("failed update writes nothing", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("view is read only", func(t *testing.T) { testReadOnly(t, open(t)) })
	t.Run("categories", func(t *testing.T) { testCategories(t, open(t)) })
	t.Run("live session", func(t *testing.T) { testLive(t, open(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("concurrent read modify write", func(t *testing.T) { testNoLostUpdates(t, open(t)) })
}

func testAnnouncementRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	want := sample("a1")
	want.Image = "/uploads/a1.png"
	want.Category = "cat-1"

	if err := s.Update(ctx, func(tx store.Tx) error { return tx.PutAnnouncement(want) }); err != nil {
		t.Fatalf("put: %v", err)
	}

	var got domain.Announcement
	err := s.View(ctx, func(tx store.Tx) error {
		var err error
		got, err = tx.Announcement("a1")
		return err
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != want.Title || got.Content != want.Content || got.Image != want.Image ||
		got.Category != want.Category || got.Priority != want.Priority || got.Active != want.Active ||
		!got.StartAt.Equal(want.StartAt) || !got.EndAt.Equal(want.EndAt) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}

	err = s.View(ctx, func(tx store.Tx) error {
		_, err := tx.Announcement("missing")
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get missing: err = %v, want ErrNotFound", err)
	}
}

func testRemove(t *testing.T, s store.Store) {
	ctx := context.Background()
	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutAnnouncement(sample("a1")); err != nil {
			return err
		}
		return tx.PutAnnouncement(sample("a2"))
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Update(ctx, func(tx store.Tx) error { return tx.RemoveAnnouncement("a1") }); err != nil {
		t.Fatalf("remove: %v", err)
	}

	var all []domain.Announcement
	_ = s.View(ctx, func(tx store.Tx) error {
		var err error
		all, err = tx.Announcements()
		return err
	})
	if len(all) != 1 || all[0].ID != "a2" {
		t.Fatalf("announcements after remove = %+v, want only a2", all)
	}
}

func testHistoryOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := sample("a1")
	actions := []domain.Action{domain.ActionCreated, domain.ActionUpdated, domain.ActionDeleted}
	for i, action := range actions {
		e := domain.NewHistoryEntry(a, action, "admin@example.com", base.Add(time.Duration(i)*time.Minute))
		if err := s.Update(ctx, func(tx store.Tx) error { return tx.AppendHistory(e) }); err != nil {
			t.Fatalf("append %s: %v", action, err)
		}
	}

	var entries []domain.HistoryEntry
	_ = s.View(ctx, func(tx store.Tx) error {
		var err error
		entries, err = tx.History()
		return err
	})
	if len(entries) != 3 {
		t.Fatalf("history len = %d, want 3", len(entries))
	}
	want := []domain.Action{domain.ActionDeleted, domain.ActionUpdated, domain.ActionCreated}
	for i := range want {
		if entries[i].Action != want[i] {
			t.Fatalf("history[%d].Action = %s, want %s", i, entries[i].Action, want[i])
		}
	}
	if entries[0].User == nil || *entries[0].User != "admin@example.com" {
		t.Fatalf("history user not preserved: %+v", entries[0].User)
	}
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")
	err := s.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutAnnouncement(sample("a1")); err != nil {
			return err
		}
		if err := tx.AppendHistory(domain.NewHistoryEntry(sample("a1"), domain.ActionCreated, "", base)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("update err = %v, want boom", err)
	}

	_ = s.View(ctx, func(tx store.Tx) error {
		all, _ := tx.Announcements()
		hist, _ := tx.History()
		if len(all) != 0 || len(hist) != 0 {
			t.Errorf("failed update leaked writes: %d announcements, %d history", len(all), len(hist))
		}
		return nil
	})
}

func testReadOnly(t *testing.T, s store.Store) {
	err := s.View(context.Background(), func(tx store.Tx) error { return tx.PutAnnouncement(sample("a1")) })
	if !errors.Is(err, store.ErrReadOnly) {
		t.Fatalf("write in view: err = %v, want ErrReadOnly", err)
	}
}

func testCategories(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := domain.Category{ID: "c1", Name: "Events", CreatedAt: base}
	if err := s.Update(ctx, func(tx store.Tx) error { return tx.PutCategory(c) }); err != nil {
		t.Fatalf("put category: %v", err)
	}
	_ = s.View(ctx, func(tx store.Tx) error {
		got, err := tx.Category("c1")
		if err != nil || got.Name != "Events" {
			t.Errorf("category = %+v, %v", got, err)
		}
		return nil
	})
	if err := s.Update(ctx, func(tx store.Tx) error { return tx.RemoveCategory("c1") }); err != nil {
		t.Fatalf("remove category: %v", err)
	}
	_ = s.View(ctx, func(tx store.Tx) error {
		if _, err := tx.Category("c1"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("removed category err = %v, want ErrNotFound", err)
		}
		return nil
	})
}

func testLive(t *testing.T, s store.Store) {
	ctx := context.Background()
	_ = s.View(ctx, func(tx store.Tx) error {
		live, err := tx.Live()
		if err != nil || live.Status != domain.LiveOff {
			t.Errorf("initial live = %+v, %v; want OFF", live, err)
		}
		return nil
	})

	link := "https://stream.example.com/live"
	started := base
	on := domain.LiveSession{Status: domain.LiveOn, Link: &link, StartedAt: &started}
	if err := s.Update(ctx, func(tx store.Tx) error { return tx.PutLive(on) }); err != nil {
		t.Fatalf("put live: %v", err)
	}
	_ = s.View(ctx, func(tx store.Tx) error {
		live, _ := tx.Live()
		if live.Status != domain.LiveOn || live.Link == nil || *live.Link != link {
			t.Errorf("live = %+v, want ON with link", live)
		}
		return nil
	})
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := domain.User{ID: "u1", Email: " Admin@Example.com ", PasswordHash: "$2a$hash", Role: domain.RoleAdmin, CreatedAt: base}
	if err := s.Update(ctx, func(tx store.Tx) error { return tx.PutUser(u) }); err != nil {
		t.Fatalf("put user: %v", err)
	}
	_ = s.View(ctx, func(tx store.Tx) error {
		got, err := tx.User("admin@example.com")
		if err != nil || got.ID != "u1" {
			t.Errorf("user lookup = %+v, %v", got, err)
		}
		users, _ := tx.Users()
		if len(users) != 1 {
			t.Errorf("users len = %d, want 1", len(users))
		}
		return nil
	})
}

func testNoLostUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := sample("counter")
	a.Duration = 1
	if err := s.Update(ctx, func(tx store.Tx) error { return tx.PutAnnouncement(a) }); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(ctx, func(tx store.Tx) error {
				cur, err := tx.Announcement("counter")
				if err != nil {
					return err
				}
				cur.Duration++
				return tx.PutAnnouncement(cur)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update: %v", err)
		}
	}

	_ = s.View(ctx, func(tx store.Tx) error {
		got, _ := tx.Announcement("counter")
		if want := 1 + workers; got.Duration != want {
			t.Errorf("duration after %d increments = %d, want %d (lost update)", workers, got.Duration, want)
		}
		return nil
	})
}

// Must fails the test when err is non-nil.
func Must(t *testing.T, err error, format string, args ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", fmt.Sprintf(format, args...), err)
	}
}
