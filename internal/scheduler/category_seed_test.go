package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/noticeboard/internal/board"
	"github.com/MrSnakeDoc/noticeboard/internal/broadcast/broadcasttest"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
)

func writeSeed(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newBoard() *board.Manager {
	return board.New(board.Config{
		Store:     store.NewMemory(),
		Publisher: &broadcasttest.Recorder{},
		Logger:    logger.NewNop(),
	})
}

func categoryNames(t *testing.T, m *board.Manager) []string {
	t.Helper()
	cats, err := m.Categories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}

func TestCategorySeeder_Seed(t *testing.T) {
	ctx := context.Background()
	m := newBoard()
	if _, err := m.CreateCategory(ctx, "Safety"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "categories.yaml")
	writeSeed(t, path, "categories:\n  - safety\n  - Events\n  - \"   \"\n  - Canteen\n  - events\n")

	s := NewCategorySeeder(path, m, logger.New("error", false))
	created, err := s.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}

	names := categoryNames(t, m)
	want := []string{"Canteen", "Events", "Safety"}
	if len(names) != len(want) {
		t.Fatalf("categories = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("categories[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	created, err = s.Seed(ctx)
	if err != nil || created != 0 {
		t.Errorf("second Seed() = %d, %v; want 0, nil", created, err)
	}
}

func TestCategorySeeder_BadFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	writeSeed(t, bad, "categories: [unclosed\n")

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.yaml")},
		{"malformed", bad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCategorySeeder(tt.path, newBoard(), nil).Seed(context.Background()); err == nil {
				t.Fatal("Seed() should fail")
			}
		})
	}
}

func TestCategorySeeder_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	writeSeed(t, path, "categories: [Safety]\n")

	m := newBoard()
	s := NewCategorySeeder(path, m, nil)
	s.applied = make(chan int, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// The watcher registers asynchronously. Rewrites are spaced well past the
	// debounce window so a retry never postpones a pending reload.
	time.Sleep(300 * time.Millisecond)
	writeSeed(t, path, "categories: [Safety, Events]\n")
	deadline := time.After(5 * time.Second)
	retry := time.NewTicker(4 * seedDebounce)
	defer retry.Stop()
wait:
	for {
		select {
		case <-s.applied:
			break wait
		case <-retry.C:
			writeSeed(t, path, "categories: [Safety, Events]\n")
		case <-deadline:
			cancel()
			t.Fatal("seed file change was not applied")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}

	names := categoryNames(t, m)
	if len(names) != 2 || names[0] != "Events" || names[1] != "Safety" {
		t.Errorf("categories = %v, want [Events Safety]", names)
	}
}
