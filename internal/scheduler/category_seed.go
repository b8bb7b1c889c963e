package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
)

const seedDebounce = 250 * time.Millisecond

// CategoryCreator is the part of the board the seeder writes through.
type CategoryCreator interface {
	CreateCategory(ctx context.Context, name string) (domain.Category, error)
}

// SeedFile is the on-disk format of the category seed file:
//
//	categories:
//	  - Safety
//	  - Events
type SeedFile struct {
	Categories []string `yaml:"categories"`
}

// LoadSeedFile reads and parses a seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

// CategorySeeder creates the categories listed in a YAML file and reapplies
// the file whenever it changes. Categories are never removed by the seeder.
type CategorySeeder struct {
	path    string
	board   CategoryCreator
	logger  logger.Logger
	applied chan int
}

func NewCategorySeeder(path string, board CategoryCreator, log logger.Logger) *CategorySeeder {
	if log == nil {
		log = logger.NewNop()
	}
	return &CategorySeeder{path: path, board: board, logger: log}
}

// Seed applies the file once and returns how many categories were created.
// Names that already exist, ignoring case, are skipped.
func (s *CategorySeeder) Seed(ctx context.Context) (int, error) {
	f, err := LoadSeedFile(s.path)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, name := range f.Categories {
		if _, err := s.board.CreateCategory(ctx, name); err != nil {
			switch {
			case domain.IsKind(err, domain.KindConflict):
				continue
			case domain.IsKind(err, domain.KindInvalidInput):
				s.logger.Warn("skipping invalid category in seed file",
					logger.String("name", name), logger.Error(err))
				continue
			default:
				return created, err
			}
		}
		created++
	}

	s.logger.Info("category seed applied",
		logger.String("file", s.path),
		logger.Int("listed", len(f.Categories)),
		logger.Int("created", created))
	return created, nil
}

// Watch reapplies the seed file on change until ctx is cancelled. Editors
// often write in several steps, so events are debounced.
func (s *CategorySeeder) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	file := filepath.Clean(s.path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(seedDebounce, func() {
			n, err := s.Seed(ctx)
			if err != nil {
				s.logger.Error("failed to reapply category seed", logger.Error(err))
			}
			if s.applied != nil {
				s.applied <- n
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == file && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("seed file watcher error", logger.Error(err))
		}
	}
}
