package board

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/logger"
	"github.com/MrSnakeDoc/noticeboard/internal/store"
)

// Categories lists categories by name.
func (m *Manager) Categories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	err := m.store.View(ctx, func(tx store.Tx) error {
		var err error
		cats, err = tx.Categories()
		return err
	})
	if err != nil {
		return nil, store.Wrap("list categories", err)
	}
	slices.SortFunc(cats, func(a, b domain.Category) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return cats, nil
}

// CreateCategory adds a category. Names are unique ignoring case.
func (m *Manager) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	name, err := domain.NormalizeCategoryName(name)
	if err != nil {
		return domain.Category{}, err
	}
	id, err := m.newID()
	if err != nil {
		return domain.Category{}, domain.StorageFailure("generate id", err)
	}
	c := domain.Category{ID: id, Name: name, CreatedAt: m.now()}

	err = m.store.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.Categories()
		if err != nil {
			return err
		}
		for _, e := range existing {
			if domain.SameCategoryName(e.Name, name) {
				return domain.Conflict("category already exists: " + name)
			}
		}
		return tx.PutCategory(c)
	})
	if err != nil {
		return domain.Category{}, store.Wrap("create category", err)
	}

	m.logger.Info("category created",
		logger.String("id", c.ID),
		logger.String("name", c.Name))
	return c, nil
}

// DeleteCategory removes a category. Announcements that reference it keep
// the reference, which then resolves to no category.
func (m *Manager) DeleteCategory(ctx context.Context, id string) error {
	err := m.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.Category(id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.NotFound("category", id)
			}
			return err
		}
		return tx.RemoveCategory(id)
	})
	if err != nil {
		return store.Wrap("delete category", err)
	}

	m.logger.Info("category deleted", logger.String("id", id))
	return nil
}

// Views builds the caller-facing form of anns with category references
// resolved. References to deleted categories resolve to no category.
func (m *Manager) Views(ctx context.Context, anns ...domain.Announcement) ([]domain.AnnouncementView, error) {
	cats, err := m.Categories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AnnouncementView, 0, len(anns))
	for _, a := range anns {
		out = append(out, a.ViewWith(cats))
	}
	return out, nil
}
