package domain

import (
	"strings"
	"time"
)

// Category is a label announcements may reference.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeCategoryName trims a name and rejects empty ones.
func NormalizeCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", InvalidInput("category name is required")
	}
	return name, nil
}

// SameCategoryName compares names case-insensitively.
func SameCategoryName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ResolveCategory returns the category id refers to, or nil when id is empty
// or dangling.
func ResolveCategory(id string, categories []Category) *Category {
	if id == "" {
		return nil
	}
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i]
		}
	}
	return nil
}
