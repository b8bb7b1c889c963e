package domain

import (
	"strings"
	"time"
)

const (
	// PriorityEmergency pins an announcement as the only visible item.
	PriorityEmergency = 0
	// PriorityHighest is the most urgent ordinary priority.
	PriorityHighest = 1
	// PriorityLowest is the least urgent ordinary priority.
	PriorityLowest = 5

	// DefaultPriority applies when a create request omits priority.
	DefaultPriority = 1
	// DefaultDurationDays applies when a create request omits duration.
	DefaultDurationDays = 7

	day = 24 * time.Hour
)

// Kind describes what an announcement carries. It is derived from
// Image and Content and never stored.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindMixed Kind = "mixed"
)

// Announcement is the board's unit of content.
//
// It is owned by the Store; callers mutate it only through the
// Lifecycle Manager.
type Announcement struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is a time-ordered UUID assigned at creation.
	ID string `json:"id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Title   string `json:"title"`
	Content string `json:"content"`

	// Image is a reference produced by the upload collaborator
	// (e.g. /uploads/1712-abc.png). Empty when there is no image.
	Image string `json:"image,omitempty"`

	// Category references a Category ID. A dangling reference means
	// "no category".
	Category string `json:"category,omitempty"`

	// ─────────────────────────────
	// Scheduling
	// ─────────────────────────────

	// Priority is 0 (emergency) or 1 (highest) .. 5 (lowest).
	Priority int `json:"priority"`

	// Active false hides the item regardless of its window.
	Active bool `json:"active"`

	// Duration is the window length in days used to derive EndAt.
	Duration int `json:"duration"`

	// StartAt and EndAt bound the half-open active window [StartAt, EndAt).
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`

	// ─────────────────────────────
	// Bookkeeping (store-assigned)
	// ─────────────────────────────

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Kind derives the content kind from Image and Content.
func (a Announcement) Kind() Kind {
	if a.Image == "" {
		return KindText
	}
	if strings.TrimSpace(a.Content) == "" {
		return KindImage
	}
	return KindMixed
}

// AnnouncementView is the caller-facing form of an announcement. Kind and
// CategoryName are computed when the view is built.
type AnnouncementView struct {
	Announcement
	Kind         Kind   `json:"kind"`
	CategoryName string `json:"categoryName,omitempty"`
}

// View returns the announcement with its derived kind.
func (a Announcement) View() AnnouncementView {
	return AnnouncementView{Announcement: a, Kind: a.Kind()}
}

// ViewWith is View with the category reference resolved against
// categories. A dangling reference shows as no category.
func (a Announcement) ViewWith(categories []Category) AnnouncementView {
	v := a.View()
	if c := ResolveCategory(a.Category, categories); c != nil {
		v.CategoryName = c.Name
	} else {
		v.Category = ""
	}
	return v
}

// IsEmergency reports whether the announcement carries the emergency priority.
func (a Announcement) IsEmergency() bool {
	return a.Priority == PriorityEmergency
}

// InWindow reports whether now falls inside [StartAt, EndAt).
// A zero EndAt leaves the window open-ended.
func (a Announcement) InWindow(now time.Time) bool {
	if now.Before(a.StartAt) {
		return false
	}
	if a.EndAt.IsZero() {
		return true
	}
	return now.Before(a.EndAt)
}

// Draft carries the caller-supplied fields of a create request.
// Nil pointers fall back to defaults.
type Draft struct {
	Title    string
	Content  string
	Image    string
	Category string
	Priority *int
	Duration *int
	Active   *bool
	StartAt  *time.Time
	EndAt    *time.Time
}

// Patch carries a partial update. Only non-nil fields are applied.
type Patch struct {
	Title    *string
	Content  *string
	Image    *string
	Category *string
	Priority *int
	Duration *int
	Active   *bool
	StartAt  *time.Time
	EndAt    *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Image == nil && p.Category == nil &&
		p.Priority == nil && p.Duration == nil && p.Active == nil &&
		p.StartAt == nil && p.EndAt == nil
}

// NewAnnouncement validates a draft and builds the announcement it describes.
func NewAnnouncement(id string, d Draft, now time.Time) (Announcement, error) {
	title := strings.TrimSpace(d.Title)
	content := strings.TrimSpace(d.Content)
	if title == "" || content == "" {
		return Announcement{}, InvalidInput("title and content are required")
	}

	a := Announcement{
		ID:        id,
		Title:     title,
		Content:   content,
		Image:     d.Image,
		Category:  strings.TrimSpace(d.Category),
		Priority:  DefaultPriority,
		Duration:  DefaultDurationDays,
		Active:    true,
		StartAt:   now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if d.Priority != nil {
		a.Priority = *d.Priority
	}
	if d.Duration != nil {
		a.Duration = *d.Duration
	}
	if d.Active != nil {
		a.Active = *d.Active
	}
	if d.StartAt != nil {
		a.StartAt = *d.StartAt
	}
	if d.EndAt != nil {
		a.EndAt = *d.EndAt
	} else {
		a.EndAt = a.StartAt.Add(time.Duration(a.Duration) * day)
	}

	if err := a.validate(); err != nil {
		return Announcement{}, err
	}
	return a, nil
}

// Apply merges a patch into a copy of the announcement. EndAt is recomputed
// from StartAt+Duration when either changed and no explicit EndAt was given.
func (a Announcement) Apply(p Patch, now time.Time) (Announcement, error) {
	next := a

	if p.Title != nil {
		next.Title = strings.TrimSpace(*p.Title)
		if next.Title == "" {
			return Announcement{}, InvalidInput("title cannot be empty")
		}
	}
	if p.Content != nil {
		next.Content = strings.TrimSpace(*p.Content)
		if next.Content == "" {
			return Announcement{}, InvalidInput("content cannot be empty")
		}
	}
	if p.Image != nil {
		next.Image = *p.Image
	}
	if p.Category != nil {
		next.Category = strings.TrimSpace(*p.Category)
	}
	if p.Priority != nil {
		next.Priority = *p.Priority
	}
	if p.Active != nil {
		next.Active = *p.Active
	}
	if p.Duration != nil {
		next.Duration = *p.Duration
	}
	if p.StartAt != nil {
		next.StartAt = *p.StartAt
	}

	switch {
	case p.EndAt != nil:
		next.EndAt = *p.EndAt
	case p.Duration != nil || p.StartAt != nil:
		next.EndAt = next.StartAt.Add(time.Duration(next.Duration) * day)
	}

	next.UpdatedAt = now

	if err := next.validate(); err != nil {
		return Announcement{}, err
	}
	return next, nil
}

func (a Announcement) validate() error {
	if a.Priority < PriorityEmergency || a.Priority > PriorityLowest {
		return InvalidInput("priority must be between 0 and 5")
	}
	if a.Duration < 1 {
		return InvalidInput("duration must be at least 1 day")
	}
	if !a.EndAt.IsZero() && !a.EndAt.After(a.StartAt) {
		return InvalidInput("endAt must be after startAt")
	}
	return nil
}
