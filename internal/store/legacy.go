package store

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
)

// wireAnnouncement accepts both the current field names and the legacy
// database.json ones (isActive, expiresAt, null image/category).
type wireAnnouncement struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Image     *string    `json:"image"`
	Category  *string    `json:"category"`
	Priority  *int       `json:"priority"`
	Duration  *int       `json:"duration"`
	Active    *bool      `json:"active"`
	IsActive  *bool      `json:"isActive"`
	StartAt   *time.Time `json:"startAt"`
	EndAt     *time.Time `json:"endAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

func (w wireAnnouncement) toDomain() domain.Announcement {
	a := domain.Announcement{
		ID:        w.ID,
		Title:     w.Title,
		Content:   w.Content,
		Priority:  domain.DefaultPriority,
		Duration:  domain.DefaultDurationDays,
		Active:    true,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.CreatedAt,
		StartAt:   w.CreatedAt,
	}
	if w.Image != nil {
		a.Image = *w.Image
	}
	if w.Category != nil {
		a.Category = *w.Category
	}
	if w.Priority != nil {
		a.Priority = *w.Priority
	}
	if w.Duration != nil && *w.Duration > 0 {
		a.Duration = *w.Duration
	}
	switch {
	case w.Active != nil:
		a.Active = *w.Active
	case w.IsActive != nil:
		a.Active = *w.IsActive
	}
	if w.StartAt != nil {
		a.StartAt = *w.StartAt
	}
	switch {
	case w.EndAt != nil:
		a.EndAt = *w.EndAt
	case w.ExpiresAt != nil:
		a.EndAt = *w.ExpiresAt
	default:
		a.EndAt = a.StartAt.Add(time.Duration(a.Duration) * 24 * time.Hour)
	}
	if w.UpdatedAt != nil {
		a.UpdatedAt = *w.UpdatedAt
	}
	return a
}

// wireHistory accepts the current {snapshot, action, ...} shape and the
// legacy shape where the snapshot fields sit next to action.
type wireHistory struct {
	wireAnnouncement
	Snapshot *wireAnnouncement `json:"snapshot"`
	Action   domain.Action     `json:"action"`
	ActionAt time.Time         `json:"actionAt"`
	User     *string           `json:"user"`
}

type wireUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Password     string    `json:"password"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

type wireDocument struct {
	Announcements []wireAnnouncement  `json:"announcements"`
	History       []wireHistory       `json:"history"`
	Categories    []domain.Category   `json:"categories"`
	Users         []wireUser          `json:"users"`
	Live          *domain.LiveSession `json:"live"`
}

// DecodeDocument parses a document in either the current or the legacy
// layout. Plaintext legacy passwords are replaced by bcrypt hashes.
func DecodeDocument(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	doc := NewDocument()
	for _, a := range w.Announcements {
		doc.Announcements = append(doc.Announcements, a.toDomain())
	}
	for _, h := range w.History {
		snap := h.wireAnnouncement
		if h.Snapshot != nil {
			snap = *h.Snapshot
		}
		doc.History = append(doc.History, domain.HistoryEntry{
			Snapshot: snap.toDomain(),
			Action:   h.Action,
			ActionAt: h.ActionAt,
			User:     h.User,
		})
	}
	if w.Categories != nil {
		doc.Categories = w.Categories
	}
	for _, u := range w.Users {
		user, err := u.toDomain()
		if err != nil {
			return nil, err
		}
		doc.Users = append(doc.Users, user)
	}
	if w.Live != nil {
		if w.Live.Status == "" {
			w.Live.Status = domain.LiveOff
		}
		doc.Live = w.Live
	}
	return doc, nil
}

func (w wireUser) toDomain() (domain.User, error) {
	u := domain.User{
		ID:           w.ID,
		Email:        domain.NormalizeEmail(w.Email),
		PasswordHash: w.PasswordHash,
		Role:         w.Role,
		CreatedAt:    w.CreatedAt,
	}
	if u.Role == "" {
		u.Role = domain.RoleAdmin
	}
	if u.PasswordHash == "" && w.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(w.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash legacy password for %s: %w", u.Email, err)
		}
		u.PasswordHash = string(hash)
	}
	return u, nil
}
