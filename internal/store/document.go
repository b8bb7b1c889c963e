package store

import (
	"slices"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
)

// Document is the whole board state as one structured value. It is the
// physical layout of the file and redis backends.
type Document struct {
	Announcements []domain.Announcement `json:"announcements"`
	History       []domain.HistoryEntry `json:"history"`
	Categories    []domain.Category     `json:"categories"`
	Users         []domain.User         `json:"users"`
	Live          *domain.LiveSession   `json:"live,omitempty"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Announcements: []domain.Announcement{},
		History:       []domain.HistoryEntry{},
		Categories:    []domain.Category{},
		Users:         []domain.User{},
	}
}

// Clone copies the document so a transaction can be discarded on error.
// History entries and live sessions are never mutated in place, so their
// pointer fields are shared.
func (d *Document) Clone() *Document {
	c := &Document{
		Announcements: slices.Clone(d.Announcements),
		History:       slices.Clone(d.History),
		Categories:    slices.Clone(d.Categories),
		Users:         slices.Clone(d.Users),
	}
	if d.Live != nil {
		live := *d.Live
		c.Live = &live
	}
	return c
}

// docTx implements Tx over a Document.
type docTx struct {
	doc      *Document
	readOnly bool
}

func newDocTx(doc *Document, readOnly bool) *docTx {
	return &docTx{doc: doc, readOnly: readOnly}
}

func (t *docTx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *docTx) Announcement(id string) (domain.Announcement, error) {
	i := slices.IndexFunc(t.doc.Announcements, func(a domain.Announcement) bool { return a.ID == id })
	if i < 0 {
		return domain.Announcement{}, ErrNotFound
	}
	return t.doc.Announcements[i], nil
}

func (t *docTx) Announcements() ([]domain.Announcement, error) {
	return slices.Clone(t.doc.Announcements), nil
}

func (t *docTx) PutAnnouncement(a domain.Announcement) error {
	if err := t.writable(); err != nil {
		return err
	}
	i := slices.IndexFunc(t.doc.Announcements, func(x domain.Announcement) bool { return x.ID == a.ID })
	if i < 0 {
		t.doc.Announcements = append(t.doc.Announcements, a)
		return nil
	}
	t.doc.Announcements[i] = a
	return nil
}

func (t *docTx) RemoveAnnouncement(id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.doc.Announcements = slices.DeleteFunc(t.doc.Announcements, func(a domain.Announcement) bool { return a.ID == id })
	return nil
}

func (t *docTx) AppendHistory(e domain.HistoryEntry) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.doc.History = slices.Insert(t.doc.History, 0, e)
	return nil
}

func (t *docTx) History() ([]domain.HistoryEntry, error) {
	return slices.Clone(t.doc.History), nil
}

func (t *docTx) Category(id string) (domain.Category, error) {
	i := slices.IndexFunc(t.doc.Categories, func(c domain.Category) bool { return c.ID == id })
	if i < 0 {
		return domain.Category{}, ErrNotFound
	}
	return t.doc.Categories[i], nil
}

func (t *docTx) Categories() ([]domain.Category, error) {
	return slices.Clone(t.doc.Categories), nil
}

func (t *docTx) PutCategory(c domain.Category) error {
	if err := t.writable(); err != nil {
		return err
	}
	i := slices.IndexFunc(t.doc.Categories, func(x domain.Category) bool { return x.ID == c.ID })
	if i < 0 {
		t.doc.Categories = append(t.doc.Categories, c)
		return nil
	}
	t.doc.Categories[i] = c
	return nil
}

func (t *docTx) RemoveCategory(id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.doc.Categories = slices.DeleteFunc(t.doc.Categories, func(c domain.Category) bool { return c.ID == id })
	return nil
}

func (t *docTx) Live() (domain.LiveSession, error) {
	if t.doc.Live == nil {
		return domain.LiveOffSession(), nil
	}
	return *t.doc.Live, nil
}

func (t *docTx) PutLive(s domain.LiveSession) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.doc.Live = &s
	return nil
}

func (t *docTx) User(email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	i := slices.IndexFunc(t.doc.Users, func(u domain.User) bool { return u.Email == email })
	if i < 0 {
		return domain.User{}, ErrNotFound
	}
	return t.doc.Users[i], nil
}

func (t *docTx) Users() ([]domain.User, error) {
	return slices.Clone(t.doc.Users), nil
}

func (t *docTx) PutUser(u domain.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	u.Email = domain.NormalizeEmail(u.Email)
	i := slices.IndexFunc(t.doc.Users, func(x domain.User) bool { return x.Email == u.Email })
	if i < 0 {
		t.doc.Users = append(t.doc.Users, u)
		return nil
	}
	t.doc.Users[i] = u
	return nil
}

// RunView runs fn read-only against doc. Backends that materialize a
// Document per transaction use it.
func RunView(doc *Document, fn func(Tx) error) error {
	return fn(newDocTx(doc, true))
}

// RunUpdate runs fn against a clone of doc and returns the modified clone.
// doc is left untouched when fn fails.
func RunUpdate(doc *Document, fn func(Tx) error) (*Document, error) {
	next := doc.Clone()
	if err := fn(newDocTx(next, false)); err != nil {
		return nil, err
	}
	return next, nil
}
