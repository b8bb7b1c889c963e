package domain

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Visibility is the result of evaluating the board at a point in time.
type Visibility struct {
	// Items is the ordered sequence displays should rotate through.
	Items []Announcement

	// RotationSuspended is true when an emergency announcement is pinned.
	// Items then holds exactly that announcement.
	RotationSuspended bool
}

// Visible computes the ordered, currently visible announcements.
//
//  1. inactive items are dropped;
//  2. if an active emergency exists it is returned alone (lowest ID wins
//     when several exist) and rotation is suspended, ignoring its window;
//  3. otherwise items outside [StartAt, EndAt) are dropped;
//  4. the rest are ordered by ComparePriority.
//
// Visible does not modify anns.
func Visible(now time.Time, anns []Announcement) Visibility {
	var (
		emergency *Announcement
		candidates = make([]Announcement, 0, len(anns))
	)

	for i := range anns {
		a := anns[i]
		if !a.Active {
			continue
		}
		if a.IsEmergency() {
			if emergency == nil || a.ID < emergency.ID {
				emergency = &anns[i]
			}
			continue
		}
		candidates = append(candidates, a)
	}

	if emergency != nil {
		return Visibility{
			Items:             []Announcement{*emergency},
			RotationSuspended: true,
		}
	}

	items := candidates[:0]
	for _, a := range candidates {
		if a.InWindow(now) {
			items = append(items, a)
		}
	}
	slices.SortFunc(items, ComparePriority)

	return Visibility{Items: items}
}

// ComparePriority orders announcements for display.
//
// Numerically smaller priority sorts first (1 = highest, 5 = lowest).
// Equal priorities put the most recently created first; equal creation
// times fall back to ascending ID so the order is total.
func ComparePriority(a, b Announcement) int {
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// CompareNewestFirst orders announcements by creation time, newest first.
// IDs are time ordered, so equal timestamps fall back to descending ID.
func CompareNewestFirst(a, b Announcement) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

// Fingerprint summarises which announcements are visible and in what order,
// so callers can detect when the sequence changes between evaluations.
// Content edits do not change it; those are announced by the mutation itself.
func (v Visibility) Fingerprint() string {
	var b strings.Builder
	if v.RotationSuspended {
		b.WriteString("!")
	}
	for _, a := range v.Items {
		b.WriteString(a.ID)
		b.WriteByte(';')
	}
	return b.String()
}
