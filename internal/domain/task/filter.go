package task

import (
	"sort"
	"strings"
)

// Matches reports whether t satisfies every set field of the filter.
// Search is a case-insensitive substring match over title and description.
func (f Filter) Matches(t Task) bool {
	if f.OwnerID != nil && t.OwnerID != *f.OwnerID {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Search != nil {
		term := strings.ToLower(*f.Search)
		if !strings.Contains(strings.ToLower(t.Title), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) {
			return false
		}
	}
	return true
}

// SortNewestFirst orders tasks by created_at desc, id desc, the order every store returns.
func SortNewestFirst(items []Task) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}

// Window cuts one page out of an already filtered and sorted slice.
func Window(items []Task, limit, offset int) []Task {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []Task{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]Task, end-offset)
	copy(out, items[offset:end])
	return out
}
