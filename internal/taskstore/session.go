package taskstore

import (
	"strings"

	"todolist/internal/models"
)

// SortDirection orders the view by priority weight.
type SortDirection int

const (
	// Descending puts the most urgent tasks first.
	Descending SortDirection = iota
	// Ascending puts the least urgent tasks first.
	Ascending
)

func (d SortDirection) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// Reverse returns the opposite direction.
func (d SortDirection) Reverse() SortDirection {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

// ParseSortDirection accepts "asc"/"ascending" and "desc"/"descending".
func ParseSortDirection(s string) (SortDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, true
	case "desc", "descending":
		return Descending, true
	default:
		return Descending, false
	}
}

// Session is the presentation state owned by a Store.
type Session struct {
	// Filter restricts the view to one level. Empty means no filter.
	Filter    models.Priority
	Direction SortDirection
	// EditTarget is the id of the task being edited, if any.
	EditTarget string
}

// Filtered reports whether a filter is active.
func (s Session) Filtered() bool {
	return s.Filter != ""
}
