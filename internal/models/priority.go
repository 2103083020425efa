package models

import "strings"

// Priority is the urgency level of a task.
type Priority string

const (
	Critical Priority = "Critical"
	High     Priority = "High"
	Medium   Priority = "Medium"
	Low      Priority = "Low"
	Optional Priority = "Optional"
)

// DefaultPriority is assigned when a priority is missing or unknown.
const DefaultPriority = Low

// PriorityInfo holds the display color and sort weight of a level.
type PriorityInfo struct {
	Color  string `json:"color"`
	Weight int    `json:"weight"`
}

var catalog = map[Priority]PriorityInfo{
	Critical: {Color: "#F44336", Weight: 5},
	High:     {Color: "#FF9800", Weight: 4},
	Medium:   {Color: "#FFC107", Weight: 3},
	Low:      {Color: "#4CAF50", Weight: 2},
	Optional: {Color: "#2196F3", Weight: 1},
}

// Priorities returns every level, most urgent first.
func Priorities() []Priority {
	return []Priority{Critical, High, Medium, Low, Optional}
}

// ParsePriority looks up a level by name, ignoring case and surrounding space.
func ParsePriority(s string) (Priority, bool) {
	s = strings.TrimSpace(s)
	for _, p := range Priorities() {
		if strings.EqualFold(s, string(p)) {
			return p, true
		}
	}
	return "", false
}

// CoercePriority parses s, falling back to DefaultPriority.
func CoercePriority(s string) Priority {
	if p, ok := ParsePriority(s); ok {
		return p
	}
	return DefaultPriority
}

// Valid reports whether p is a catalog level.
func (p Priority) Valid() bool {
	_, ok := catalog[p]
	return ok
}

// Info returns the catalog entry for p. Unknown levels resolve to the
// default level's entry.
func (p Priority) Info() PriorityInfo {
	if info, ok := catalog[p]; ok {
		return info
	}
	return catalog[DefaultPriority]
}

// Weight returns the sort weight; higher is more urgent.
func (p Priority) Weight() int {
	return p.Info().Weight
}

// Color returns the display color as a hex string.
func (p Priority) Color() string {
	return p.Info().Color
}

func (p Priority) String() string {
	return string(p)
}
