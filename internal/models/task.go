package models

import (
	"errors"
	"strings"
)

// Task represents a single to-do item.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Completed   bool     `json:"completed"`
}

// Validate checks that the task has valid field values.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("id is required")
	}

	if strings.TrimSpace(t.Title) == "" {
		return errors.New("title is required")
	}

	if !t.Priority.Valid() {
		return errors.New("priority must be 'Critical', 'High', 'Medium', 'Low', or 'Optional'")
	}

	return nil
}

// Normalize coerces an unknown or missing priority to the default level.
func (t *Task) Normalize() {
	if !t.Priority.Valid() {
		t.Priority = CoercePriority(string(t.Priority))
	}
}

// HasTitle reports whether title is non-empty after trimming whitespace.
func HasTitle(title string) bool {
	return strings.TrimSpace(title) != ""
}

// Color returns the display color of the task's priority.
func (t *Task) Color() string {
	return t.Priority.Color()
}
