package handlers

import (
	"net/http"
	"strings"

	"todolist/internal/models"
	"todolist/internal/taskstore"
)

// PriorityOption is a filter/priority button on the page.
type PriorityOption struct {
	Level    models.Priority
	Color    string
	Selected bool
}

// HomeData holds data for the home page template.
type HomeData struct {
	Title      string
	Tasks      []taskResponse
	Priorities []PriorityOption
	Filter     models.Priority
	Sort       string
	Editing    *taskResponse
}

// ListData is the JSON form of the current view.
type ListData struct {
	Tasks  []taskResponse  `json:"tasks"`
	Filter models.Priority `json:"filter,omitempty"`
	Sort   string          `json:"sort"`
}

// Home renders the task list page.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session, ok := h.viewQuery(w, r)
	if !ok {
		return
	}

	data := HomeData{
		Title:      "To-Do List",
		Tasks:      h.viewTasks(session),
		Priorities: priorityOptions(session.Filter),
		Filter:     session.Filter,
		Sort:       session.Direction.String(),
	}
	if target, ok := h.store.EditTarget(); ok {
		editing := newTaskResponse(target)
		data.Editing = &editing
	}

	h.render(w, "home.html", data)
}

// ListTasks returns the current view as JSON.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	session, ok := h.viewQuery(w, r)
	if !ok {
		return
	}

	h.respondJSON(w, http.StatusOK, h.listData(session))
}

// ToggleSort flips the sort direction and returns the new view.
func (h *Handlers) ToggleSort(w http.ResponseWriter, r *http.Request) {
	h.store.ToggleSortDirection()
	h.respondJSON(w, http.StatusOK, h.listData(h.store.Session()))
}

// SetFilter toggles the filter for a level: pressing the active level clears it.
func (h *Handlers) SetFilter(w http.ResponseWriter, r *http.Request) {
	level, ok := models.ParsePriority(urlParam(r, "priority"))
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown priority")
		return
	}

	h.store.ToggleFilter(level)
	h.respondJSON(w, http.StatusOK, h.listData(h.store.Session()))
}

// ClearFilter removes the filter.
func (h *Handlers) ClearFilter(w http.ResponseWriter, r *http.Request) {
	h.store.ClearFilter()
	h.respondJSON(w, http.StatusOK, h.listData(h.store.Session()))
}

// Priorities returns the priority catalog, most urgent first.
func (h *Handlers) Priorities(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Level models.Priority `json:"level"`
		models.PriorityInfo
	}

	levels := models.Priorities()
	out := make([]entry, len(levels))
	for i, level := range levels {
		out[i] = entry{Level: level, PriorityInfo: level.Info()}
	}

	h.respondJSON(w, http.StatusOK, out)
}

// viewQuery returns the session overridden by ?priority= and ?sort= for this
// response only. "none" or "all" clears the filter. It reports false after
// answering a bad request.
func (h *Handlers) viewQuery(w http.ResponseWriter, r *http.Request) (taskstore.Session, bool) {
	session := h.store.Session()
	query := r.URL.Query()

	if query.Has("priority") {
		v := strings.TrimSpace(query.Get("priority"))
		switch strings.ToLower(v) {
		case "", "none", "all":
			session.Filter = ""
		default:
			level, ok := models.ParsePriority(v)
			if !ok {
				respondError(w, http.StatusBadRequest, "unknown priority")
				return session, false
			}
			session.Filter = level
		}
	}

	if v := query.Get("sort"); v != "" {
		direction, ok := taskstore.ParseSortDirection(v)
		if !ok {
			respondError(w, http.StatusBadRequest, "sort must be 'asc' or 'desc'")
			return session, false
		}
		session.Direction = direction
	}

	return session, true
}

func (h *Handlers) viewTasks(session taskstore.Session) []taskResponse {
	view := h.store.ViewWith(session.Filter, session.Direction)
	tasks := make([]taskResponse, len(view))
	for i, task := range view {
		tasks[i] = newTaskResponse(task)
	}
	return tasks
}

func (h *Handlers) listData(session taskstore.Session) ListData {
	return ListData{
		Tasks:  h.viewTasks(session),
		Filter: session.Filter,
		Sort:   session.Direction.String(),
	}
}

func priorityOptions(selected models.Priority) []PriorityOption {
	levels := models.Priorities()
	options := make([]PriorityOption, len(levels))
	for i, level := range levels {
		options[i] = PriorityOption{
			Level:    level,
			Color:    level.Color(),
			Selected: level == selected,
		}
	}
	return options
}
