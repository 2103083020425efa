package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"todolist/internal/models"
	"todolist/internal/taskstore"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store     *taskstore.Store
	templates *template.Template
	logger    *log.Logger
}

// New creates a new Handlers instance.
func New(s *taskstore.Store, tmpl *template.Template, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		store:     s,
		templates: tmpl,
		logger:    logger,
	}
}

// taskResponse is a task as shown to clients, with its derived color.
type taskResponse struct {
	models.Task
	Color string `json:"color"`
}

func newTaskResponse(t models.Task) taskResponse {
	return taskResponse{Task: t, Color: t.Color()}
}

// urlParam extracts a named URL parameter.
func urlParam(r *http.Request, param string) string {
	return chi.URLParam(r, param)
}

// parsePriority reads a priority form value. Unknown values fall back to the
// default level.
func parsePriority(r *http.Request) models.Priority {
	return models.CoercePriority(r.FormValue("priority"))
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	w.Write([]byte(message))
}

func (h *Handlers) respondServerError(w http.ResponseWriter, err error) {
	h.logger.Error("internal server error", "err", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handlers) respondJSON(w http.ResponseWriter, code int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

func (h *Handlers) render(w http.ResponseWriter, name string, data interface{}) {
	if h.templates == nil {
		// For testing without templates
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.respondServerError(w, err)
	}
}
