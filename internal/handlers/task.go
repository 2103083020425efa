package handlers

import (
	"errors"
	"net/http"

	"todolist/internal/taskstore"
)

// CreateTask creates a new task. A blank title is ignored and answered with
// 204 No Content.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	task, ok := h.store.Create(ctx, r.FormValue("title"), r.FormValue("description"), parsePriority(r))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.respondJSON(w, http.StatusCreated, newTaskResponse(task))
}

// UpdateTask replaces a task's title, description and priority.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := urlParam(r, "id")

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	task, ok, err := h.store.Update(ctx, id, r.FormValue("title"), r.FormValue("description"), parsePriority(r))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.respondJSON(w, http.StatusOK, newTaskResponse(task))
}

// ToggleTask toggles the completion status of a task.
func (h *Handlers) ToggleTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	task, err := h.store.ToggleComplete(ctx, urlParam(r, "id"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, newTaskResponse(task))
}

// DeleteTask deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.store.Delete(ctx, urlParam(r, "id")); err != nil {
		h.respondStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetTask returns a single task.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.store.Get(urlParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	h.respondJSON(w, http.StatusOK, newTaskResponse(task))
}

// EditTask makes a task the target of the next SubmitTask.
func (h *Handlers) EditTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.BeginEdit(urlParam(r, "id"))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, newTaskResponse(task))
}

// CancelEdit clears the edit target.
func (h *Handlers) CancelEdit(w http.ResponseWriter, r *http.Request) {
	h.store.CancelEdit()
	w.WriteHeader(http.StatusOK)
}

// SubmitTask saves the task form: it edits the current edit target, or
// creates a task when nothing is being edited.
func (h *Handlers) SubmitTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	task, ok, err := h.store.Submit(ctx, r.FormValue("title"), r.FormValue("description"), parsePriority(r))
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.respondJSON(w, http.StatusOK, newTaskResponse(task))
}

func (h *Handlers) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, taskstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	h.respondServerError(w, err)
}
