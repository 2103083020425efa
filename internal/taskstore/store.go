// Package taskstore holds the in-memory task collection, the session state
// that shapes its view, and the hooks that persist it after every change.
package taskstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"todolist/internal/models"
)

// ErrNotFound is returned when no task has the requested id.
var ErrNotFound = errors.New("task not found")

// maxIDAttempts bounds retries when a generated id is already taken.
const maxIDAttempts = 8

// Persister loads the collection once and saves it after every mutation.
type Persister interface {
	Load(ctx context.Context) ([]models.Task, error)
	Save(ctx context.Context, tasks []models.Task) error
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store owns the task collection. Tasks are kept in insertion order, which
// breaks ties when sorting; the order shown to users is always derived.
type Store struct {
	mu        sync.Mutex
	persister Persister
	logger    *log.Logger
	newID     func() string

	tasks   []models.Task
	session Session

	view      []models.Task
	viewValid bool
}

// New creates a store and loads the persisted collection. A load failure is
// logged and the store starts empty.
func New(ctx context.Context, p Persister, opts ...Option) *Store {
	s := &Store{
		persister: p,
		logger:    log.Default(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded, err := p.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load tasks, starting empty", "err", err)
		loaded = nil
	}
	s.tasks = sanitize(loaded, s.logger)
	s.logger.Info("task store ready", "tasks", len(s.tasks))

	return s
}

// sanitize enforces the collection invariants on loaded data.
func sanitize(loaded []models.Task, logger *log.Logger) []models.Task {
	tasks := make([]models.Task, 0, len(loaded))
	seen := make(map[string]bool, len(loaded))

	for _, task := range loaded {
		task.Normalize()
		if err := task.Validate(); err != nil {
			logger.Warn("dropping invalid task", "id", task.ID, "err", err)
			continue
		}
		if seen[task.ID] {
			logger.Warn("dropping task with duplicate id", "id", task.ID)
			continue
		}
		seen[task.ID] = true

		tasks = append(tasks, task)
	}

	return tasks
}

// validText replaces invalid UTF-8 so the stored text matches what the
// encoder writes.
func validText(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// Create appends a new task. It returns false and changes nothing when the
// title is blank.
func (s *Store) Create(ctx context.Context, title, description string, priority models.Priority) (models.Task, bool) {
	if !models.HasTitle(title) {
		return models.Task{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := models.Task{
		ID:          s.uniqueID(),
		Title:       validText(title),
		Description: validText(description),
		Priority:    priority,
	}
	task.Normalize()

	s.tasks = append(s.tasks, task)
	s.changed(ctx)

	return task, true
}

// Update replaces the title, description and priority of a task, keeping its
// id and completion state, and returns the updated task. A blank title is
// ignored and reports false with no error.
func (s *Store) Update(ctx context.Context, id, title, description string, priority models.Priority) (models.Task, bool, error) {
	if !models.HasTitle(title) {
		return models.Task{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return models.Task{}, false, ErrNotFound
	}

	task := &s.tasks[i]
	task.Title = validText(title)
	task.Description = validText(description)
	task.Priority = priority
	task.Normalize()

	s.changed(ctx)
	return *task, true, nil
}

// ToggleComplete flips the completed flag and returns the updated task.
func (s *Store) ToggleComplete(ctx context.Context, id string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return models.Task{}, ErrNotFound
	}

	s.tasks[i].Completed = !s.tasks[i].Completed
	s.changed(ctx)

	return s.tasks[i], nil
}

// Delete removes a task.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}

	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	if s.session.EditTarget == id {
		s.session.EditTarget = ""
	}
	s.changed(ctx)

	return nil
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return models.Task{}, false
	}
	return s.tasks[i], true
}

// Len returns the number of tasks in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// View returns the filtered, sorted projection of the collection. Tasks of
// equal priority keep their insertion order in both directions.
func (s *Store) View() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.viewValid {
		s.view = project(s.tasks, s.session)
		s.viewValid = true
	}

	out := make([]models.Task, len(s.view))
	copy(out, s.view)
	return out
}

// ViewWith returns the projection for the given filter and direction. The
// session and the cached view are left untouched.
func (s *Store) ViewWith(filter models.Priority, d SortDirection) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return project(s.tasks, Session{Filter: filter, Direction: d})
}

func project(tasks []models.Task, session Session) []models.Task {
	view := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if session.Filtered() && task.Priority != session.Filter {
			continue
		}
		view = append(view, task)
	}

	ascending := session.Direction == Ascending
	sort.SliceStable(view, func(i, j int) bool {
		if ascending {
			return view[i].Priority.Weight() < view[j].Priority.Weight()
		}
		return view[i].Priority.Weight() > view[j].Priority.Weight()
	})

	return view
}

// Session returns a copy of the current presentation state.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// SetSortDirection changes the view order. Nothing is persisted.
func (s *Store) SetSortDirection(d SortDirection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Direction != d {
		s.session.Direction = d
		s.viewValid = false
	}
}

// ToggleSortDirection flips the view order and returns the new direction.
func (s *Store) ToggleSortDirection() SortDirection {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.Direction = s.session.Direction.Reverse()
	s.viewValid = false
	return s.session.Direction
}

// SetFilter restricts the view to one level. It reports false and leaves the
// filter unchanged for a level outside the catalog.
func (s *Store) SetFilter(p models.Priority) bool {
	if !p.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.Filter = p
	s.viewValid = false
	return true
}

// ClearFilter removes any filter.
func (s *Store) ClearFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.Filter = ""
	s.viewValid = false
}

// ToggleFilter sets the filter to p, or clears it if p is already active.
func (s *Store) ToggleFilter(p models.Priority) bool {
	if !p.Valid() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Filter == p {
		s.session.Filter = ""
	} else {
		s.session.Filter = p
	}
	s.viewValid = false
	return true
}

// BeginEdit marks a task as the target of the next Submit and returns it.
func (s *Store) BeginEdit(id string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return models.Task{}, ErrNotFound
	}
	s.session.EditTarget = id
	return s.tasks[i], nil
}

// EditTarget returns the task being edited, if any.
func (s *Store) EditTarget() (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.EditTarget == "" {
		return models.Task{}, false
	}
	i := s.index(s.session.EditTarget)
	if i < 0 {
		return models.Task{}, false
	}
	return s.tasks[i], true
}

// CancelEdit clears the edit target.
func (s *Store) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.EditTarget = ""
}

// Submit updates the edit target when one is set, and creates a task
// otherwise. It returns the resulting task and whether anything changed.
// A successful edit clears the edit target.
func (s *Store) Submit(ctx context.Context, title, description string, priority models.Priority) (models.Task, bool, error) {
	target, editing := s.EditTarget()
	if !editing {
		task, ok := s.Create(ctx, title, description, priority)
		return task, ok, nil
	}

	task, ok, err := s.Update(ctx, target.ID, title, description, priority)
	if err != nil || !ok {
		return models.Task{}, false, err
	}

	s.mu.Lock()
	if s.session.EditTarget == target.ID {
		s.session.EditTarget = ""
	}
	s.mu.Unlock()

	return task, true, nil
}

func (s *Store) index(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueID() string {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		if strings.TrimSpace(id) != "" && s.index(id) < 0 {
			return id
		}
	}

	s.logger.Warn("id generator kept colliding, falling back to uuid")
	for {
		id := uuid.NewString()
		if s.index(id) < 0 {
			return id
		}
	}
}

// changed invalidates the view and saves a snapshot. It must be called with
// mu held so saves are issued in mutation order. A failed save is logged and
// the in-memory change stands.
func (s *Store) changed(ctx context.Context) {
	s.viewValid = false

	snapshot := make([]models.Task, len(s.tasks))
	copy(snapshot, s.tasks)

	if err := s.persister.Save(ctx, snapshot); err != nil {
		s.logger.Error("failed to save tasks", "err", err, "tasks", len(snapshot))
	}
}
