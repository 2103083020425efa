package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"todolist/internal/models"
	"todolist/internal/store"
)

// DefaultKey is the slot key holding the task collection.
const DefaultKey = "tasks"

// timestampedSlot is a slot that records when each key was last written.
type timestampedSlot interface {
	UpdatedAt(ctx context.Context, key string) (time.Time, error)
}

// Adapter reads and writes the whole task collection under one slot key.
type Adapter struct {
	slot   store.Slot
	key    string
	logger *log.Logger
}

// NewAdapter creates an adapter for key in slot. An empty key means DefaultKey.
func NewAdapter(slot store.Slot, key string, logger *log.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{slot: slot, key: key, logger: logger}
}

// Key returns the slot key in use.
func (a *Adapter) Key() string {
	return a.key
}

// Load reads the stored collection. An absent or malformed blob yields an
// empty collection and no error; only slot I/O failures are returned.
func (a *Adapter) Load(ctx context.Context) ([]models.Task, error) {
	data, err := a.slot.Get(ctx, a.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.logger.Debug("no stored tasks", "key", a.key)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	result, err := Decode(data)
	if err != nil {
		a.logger.Warn("ignoring stored tasks", "key", a.key, "err", err)
		return nil, nil
	}

	for _, dropped := range result.Dropped {
		a.logger.Warn("dropped stored task", "key", a.key, "index", dropped.Index, "err", dropped.Err)
	}
	fields := []interface{}{"key", a.key, "count", len(result.Tasks)}
	if ts, ok := a.slot.(timestampedSlot); ok {
		if savedAt, err := ts.UpdatedAt(ctx, a.key); err == nil && !savedAt.IsZero() {
			fields = append(fields, "saved_at", savedAt.Format(time.RFC3339))
		}
	}
	a.logger.Info("loaded tasks", fields...)

	return result.Tasks, nil
}

// Save overwrites the stored collection with tasks.
func (a *Adapter) Save(ctx context.Context, tasks []models.Task) error {
	data, err := Encode(tasks)
	if err != nil {
		return err
	}

	if err := a.slot.Put(ctx, a.key, data); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}

	a.logger.Debug("saved tasks", "key", a.key, "count", len(tasks))
	return nil
}
