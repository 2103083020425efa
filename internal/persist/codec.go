// Package persist encodes the task collection and moves it in and out of a
// key-value slot.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"todolist/internal/models"
)

// recordSchema decides which persisted records are usable. Anything it
// accepts can be turned into a task; other fields are defaulted.
const recordSchema = `{
	"type": "object",
	"required": ["id", "title"],
	"properties": {
		"id": {"type": "string", "pattern": "\\S"},
		"title": {"type": "string", "pattern": "\\S"}
	}
}`

var taskRecord = jsonschema.MustCompileString("task-record.json", recordSchema)

// ErrMalformed is returned when a blob is not a JSON array.
var ErrMalformed = errors.New("malformed task collection")

// RecordError describes a persisted record that was dropped on decode.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// DecodeResult holds the tasks recovered from a blob and the records dropped.
type DecodeResult struct {
	Tasks   []models.Task
	Dropped []*RecordError
}

// Encode serializes tasks as a JSON array in the given order.
func Encode(tasks []models.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tasks: %w", err)
	}
	return data, nil
}

// Decode parses a blob written by Encode, or by an older or foreign writer.
// The blob must be a JSON array; unusable elements are dropped and reported,
// missing or unknown priorities become the default level, and unknown fields
// are ignored.
func Decode(data []byte) (*DecodeResult, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw == nil {
		// "null" unmarshals into a nil slice without error.
		return nil, fmt.Errorf("%w: not an array", ErrMalformed)
	}

	result := &DecodeResult{Tasks: make([]models.Task, 0, len(raw))}
	seen := make(map[string]bool, len(raw))

	for i, elem := range raw {
		var obj interface{}
		if err := json.Unmarshal(elem, &obj); err != nil {
			result.Dropped = append(result.Dropped, &RecordError{Index: i, Err: err})
			continue
		}

		if err := taskRecord.Validate(obj); err != nil {
			result.Dropped = append(result.Dropped, &RecordError{Index: i, Err: schemaError(err)})
			continue
		}

		task := taskFromRecord(obj.(map[string]interface{}))
		if seen[task.ID] {
			result.Dropped = append(result.Dropped, &RecordError{Index: i, Err: fmt.Errorf("duplicate id %q", task.ID)})
			continue
		}
		seen[task.ID] = true

		result.Tasks = append(result.Tasks, task)
	}

	return result, nil
}

func taskFromRecord(obj map[string]interface{}) models.Task {
	task := models.Task{
		ID:    obj["id"].(string),
		Title: obj["title"].(string),
	}

	if description, ok := obj["description"].(string); ok {
		task.Description = description
	}
	if priority, ok := obj["priority"].(string); ok {
		task.Priority = models.CoercePriority(priority)
	} else {
		task.Priority = models.DefaultPriority
	}
	if completed, ok := obj["completed"].(bool); ok {
		task.Completed = completed
	}

	return task
}

// schemaError flattens a validation error into its leaf messages.
func schemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}

	var messages []string
	collectSchemaErrors(&messages, ve)
	if len(messages) == 0 {
		return errors.New(ve.Message)
	}
	return errors.New(strings.Join(messages, "; "))
}

func collectSchemaErrors(messages *[]string, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		*messages = append(*messages, fmt.Sprintf("%s: %s", location, err.Message))
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(messages, cause)
	}
}
