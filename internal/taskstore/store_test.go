package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"todolist/internal/logging"
	"todolist/internal/models"
	"todolist/internal/persist"
	"todolist/internal/store"
)

// fakePersister records every snapshot it is asked to save.
type fakePersister struct {
	mu      sync.Mutex
	loaded  []models.Task
	loadErr error
	saveErr error
	saves   [][]models.Task
}

func (p *fakePersister) Load(context.Context) ([]models.Task, error) {
	return p.loaded, p.loadErr
}

func (p *fakePersister) Save(_ context.Context, tasks []models.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, tasks)
	return p.saveErr
}

func (p *fakePersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saves)
}

func (p *fakePersister) lastSave() []models.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saves) == 0 {
		return nil
	}
	return p.saves[len(p.saves)-1]
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%02d", n)
	}
}

func setupTestStore(t *testing.T) (*Store, *fakePersister) {
	t.Helper()
	p := &fakePersister{}
	s := New(context.Background(), p, WithLogger(logging.Discard()), WithIDGenerator(sequentialIDs()))
	return s, p
}

func mustCreate(t *testing.T, s *Store, title string, priority models.Priority) models.Task {
	t.Helper()
	task, ok := s.Create(context.Background(), title, "", priority)
	if !ok {
		t.Fatalf("Create(%q) was rejected", title)
	}
	return task
}

func viewIDs(s *Store) []string {
	view := s.View()
	ids := make([]string, len(view))
	for i, task := range view {
		ids[i] = task.ID
	}
	return ids
}

func viewTitles(s *Store) []string {
	view := s.View()
	titles := make([]string, len(view))
	for i, task := range view {
		titles[i] = task.Title
	}
	return titles
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreate(t *testing.T) {
	s, p := setupTestStore(t)

	task, ok := s.Create(context.Background(), "Buy milk", "2 liters", models.High)
	if !ok {
		t.Fatal("expected create to succeed")
	}
	if task.ID == "" {
		t.Error("expected id to be set")
	}
	if task.Completed {
		t.Error("expected new task to be incomplete")
	}
	if task.Priority != models.High || task.Description != "2 liters" {
		t.Errorf("unexpected task %+v", task)
	}
	if p.saveCount() != 1 {
		t.Errorf("expected 1 save, got %d", p.saveCount())
	}
	if got := p.lastSave(); len(got) != 1 || got[0] != task {
		t.Errorf("expected saved snapshot to contain the task, got %+v", got)
	}
}

func TestCreate_RejectsBlankTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
	}{
		{name: "empty", title: ""},
		{name: "spaces", title: "   "},
		{name: "tabs and newlines", title: "\t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, p := setupTestStore(t)
			mustCreate(t, s, "existing", models.Low)
			before := s.View()

			_, ok := s.Create(context.Background(), tt.title, "desc", models.Critical)
			if ok {
				t.Fatal("expected create to be rejected")
			}
			if s.Len() != 1 {
				t.Errorf("expected collection unchanged, got %d tasks", s.Len())
			}
			if after := s.View(); len(after) != len(before) || after[0] != before[0] {
				t.Errorf("expected view unchanged, got %+v", after)
			}
			if p.saveCount() != 1 {
				t.Errorf("expected no extra save, got %d saves", p.saveCount())
			}
		})
	}
}

func TestCreate_DefaultsPriority(t *testing.T) {
	s, _ := setupTestStore(t)

	unset := mustCreate(t, s, "unset", "")
	unknown := mustCreate(t, s, "unknown", "Urgent")
	folded := mustCreate(t, s, "folded", "critical")

	if unset.Priority != models.Low {
		t.Errorf("expected empty priority to default to Low, got %q", unset.Priority)
	}
	if unknown.Priority != models.Low {
		t.Errorf("expected unknown priority to default to Low, got %q", unknown.Priority)
	}
	if folded.Priority != models.Critical {
		t.Errorf("expected case-folded priority to parse, got %q", folded.Priority)
	}
}

func TestCreate_UniqueIDsDespiteCollidingGenerator(t *testing.T) {
	p := &fakePersister{}
	s := New(context.Background(), p, WithLogger(logging.Discard()), WithIDGenerator(func() string { return "same" }))

	a := mustCreate(t, s, "a", models.Low)
	b := mustCreate(t, s, "b", models.Low)
	if a.ID == b.ID {
		t.Fatalf("expected unique ids, both are %q", a.ID)
	}
}

func TestUpdate(t *testing.T) {
	s, p := setupTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, "Original", models.Low)
	s.ToggleComplete(ctx, task.ID)

	updated, ok, err := s.Update(ctx, task.ID, "Updated", "new description", models.Critical)
	if err != nil || !ok {
		t.Fatalf("expected update to succeed, got ok=%v err=%v", ok, err)
	}

	got, found := s.Get(task.ID)
	if !found {
		t.Fatal("expected task to still exist")
	}
	want := models.Task{ID: task.ID, Title: "Updated", Description: "new description", Priority: models.Critical, Completed: true}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if updated != want {
		t.Errorf("expected Update to return %+v, got %+v", want, updated)
	}
	if p.saveCount() != 3 {
		t.Errorf("expected 3 saves, got %d", p.saveCount())
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s, p := setupTestStore(t)
	mustCreate(t, s, "Only", models.Low)

	_, ok, err := s.Update(context.Background(), "missing", "Title", "", models.High)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok {
		t.Error("expected ok to be false")
	}
	if p.saveCount() != 1 {
		t.Errorf("expected no save on failure, got %d saves", p.saveCount())
	}
}

func TestUpdate_BlankTitleIsNoop(t *testing.T) {
	s, p := setupTestStore(t)
	task := mustCreate(t, s, "Keep me", models.Medium)

	_, ok, err := s.Update(context.Background(), task.ID, "  ", "changed", models.High)
	if err != nil || ok {
		t.Fatalf("expected silent no-op, got ok=%v err=%v", ok, err)
	}

	got, _ := s.Get(task.ID)
	if got != task {
		t.Errorf("expected task unchanged, got %+v", got)
	}
	if p.saveCount() != 1 {
		t.Errorf("expected no extra save, got %d saves", p.saveCount())
	}
}

func TestToggleComplete_Twice(t *testing.T) {
	s, p := setupTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, "Toggle me", models.Low)

	first, err := s.ToggleComplete(ctx, task.ID)
	if err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}
	if !first.Completed {
		t.Error("expected task to be completed after first toggle")
	}

	second, err := s.ToggleComplete(ctx, task.ID)
	if err != nil {
		t.Fatalf("ToggleComplete failed: %v", err)
	}
	if second.Completed != task.Completed {
		t.Errorf("expected completed=%v after two toggles, got %v", task.Completed, second.Completed)
	}
	if second.ID != task.ID {
		t.Errorf("expected id to be preserved, got %q", second.ID)
	}
	if p.saveCount() != 3 {
		t.Errorf("expected 3 saves, got %d", p.saveCount())
	}
}

func TestToggleComplete_NotFound(t *testing.T) {
	s, _ := setupTestStore(t)

	_, err := s.ToggleComplete(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s, p := setupTestStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, "A", models.Low)
	b := mustCreate(t, s, "B", models.Low)

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := s.Get(a.ID); found {
		t.Error("expected task to be deleted")
	}
	if got := p.lastSave(); len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("expected saved snapshot to hold only B, got %+v", got)
	}

	if err := s.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 task, got %d", s.Len())
	}
}

func TestSaveFailure_KeepsMutation(t *testing.T) {
	s, p := setupTestStore(t)
	p.saveErr = errors.New("disk full")

	task, ok := s.Create(context.Background(), "Survives", "", models.High)
	if !ok {
		t.Fatal("expected create to succeed despite save failure")
	}
	if _, found := s.Get(task.ID); !found {
		t.Error("expected in-memory task to remain")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	s, p := setupTestStore(t)
	ctx := context.Background()
	task := mustCreate(t, s, "First", models.Low)

	saved := p.lastSave()
	s.Update(ctx, task.ID, "Changed", "", models.High)

	if saved[0].Title != "First" {
		t.Errorf("expected earlier snapshot to be unaffected, got %q", saved[0].Title)
	}

	view := s.View()
	view[0].Title = "mutated by caller"
	if got, _ := s.Get(task.ID); got.Title != "Changed" {
		t.Errorf("expected view to be a copy, store has %q", got.Title)
	}
}

func TestUniqueIDs_AcrossOperations(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		var created []models.Task
		for i := 0; i < 10; i++ {
			created = append(created, mustCreate(t, s, fmt.Sprintf("task %d-%d", round, i), models.Priorities()[i%5]))
		}
		for i, task := range created {
			if i%3 == 0 {
				s.Delete(ctx, task.ID)
			} else if i%3 == 1 {
				s.Update(ctx, task.ID, "edited", "", models.Medium)
			}
		}

		seen := make(map[string]bool)
		for _, id := range viewIDs(s) {
			if seen[id] {
				t.Fatalf("round %d: duplicate id %q in view", round, id)
			}
			seen[id] = true
		}
	}
}

func TestNew_LoadsPersistedTasks(t *testing.T) {
	p := &fakePersister{loaded: []models.Task{
		{ID: "1", Title: "Loaded", Priority: models.High},
		{ID: "2", Title: "Bad priority", Priority: "Purple"},
		{ID: "", Title: "No id"},
		{ID: "3", Title: "   "},
		{ID: "1", Title: "Duplicate"},
	}}

	s := New(context.Background(), p, WithLogger(logging.Discard()))

	if s.Len() != 2 {
		t.Fatalf("expected 2 usable tasks, got %d", s.Len())
	}
	if got, _ := s.Get("1"); got.Title != "Loaded" {
		t.Errorf("expected first occurrence to win, got %q", got.Title)
	}
	if got, _ := s.Get("2"); got.Priority != models.Low {
		t.Errorf("expected unknown priority to be coerced to Low, got %q", got.Priority)
	}
	if p.saveCount() != 0 {
		t.Errorf("expected load not to save, got %d saves", p.saveCount())
	}
}

func TestNew_LoadFailureStartsEmpty(t *testing.T) {
	p := &fakePersister{loadErr: errors.New("io error")}

	s := New(context.Background(), p, WithLogger(logging.Discard()))
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d tasks", s.Len())
	}

	if _, ok := s.Create(context.Background(), "still works", "", models.Low); !ok {
		t.Error("expected store to accept commands after load failure")
	}
}

func TestStore_PersistRoundTrip(t *testing.T) {
	slot, err := store.NewSQLiteSlot(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteSlot failed: %v", err)
	}
	t.Cleanup(func() { slot.Close() })

	ctx := context.Background()
	adapter := persist.NewAdapter(slot, "", logging.Discard())
	saver := persist.NewAsyncSaver(ctx, adapter, logging.Discard())

	first := New(ctx, saver, WithLogger(logging.Discard()))
	a := mustCreate(t, first, "A", models.High)
	b := mustCreate(t, first, "B", models.Critical)
	first.ToggleComplete(ctx, b.ID)
	c := mustCreate(t, first, "C", models.Low)
	first.Delete(ctx, c.ID)
	if err := saver.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := New(ctx, adapter, WithLogger(logging.Discard()))
	if second.Len() != 2 {
		t.Fatalf("expected 2 tasks after reload, got %d", second.Len())
	}

	gotA, _ := second.Get(a.ID)
	gotB, _ := second.Get(b.ID)
	if gotA != a {
		t.Errorf("expected %+v, got %+v", a, gotA)
	}
	if !gotB.Completed || gotB.Title != "B" || gotB.Priority != models.Critical {
		t.Errorf("unexpected reloaded B: %+v", gotB)
	}
}

func TestCreate_InvalidUTF8MatchesPersisted(t *testing.T) {
	ctx := context.Background()
	adapter := persist.NewAdapter(store.NewMemorySlot(), "", logging.Discard())
	s := New(ctx, adapter, WithLogger(logging.Discard()))

	created, ok := s.Create(ctx, "a\xffb", "bad \xfe bytes", models.Medium)
	if !ok {
		t.Fatal("expected create to succeed")
	}
	if created.Title != "a\uFFFDb" || created.Description != "bad \uFFFD bytes" {
		t.Errorf("expected invalid bytes to be replaced, got %q / %q", created.Title, created.Description)
	}

	updated, _, err := s.Update(ctx, created.ID, "c\xffd", "", models.Medium)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "c\uFFFDd" {
		t.Errorf("expected invalid bytes to be replaced on update, got %q", updated.Title)
	}

	reloaded := New(ctx, adapter, WithLogger(logging.Discard()))
	got, found := reloaded.Get(created.ID)
	if !found {
		t.Fatal("expected task after reload")
	}
	if inMemory, _ := s.Get(created.ID); got != inMemory {
		t.Errorf("expected reload to match memory: %+v vs %+v", got, inMemory)
	}
}
