package jsonstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikan-dev/splice/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "tasks.json"))
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return store
}

func TestStore_Initialize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "tasks.json")

	store := New(path)

	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}

	// Initialize again should be idempotent
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize() second call error = %v", err)
	}
}

func TestStore_NotInitialized(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "tasks.json"))

	_, err := store.Load("/repo", "abc")
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("Load() error = %v, want ErrNotInitialized", err)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().Truncate(time.Second) // JSON loses monotonic clock
	task := &domain.Task{
		ID:          "task-1",
		RepoRoot:    "/repo",
		Title:       "Test Task",
		Status:      domain.StatusTodo,
		WorkingMode: domain.ModeWorktree,
		Created:     now,
		Worktree: &domain.Worktree{
			Path:       "/repo/.git/splice/worktrees/task-1",
			BaseBranch: "main",
			BaseCommit: "abc123",
		},
	}

	if err := store.Save(task); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load("/repo", "task-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil {
		t.Fatal("Load() returned nil")
	}
	if got.ID != "task-1" || got.Title != "Test Task" {
		t.Errorf("Load() = %+v", got)
	}
	if got.Worktree == nil || got.Worktree.BaseBranch != "main" {
		t.Errorf("Load() worktree = %+v", got.Worktree)
	}
	if !got.Created.Equal(now) {
		t.Errorf("Load() created = %v, want %v", got.Created, now)
	}
}

func TestStore_Load_NotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Load("/repo", "no-such-task")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Errorf("Load() = %+v, want nil", got)
	}
}

func TestStore_Load_RejectsUnknownFragmentKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	content := `{"tasks":{"task-1":{"title":"t","status":"todo","workingMode":"local",` +
		`"messages":[{"id":"m1","role":"assistant","content":[{"kind":"hologram"}]}]}}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	store := New(path)

	_, err := store.Load("/repo", "task-1")
	if !errors.Is(err, domain.ErrInvalidFragment) {
		t.Errorf("Load() error = %v, want ErrInvalidFragment", err)
	}
}

func TestStore_Save_RequiresID(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&domain.Task{Title: "no id"}); err == nil {
		t.Error("Save() with empty id should fail")
	}
}

func TestStore_List_SortedByCreation(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Truncate(time.Second)
	for i, id := range []string{"c", "a", "b"} {
		task := &domain.Task{
			ID:      id,
			Title:   "Task " + id,
			Status:  domain.StatusTodo,
			Created: base.Add(time.Duration(2-i) * time.Minute),
		}
		if err := store.Save(task); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	tasks, err := store.List("/repo")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("List() len = %d, want 3", len(tasks))
	}
	// b was created first, then a, then c.
	if tasks[0].ID != "b" || tasks[1].ID != "a" || tasks[2].ID != "c" {
		t.Errorf("List() order = %s, %s, %s", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	task := &domain.Task{ID: "task-1", Title: "Test", Status: domain.StatusTodo}
	if err := store.Save(task); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Delete("/repo", "task-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := store.Load("/repo", "task-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Errorf("Load() after delete = %+v, want nil", got)
	}

	// Deleting a missing task is a no-op.
	if err := store.Delete("/repo", "task-1"); err != nil {
		t.Errorf("Delete() second call error = %v", err)
	}
}

func TestStore_Save_PersistsMessages(t *testing.T) {
	store := newTestStore(t)

	task := &domain.Task{
		ID:     "task-1",
		Title:  "Test",
		Status: domain.StatusInProgress,
		Messages: []domain.ContextMessage{
			{
				ID:   "m1",
				Role: domain.RoleUser,
				Seq:  0,
				Content: []domain.ContentFragment{
					{Kind: domain.FragmentText, Text: &domain.TextFragment{Content: "hello"}},
				},
			},
			{
				ID:   "m2",
				Role: domain.RoleAssistant,
				Seq:  1,
				Content: []domain.ContentFragment{
					{Kind: domain.FragmentText, Text: &domain.TextFragment{Content: "hi"}},
				},
				EditedFiles: []string{"main.go"},
			},
		},
	}
	if err := store.Save(task); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load("/repo", "task-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("Load() messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[1].PlainText() != "hi" {
		t.Errorf("Load() message text = %q", got.Messages[1].PlainText())
	}
	if len(got.Messages[1].EditedFiles) != 1 {
		t.Errorf("Load() edited files = %v", got.Messages[1].EditedFiles)
	}
}
