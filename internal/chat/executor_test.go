package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"taskmind/internal/workspace"
)

// recordingStore captures the filter and limit each List call receives.
type recordingStore struct {
	taskFilter    workspace.TaskFilter
	noteFilter    workspace.NoteFilter
	projectFilter workspace.ProjectFilter
	fileFilter    workspace.FileFilter
	limit         int

	tasks []workspace.Task
	err   error
}

func (s *recordingStore) ListTasks(creds workspace.Credentials, filter workspace.TaskFilter, limit int) ([]workspace.Task, error) {
	s.taskFilter, s.limit = filter, limit
	return s.tasks, s.err
}

func (s *recordingStore) ListNotes(creds workspace.Credentials, filter workspace.NoteFilter, limit int) ([]workspace.Note, error) {
	s.noteFilter, s.limit = filter, limit
	return nil, s.err
}

func (s *recordingStore) ListProjects(creds workspace.Credentials, filter workspace.ProjectFilter, limit int) ([]workspace.Project, error) {
	s.projectFilter, s.limit = filter, limit
	return nil, s.err
}

func (s *recordingStore) ListFiles(creds workspace.Credentials, filter workspace.FileFilter, limit int) ([]workspace.FileRecord, error) {
	s.fileFilter, s.limit = filter, limit
	return nil, s.err
}

func TestExecuteLimitClamping(t *testing.T) {
	cases := []struct {
		name  string
		input map[string]interface{}
		want  int
	}{
		{"absent", map[string]interface{}{}, 50},
		{"zero", map[string]interface{}{"limit": float64(0)}, 50},
		{"negative", map[string]interface{}{"limit": float64(-5)}, 50},
		{"in range", map[string]interface{}{"limit": float64(7)}, 7},
		{"over max", map[string]interface{}{"limit": float64(500)}, 100},
		{"at max", map[string]interface{}{"limit": float64(100)}, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &recordingStore{}
			e := NewQueryExecutor(store)
			_, isErr := e.Execute(context.Background(), ToolQueryTasks, tc.input, testCreds())
			if isErr {
				t.Fatal("unexpected error result")
			}
			if store.limit != tc.want {
				t.Errorf("limit = %d, want %d", store.limit, tc.want)
			}
		})
	}
}

func TestExecutePassesFilters(t *testing.T) {
	store := &recordingStore{}
	e := NewQueryExecutor(store)

	input := map[string]interface{}{
		"project_id": "p1",
		"status":     "in_progress",
		"search":     "quarterly",
	}
	if _, isErr := e.Execute(context.Background(), ToolQueryTasks, input, testCreds()); isErr {
		t.Fatal("unexpected error result")
	}

	want := workspace.TaskFilter{ProjectID: "p1", Status: "in_progress", Search: "quarterly"}
	if store.taskFilter != want {
		t.Errorf("filter = %+v, want %+v", store.taskFilter, want)
	}
}

func TestExecuteResultEnvelope(t *testing.T) {
	store := &recordingStore{tasks: []workspace.Task{
		{ID: "t1", Title: "Write report"},
		{ID: "t2", Title: "Review budget"},
	}}
	e := NewQueryExecutor(store)

	payload, isErr := e.Execute(context.Background(), ToolQueryTasks, map[string]interface{}{}, testCreds())
	if isErr {
		t.Fatal("unexpected error result")
	}

	var envelope struct {
		Tasks []workspace.Task `json:"tasks"`
		Count int              `json:"count"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if envelope.Count != 2 || len(envelope.Tasks) != 2 {
		t.Errorf("envelope = %+v", envelope)
	}
}

func TestExecuteStoreFailureBecomesErrorPayload(t *testing.T) {
	store := &recordingStore{err: errors.New("disk I/O error")}
	e := NewQueryExecutor(store)

	payload, isErr := e.Execute(context.Background(), ToolQueryNotes, map[string]interface{}{}, testCreds())
	if !isErr {
		t.Fatal("expected an error result")
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("error payload is not valid JSON: %v", err)
	}
	if envelope["error"] != true {
		t.Errorf("payload = %v", envelope)
	}
	if envelope["details"] != "disk I/O error" {
		t.Errorf("details = %v", envelope["details"])
	}
}

func TestExecuteUnknownKind(t *testing.T) {
	e := NewQueryExecutor(&recordingStore{})

	payload, isErr := e.Execute(context.Background(), ToolUnknown, map[string]interface{}{}, testCreds())
	if !isErr {
		t.Fatal("expected an error result for unknown kind")
	}
	var envelope map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("error payload is not valid JSON: %v", err)
	}
	if envelope["error"] != true {
		t.Errorf("payload = %v", envelope)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewQueryExecutor(&recordingStore{})
	_, isErr := e.Execute(ctx, ToolQueryTasks, map[string]interface{}{}, testCreds())
	if !isErr {
		t.Fatal("expected an error result for cancelled context")
	}
}
