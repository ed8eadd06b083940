package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"taskmind/internal/logging"
	"taskmind/internal/workspace"
)

// Query limits. The model may ask for anything; the effective limit is
// clamped to bound token usage and data exposure.
const (
	defaultQueryLimit = 50
	maxQueryLimit     = 100
)

// ToolExecutor executes one server tool call and always yields a serialized
// payload. Failures are encoded into the payload, never returned as errors,
// so the model can react conversationally.
type ToolExecutor interface {
	Execute(ctx context.Context, kind ToolKind, input map[string]interface{}, creds workspace.Credentials) (payload string, isError bool)
}

// QueryStore is the read surface of the workspace datastore the executor
// needs. *workspace.Store satisfies it.
type QueryStore interface {
	ListTasks(creds workspace.Credentials, filter workspace.TaskFilter, limit int) ([]workspace.Task, error)
	ListNotes(creds workspace.Credentials, filter workspace.NoteFilter, limit int) ([]workspace.Note, error)
	ListProjects(creds workspace.Credentials, filter workspace.ProjectFilter, limit int) ([]workspace.Project, error)
	ListFiles(creds workspace.Credentials, filter workspace.FileFilter, limit int) ([]workspace.FileRecord, error)
}

// QueryExecutor runs read-only lookups against the workspace datastore on
// behalf of the model, scoped by the caller's credentials.
type QueryExecutor struct {
	store QueryStore
}

// NewQueryExecutor creates a QueryExecutor over the given store.
func NewQueryExecutor(store QueryStore) *QueryExecutor {
	return &QueryExecutor{store: store}
}

// Execute runs one lookup. The returned payload is JSON either way: a
// result envelope on success, {"error":true,...} on failure.
func (e *QueryExecutor) Execute(ctx context.Context, kind ToolKind, input map[string]interface{}, creds workspace.Credentials) (string, bool) {
	timer := logging.StartTimer(logging.CategoryTools, "Execute "+kind.String())
	defer timer.Stop()

	if err := ctx.Err(); err != nil {
		return errorPayload("request cancelled", err), true
	}

	limit := clampLimit(intArg(input, "limit"))
	logging.ToolsDebug("Executing %s: user=%s limit=%d", kind, creds.UserID, limit)

	switch kind {
	case ToolQueryTasks:
		filter := workspace.TaskFilter{
			ProjectID: stringArg(input, "project_id"),
			Status:    stringArg(input, "status"),
			Search:    stringArg(input, "search"),
		}
		tasks, err := e.store.ListTasks(creds, filter, limit)
		if err != nil {
			logging.ToolsError("query_tasks failed: %v", err)
			return errorPayload("task lookup failed", err), true
		}
		return resultPayload("tasks", tasks, len(tasks)), false

	case ToolQueryNotes:
		filter := workspace.NoteFilter{
			ProjectID: stringArg(input, "project_id"),
			Search:    stringArg(input, "search"),
		}
		notes, err := e.store.ListNotes(creds, filter, limit)
		if err != nil {
			logging.ToolsError("query_notes failed: %v", err)
			return errorPayload("note lookup failed", err), true
		}
		return resultPayload("notes", notes, len(notes)), false

	case ToolQueryProjects:
		filter := workspace.ProjectFilter{
			Status: stringArg(input, "status"),
			Search: stringArg(input, "search"),
		}
		projects, err := e.store.ListProjects(creds, filter, limit)
		if err != nil {
			logging.ToolsError("query_projects failed: %v", err)
			return errorPayload("project lookup failed", err), true
		}
		return resultPayload("projects", projects, len(projects)), false

	case ToolQueryFiles:
		filter := workspace.FileFilter{
			ProjectID:  stringArg(input, "project_id"),
			TypePrefix: stringArg(input, "type_prefix"),
			Search:     stringArg(input, "search"),
		}
		files, err := e.store.ListFiles(creds, filter, limit)
		if err != nil {
			logging.ToolsError("query_files failed: %v", err)
			return errorPayload("file lookup failed", err), true
		}
		return resultPayload("files", files, len(files)), false

	default:
		logging.ToolsWarn("Unknown tool kind requested: %s", kind)
		return errorPayload(fmt.Sprintf("unknown tool: %s", kind), nil), true
	}
}

// clampLimit bounds the effective result limit to [1, 100] with a default
// of 50 when absent or non-positive.
func clampLimit(requested int) int {
	if requested <= 0 {
		return defaultQueryLimit
	}
	if requested > maxQueryLimit {
		return maxQueryLimit
	}
	return requested
}

func stringArg(input map[string]interface{}, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

// intArg reads an integer argument. JSON numbers decode as float64, but
// models occasionally send strings too, so both are accepted.
func intArg(input map[string]interface{}, key string) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}

func resultPayload(key string, items interface{}, count int) string {
	data, err := json.Marshal(map[string]interface{}{
		key:     items,
		"count": count,
	})
	if err != nil {
		return errorPayload("failed to serialize result", err)
	}
	return string(data)
}

// errorPayload serializes a failure so the model sees it as data.
func errorPayload(message string, err error) string {
	payload := map[string]interface{}{
		"error":   true,
		"message": message,
	}
	if err != nil {
		payload["details"] = err.Error()
	}
	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return `{"error":true,"message":"internal error"}`
	}
	return string(data)
}
