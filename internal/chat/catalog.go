package chat

import "taskmind/internal/llm"

// ToolKind is the closed set of tools the engine knows. String tool names
// from the model are resolved to a kind exactly once, at the catalog
// boundary; everything downstream switches on the kind.
type ToolKind int

const (
	ToolUnknown ToolKind = iota

	// Server tools: executed here against the workspace datastore.
	ToolQueryTasks
	ToolQueryNotes
	ToolQueryProjects
	ToolQueryFiles

	// Client-terminal tools: executed by the consuming application; their
	// appearance ends the loop.
	ToolAskQuestions
	ToolProposeActions
)

// Wire names of the tools as presented to the model.
const (
	nameQueryTasks     = "query_tasks"
	nameQueryNotes     = "query_notes"
	nameQueryProjects  = "query_projects"
	nameQueryFiles     = "query_files"
	nameAskQuestions   = "ask_questions"
	nameProposeActions = "propose_actions"
)

// String returns the wire name of the tool kind.
func (k ToolKind) String() string {
	switch k {
	case ToolQueryTasks:
		return nameQueryTasks
	case ToolQueryNotes:
		return nameQueryNotes
	case ToolQueryProjects:
		return nameQueryProjects
	case ToolQueryFiles:
		return nameQueryFiles
	case ToolAskQuestions:
		return nameAskQuestions
	case ToolProposeActions:
		return nameProposeActions
	default:
		return "unknown"
	}
}

// IsClientTerminal reports whether a tool ends the loop and hands off to
// the consuming application.
func (k ToolKind) IsClientTerminal() bool {
	return k == ToolAskQuestions || k == ToolProposeActions
}

// Catalog is the static registry of tool definitions. Immutable and
// process-wide; built once.
type Catalog struct {
	definitions []llm.ToolDefinition
	byName      map[string]ToolKind
}

// NewCatalog builds the full tool catalog.
func NewCatalog() *Catalog {
	c := &Catalog{
		byName: map[string]ToolKind{
			nameQueryTasks:     ToolQueryTasks,
			nameQueryNotes:     ToolQueryNotes,
			nameQueryProjects:  ToolQueryProjects,
			nameQueryFiles:     ToolQueryFiles,
			nameAskQuestions:   ToolAskQuestions,
			nameProposeActions: ToolProposeActions,
		},
	}
	c.definitions = buildDefinitions()
	return c
}

// KindOf resolves a tool name to its kind. Unknown names map to ToolUnknown.
func (c *Catalog) KindOf(name string) ToolKind {
	return c.byName[name]
}

// Definitions returns the tool definitions sent to the model.
func (c *Catalog) Definitions() []llm.ToolDefinition {
	return c.definitions
}

func limitProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of results. Clamped to 1-100, default 50.",
	}
}

func buildDefinitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        nameQueryTasks,
			Description: "Look up the user's tasks. All filters are optional and combine with AND.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_id": map[string]interface{}{"type": "string", "description": "Restrict to one project."},
					"status":     map[string]interface{}{"type": "string", "enum": []interface{}{"todo", "in_progress", "done"}},
					"search":     map[string]interface{}{"type": "string", "description": "Free-text match on title and description."},
					"limit":      limitProperty(),
				},
			},
		},
		{
			Name:        nameQueryNotes,
			Description: "Look up the user's notes. All filters are optional and combine with AND.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_id": map[string]interface{}{"type": "string", "description": "Restrict to one project."},
					"search":     map[string]interface{}{"type": "string", "description": "Free-text match on title and body."},
					"limit":      limitProperty(),
				},
			},
		},
		{
			Name:        nameQueryProjects,
			Description: "Look up the user's projects.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"status": map[string]interface{}{"type": "string", "enum": []interface{}{"active", "archived"}},
					"search": map[string]interface{}{"type": "string", "description": "Free-text match on name and description."},
					"limit":  limitProperty(),
				},
			},
		},
		{
			Name:        nameQueryFiles,
			Description: "Look up the user's uploaded files by name or content type.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project_id":  map[string]interface{}{"type": "string", "description": "Restrict to one project."},
					"type_prefix": map[string]interface{}{"type": "string", "description": "Content-type prefix, e.g. \"image/\"."},
					"search":      map[string]interface{}{"type": "string", "description": "Free-text match on file name."},
					"limit":       limitProperty(),
				},
			},
		},
		{
			Name:        nameAskQuestions,
			Description: "Ask the user one or more clarifying questions before acting. Use when the request is ambiguous.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"questions": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "The questions to put to the user.",
					},
				},
				"required": []interface{}{"questions"},
			},
		},
		{
			Name:        nameProposeActions,
			Description: "Propose a batch of create/update/delete operations for the user to confirm. Never applied without confirmation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"summary": map[string]interface{}{
						"type":        "string",
						"description": "One-line summary of the proposed changes.",
					},
					"operations": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"op":     map[string]interface{}{"type": "string", "enum": []interface{}{"create", "update", "delete"}},
								"entity": map[string]interface{}{"type": "string", "enum": []interface{}{"task", "note", "project"}},
								"id":     map[string]interface{}{"type": "string"},
								"data":   map[string]interface{}{"type": "object"},
							},
							"required": []interface{}{"op", "entity"},
						},
					},
				},
				"required": []interface{}{"summary", "operations"},
			},
		},
	}
}
