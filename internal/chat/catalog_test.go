package chat

import "testing"

func TestCatalogResolvesAllTools(t *testing.T) {
	c := NewCatalog()

	cases := map[string]ToolKind{
		"query_tasks":     ToolQueryTasks,
		"query_notes":     ToolQueryNotes,
		"query_projects":  ToolQueryProjects,
		"query_files":     ToolQueryFiles,
		"ask_questions":   ToolAskQuestions,
		"propose_actions": ToolProposeActions,
	}
	for name, want := range cases {
		if got := c.KindOf(name); got != want {
			t.Errorf("KindOf(%q) = %v, want %v", name, got, want)
		}
	}

	if got := c.KindOf("query_everything"); got != ToolUnknown {
		t.Errorf("unknown name resolved to %v", got)
	}
}

func TestClientTerminalSet(t *testing.T) {
	if !ToolAskQuestions.IsClientTerminal() || !ToolProposeActions.IsClientTerminal() {
		t.Error("ask_questions and propose_actions must be client-terminal")
	}
	for _, k := range []ToolKind{ToolQueryTasks, ToolQueryNotes, ToolQueryProjects, ToolQueryFiles, ToolUnknown} {
		if k.IsClientTerminal() {
			t.Errorf("%v must not be client-terminal", k)
		}
	}
}

func TestDefinitionsMatchCatalog(t *testing.T) {
	c := NewCatalog()

	defs := c.Definitions()
	if len(defs) != 6 {
		t.Fatalf("expected 6 definitions, got %d", len(defs))
	}
	for _, def := range defs {
		if c.KindOf(def.Name) == ToolUnknown {
			t.Errorf("definition %q not resolvable by the catalog", def.Name)
		}
		if def.Description == "" {
			t.Errorf("definition %q has no description", def.Name)
		}
		if def.InputSchema["type"] != "object" {
			t.Errorf("definition %q schema is not an object", def.Name)
		}
	}
}
