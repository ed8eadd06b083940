package chat

import (
	"testing"

	"taskmind/internal/llm"
)

func TestClassifyQuestions(t *testing.T) {
	resp := toolUse("Before I do that:",
		llm.ToolCall{ID: "tu_1", Name: "ask_questions", Input: map[string]interface{}{
			"questions": []interface{}{"Which project?", "By when?"},
		}},
	)

	outcome := Classify(resp, NewCatalog())
	q, ok := outcome.(QuestionsOutcome)
	if !ok {
		t.Fatalf("expected QuestionsOutcome, got %T", outcome)
	}
	if q.Text != "Before I do that:" {
		t.Errorf("text = %q", q.Text)
	}
	if len(q.Questions) != 2 || q.Questions[0] != "Which project?" {
		t.Errorf("questions = %v", q.Questions)
	}
}

func TestClassifyActionsWithTypedOperations(t *testing.T) {
	resp := toolUse("",
		llm.ToolCall{ID: "tu_1", Name: "propose_actions", Input: map[string]interface{}{
			"summary": "Mark two tasks done",
			"operations": []interface{}{
				map[string]interface{}{"op": "update", "entity": "task", "id": "t1", "data": map[string]interface{}{"status": "done"}},
				map[string]interface{}{"op": "update", "entity": "task", "id": "t2", "data": map[string]interface{}{"status": "done"}},
			},
		}},
	)

	outcome := Classify(resp, NewCatalog())
	a, ok := outcome.(ActionsOutcome)
	if !ok {
		t.Fatalf("expected ActionsOutcome, got %T", outcome)
	}
	if len(a.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(a.Operations))
	}
	op := a.Operations[1]
	if op.Op != "update" || op.Entity != "task" || op.ID != "t2" {
		t.Errorf("operation = %+v", op)
	}
	if op.Data["status"] != "done" {
		t.Errorf("data = %v", op.Data)
	}
}

func TestClassifyMalformedInputDegradesToMessage(t *testing.T) {
	// questions must be an array of strings; a scalar fails the typed
	// decode and the outcome degrades to a plain message.
	resp := toolUse("Some text",
		llm.ToolCall{ID: "tu_1", Name: "ask_questions", Input: map[string]interface{}{
			"questions": "just one?",
		}},
	)

	outcome := Classify(resp, NewCatalog())
	msg, ok := outcome.(MessageOutcome)
	if !ok {
		t.Fatalf("expected MessageOutcome fallback, got %T", outcome)
	}
	if msg.Text != "Some text" {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestClassifyUnknownToolDegradesToMessage(t *testing.T) {
	resp := toolUse("fallback text",
		llm.ToolCall{ID: "tu_1", Name: "made_up_tool", Input: map[string]interface{}{}},
	)

	outcome := Classify(resp, NewCatalog())
	msg, ok := outcome.(MessageOutcome)
	if !ok {
		t.Fatalf("expected MessageOutcome, got %T", outcome)
	}
	if msg.Text != "fallback text" {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestClassifyEndTurn(t *testing.T) {
	outcome := Classify(endTurn("hello"), NewCatalog())
	if msg, ok := outcome.(MessageOutcome); !ok || msg.Text != "hello" {
		t.Fatalf("got %#v", outcome)
	}
}
