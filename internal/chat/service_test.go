package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"taskmind/internal/llm"
	"taskmind/internal/workspace"
)

// newTestService wires a Service over a real on-disk store and a scripted
// provider.
func newTestService(t *testing.T, client *scriptedClient) (*Service, *workspace.Store) {
	t.Helper()

	store, err := workspace.NewStore(filepath.Join(t.TempDir(), "workspace.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	orchestrator := NewOrchestrator(client, NewQueryExecutor(store), NewCatalog())
	memory := NewMemoryManager(store, &fakeSummarizer{summary: "s"})
	return NewService(store, NewTranscriptBuilder(nil), orchestrator, memory), store
}

func TestHandleMessagePersistsBothSides(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{
		endTurn("Nothing is due today."),
	}}
	svc, store := newTestService(t, client)

	creds := workspace.Credentials{UserID: "u1"}
	conv, err := store.CreateConversation(creds, "test")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	outcome, err := svc.HandleMessage(context.Background(), conv.ID, "anything due today?", nil, creds)
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if msg, ok := outcome.(MessageOutcome); !ok || msg.Text != "Nothing is due today." {
		t.Fatalf("outcome = %#v", outcome)
	}

	history, err := store.History(conv.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(history))
	}
	if history[0].Role != workspace.RoleUser || history[0].Content != "anything due today?" {
		t.Errorf("user message = %+v", history[0])
	}
	if history[1].Role != workspace.RoleAI || history[1].Content != "Nothing is due today." {
		t.Errorf("assistant message = %+v", history[1])
	}
}

func TestHandleMessageQueriesRealStore(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolUse("", llm.ToolCall{ID: "tu_1", Name: "query_tasks", Input: map[string]interface{}{"status": "todo"}}),
		endTurn("One open task: Buy milk."),
	}}
	svc, store := newTestService(t, client)

	creds := workspace.Credentials{UserID: "u1"}
	if _, err := store.CreateTask(creds, "", "Buy milk", "", "todo", nil); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	// Other users' data must never surface.
	other := workspace.Credentials{UserID: "u2"}
	if _, err := store.CreateTask(other, "", "Secret task", "", "todo", nil); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	conv, err := store.CreateConversation(creds, "test")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if _, err := svc.HandleMessage(context.Background(), conv.ID, "what's open?", nil, creds); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	// The tool result fed back on the second round-trip carries only the
	// caller's task.
	second := client.requests[1]
	result := second.Messages[len(second.Messages)-1].Content[0]
	if result.IsError {
		t.Fatalf("tool result errored: %s", result.Content)
	}
	if want := "Buy milk"; !strings.Contains(result.Content, want) {
		t.Errorf("result missing %q: %s", want, result.Content)
	}
	if strings.Contains(result.Content, "Secret task") {
		t.Errorf("cross-user leak in result: %s", result.Content)
	}
}

func TestHandleMessageUnknownConversation(t *testing.T) {
	svc, _ := newTestService(t, &scriptedClient{})

	_, err := svc.HandleMessage(context.Background(), "no-such-id", "hi", nil, workspace.Credentials{UserID: "u1"})
	if err == nil {
		t.Fatal("expected an error for an unknown conversation")
	}
}

func TestHandleMessageRunsMaintenanceInBackground(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{endTurn("ok")}}

	store, err := workspace.NewStore(filepath.Join(t.TempDir(), "workspace.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	summarizer := &fakeSummarizer{summary: "compacted"}
	memory := NewMemoryManager(store, summarizer, WithCompactionPolicy(4, 2, 1))
	svc := NewService(store, NewTranscriptBuilder(nil),
		NewOrchestrator(client, NewQueryExecutor(store), NewCatalog()), memory)

	creds := workspace.Credentials{UserID: "u1"}
	conv, err := store.CreateConversation(creds, "test")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	// Two prior exchanges; this turn's pair makes six, past the threshold
	// of four and on the interval.
	for i := 0; i < 2; i++ {
		if _, err := store.AppendMessage(conv.ID, workspace.RoleUser, "q", nil); err != nil {
			t.Fatal(err)
		}
		if _, err := store.AppendMessage(conv.ID, workspace.RoleAI, "a", nil); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond) // distinct created_at ordering
	}

	if _, err := svc.HandleMessage(context.Background(), conv.ID, "third", nil, creds); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	// Maintenance runs on a background goroutine; poll for its effect.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := store.ConversationSummary(conv.ID)
		if err != nil {
			t.Fatalf("ConversationSummary failed: %v", err)
		}
		if got == "compacted" {
			count, err := store.CountMessages(conv.ID)
			if err != nil {
				t.Fatalf("CountMessages failed: %v", err)
			}
			// The last pair can share a created-at timestamp with the
			// boundary message, in which case the strictly-older prune
			// keeps both.
			if count < 1 || count > 2 {
				t.Fatalf("expected 1-2 messages kept, got %d", count)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("background maintenance never completed")
}
