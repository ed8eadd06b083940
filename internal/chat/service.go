package chat

import (
	"context"
	"fmt"

	"taskmind/internal/logging"
	"taskmind/internal/workspace"
)

// Service is the caller-facing entry point: it wires the transcript
// builder, the orchestrator, message persistence, and the background
// memory-maintenance trigger into one request flow.
type Service struct {
	store        *workspace.Store
	transcripts  *TranscriptBuilder
	orchestrator *Orchestrator
	memory       *MemoryManager
}

// NewService assembles the chat service from its injected parts.
func NewService(store *workspace.Store, transcripts *TranscriptBuilder, orchestrator *Orchestrator, memory *MemoryManager) *Service {
	return &Service{
		store:        store,
		transcripts:  transcripts,
		orchestrator: orchestrator,
		memory:       memory,
	}
}

// HandleMessage runs one full exchange: build the transcript, run the
// orchestration loop, persist both sides of the exchange, and kick off
// memory maintenance in the background.
func (s *Service) HandleMessage(ctx context.Context, conversationID, text string, attachments []workspace.Attachment, creds workspace.Credentials) (Outcome, error) {
	conv, err := s.store.GetConversation(creds, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	history, err := s.store.History(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	transcript, err := s.transcripts.Build(ctx, text, attachments, history, conv.Summary)
	if err != nil {
		return nil, fmt.Errorf("failed to build transcript: %w", err)
	}

	outcome, err := s.orchestrator.Run(ctx, transcript, creds)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.AppendMessage(conversationID, workspace.RoleUser, text, attachments); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}
	if _, err := s.store.AppendMessage(conversationID, workspace.RoleAI, outcomeText(outcome), nil); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	// Memory maintenance is deferred background work with its own error
	// boundary; the response never waits on it or fails because of it.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.MemoryError("Memory maintenance panicked for %s: %v", conversationID, r)
			}
		}()
		s.memory.Maintain(context.Background(), conversationID)
	}()

	return outcome, nil
}

// outcomeText extracts the conversational text of an outcome for storage.
func outcomeText(o Outcome) string {
	switch v := o.(type) {
	case MessageOutcome:
		return v.Text
	case ActionsOutcome:
		if v.Text != "" {
			return v.Text
		}
		return v.Summary
	case QuestionsOutcome:
		return v.Text
	default:
		return ""
	}
}
