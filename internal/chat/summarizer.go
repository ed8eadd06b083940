package chat

import (
	"context"
	"fmt"
	"strings"

	"taskmind/internal/llm"
	"taskmind/internal/logging"
	"taskmind/internal/workspace"
)

// SemanticSummarizer implements Summarizer with an LLM call.
type SemanticSummarizer struct {
	client llm.Client
}

// NewSemanticSummarizer creates a new SemanticSummarizer.
func NewSemanticSummarizer(client llm.Client) *SemanticSummarizer {
	return &SemanticSummarizer{client: client}
}

// Summarize compacts old messages into a single summary string, folding in
// the prior summary so context compounds across compaction rounds.
func (s *SemanticSummarizer) Summarize(ctx context.Context, messages []workspace.Message, priorSummary string) (string, error) {
	if len(messages) == 0 {
		return priorSummary, nil
	}

	logging.MemoryDebug("Summarizing %d messages (prior_len=%d)", len(messages), len(priorSummary))

	var sb strings.Builder
	for _, msg := range messages {
		role := "Assistant"
		if msg.Role == workspace.RoleUser {
			role = "User"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", role, msg.Content))
	}

	var prompt strings.Builder
	prompt.WriteString("Summarize the following conversation history into a concise context string.\n")
	prompt.WriteString("Retain key decisions, facts, user preferences, and the current state of the user's projects and tasks.\n")
	prompt.WriteString("Discard small talk and redundant clarifications.\n\n")
	if priorSummary != "" {
		prompt.WriteString("Earlier context (fold this into the new summary):\n")
		prompt.WriteString(priorSummary)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("Conversation:\n")
	prompt.WriteString(sb.String())
	prompt.WriteString("\nSummary:")

	systemPrompt := "You are a context compressor. Your job is to summarize conversation history to retain memory for a productivity assistant."

	summary, err := s.client.Complete(ctx, systemPrompt, prompt.String())
	if err != nil {
		return "", fmt.Errorf("semantic summarization failed: %w", err)
	}

	return strings.TrimSpace(summary), nil
}
