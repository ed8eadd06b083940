package llm

import "context"

// Client is the interface all provider implementations satisfy.
type Client interface {
	// Chat sends a full transcript with tool definitions and returns the
	// normalized response. This is the orchestration loop's provider call.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Complete sends a single system+user prompt pair and returns the text
	// completion. Used for auxiliary calls like conversation summarization.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
