package chat

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"taskmind/internal/llm"
	"taskmind/internal/logging"
	"taskmind/internal/workspace"
)

// DefaultMaxIterations caps provider round-trips per request.
const DefaultMaxIterations = 10

// Orchestrator drives the multi-turn tool-use loop against the model
// provider. One Run produces exactly one Outcome.
type Orchestrator struct {
	client        llm.Client
	executor      ToolExecutor
	catalog       *Catalog
	systemPrompt  string
	maxIterations int
	maxTokens     int
	temperature   float64
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxIterations overrides the iteration cap.
func WithMaxIterations(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithSystemPrompt overrides the system prompt.
func WithSystemPrompt(prompt string) OrchestratorOption {
	return func(o *Orchestrator) { o.systemPrompt = prompt }
}

// WithSampling sets max tokens and temperature for provider calls.
func WithSampling(maxTokens int, temperature float64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxTokens = maxTokens
		o.temperature = temperature
	}
}

// NewOrchestrator builds an orchestrator. The client and executor are
// injected; the orchestrator never reaches into ambient state.
func NewOrchestrator(client llm.Client, executor ToolExecutor, catalog *Catalog, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		client:        client,
		executor:      executor,
		catalog:       catalog,
		systemPrompt:  assistantSystemPrompt,
		maxIterations: DefaultMaxIterations,
		maxTokens:     4096,
		temperature:   0.7,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the loop: send transcript plus tools, execute requested
// server tools in parallel, feed results back, repeat until a terminal
// condition. Returns exactly one of MessageOutcome, ActionsOutcome,
// QuestionsOutcome, or an error.
func (o *Orchestrator) Run(ctx context.Context, transcript []llm.Message, creds workspace.Credentials) (Outcome, error) {
	timer := logging.StartTimer(logging.CategoryChat, "Orchestrator.Run")
	defer timer.Stop()

	messages := transcript

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		resp, err := o.client.Chat(ctx, llm.ChatRequest{
			System:      o.systemPrompt,
			Messages:    messages,
			Tools:       o.catalog.Definitions(),
			MaxTokens:   o.maxTokens,
			Temperature: o.temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("provider call failed: %w", err)
		}

		logging.ChatDebug("Iteration %d: stop_reason=%s tool_calls=%d text_len=%d",
			iteration, resp.StopReason, len(resp.ToolCalls), len(resp.Text))

		switch resp.StopReason {
		case llm.StopEndTurn:
			return o.classify(resp), nil

		case llm.StopToolUse:
			// Client-terminal tools take priority over everything else in
			// the turn: if one is present, server tools in the same turn
			// are discarded, never executed.
			if o.hasClientTerminal(resp.ToolCalls) {
				return o.classify(resp), nil
			}
			if !resp.HasToolCalls() {
				logging.ChatWarn("Provider signaled tool use with no invocations; falling back to plain message")
				return o.classify(resp), nil
			}

			results := o.executeAll(ctx, resp.ToolCalls, creds)
			messages = append(messages, resp.AssistantMessage(), toolResultsMessage(results))

		default:
			return nil, fmt.Errorf("%w: %q", ErrUnexpectedStop, resp.StopReason)
		}
	}

	logging.ChatError("Iteration cap (%d) exceeded", o.maxIterations)
	return nil, fmt.Errorf("%w: exceeded %d iterations", ErrTooManyToolCalls, o.maxIterations)
}

// hasClientTerminal reports whether any invocation in the turn belongs to
// the client-terminal set.
func (o *Orchestrator) hasClientTerminal(calls []llm.ToolCall) bool {
	for _, call := range calls {
		if o.catalog.KindOf(call.Name).IsClientTerminal() {
			return true
		}
	}
	return false
}

// executeAll fans out every server tool call concurrently and joins before
// returning. Results come back in input order; each one carries its
// originating invocation id, which is what the model matches on. A failing
// execution becomes an error result, never an aborted batch.
func (o *Orchestrator) executeAll(ctx context.Context, calls []llm.ToolCall, creds workspace.Credentials) []llm.ToolResult {
	results := make([]llm.ToolResult, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			kind := o.catalog.KindOf(call.Name)
			payload, isErr := o.executor.Execute(gctx, kind, call.Input, creds)
			results[i] = llm.ToolResult{
				ToolUseID: call.ID,
				Content:   payload,
				IsError:   isErr,
			}
			return nil
		})
	}
	g.Wait() // goroutines never return errors; failures live in the results

	return results
}

// toolResultsMessage packs tool results into the user turn the provider
// expects them in.
func toolResultsMessage(results []llm.ToolResult) llm.Message {
	blocks := make([]llm.ContentBlock, len(results))
	for i, res := range results {
		blocks[i] = llm.ToolResultBlock(res)
	}
	return llm.Message{Role: llm.RoleUser, Content: blocks}
}
