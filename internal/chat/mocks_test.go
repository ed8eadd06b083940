package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskmind/internal/llm"
	"taskmind/internal/workspace"
)

// scriptedClient plays back a fixed sequence of provider responses and
// records every request it receives.
type scriptedClient struct {
	mu        sync.Mutex
	responses []*llm.ChatResponse
	requests  []llm.ChatRequest
	err       error
}

func (c *scriptedClient) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return nil, fmt.Errorf("scripted client exhausted after %d calls", len(c.requests))
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func (c *scriptedClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.Chat(ctx, llm.ChatRequest{System: systemPrompt, Messages: []llm.Message{llm.UserText(userPrompt)}})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func endTurn(text string) *llm.ChatResponse {
	return &llm.ChatResponse{Text: text, StopReason: llm.StopEndTurn}
}

func toolUse(text string, calls ...llm.ToolCall) *llm.ChatResponse {
	return &llm.ChatResponse{Text: text, ToolCalls: calls, StopReason: llm.StopToolUse}
}

// executedCall is one recorded Execute invocation.
type executedCall struct {
	kind  ToolKind
	input map[string]interface{}
}

// spyExecutor records executions and returns canned payloads per kind.
type spyExecutor struct {
	mu       sync.Mutex
	calls    []executedCall
	payloads map[ToolKind]string
	failing  map[ToolKind]bool
}

func newSpyExecutor() *spyExecutor {
	return &spyExecutor{
		payloads: make(map[ToolKind]string),
		failing:  make(map[ToolKind]bool),
	}
}

func (e *spyExecutor) Execute(ctx context.Context, kind ToolKind, input map[string]interface{}, creds workspace.Credentials) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, executedCall{kind: kind, input: input})
	if e.failing[kind] {
		return `{"error":true,"message":"boom"}`, true
	}
	if p, ok := e.payloads[kind]; ok {
		return p, false
	}
	return `{"count":0}`, false
}

func (e *spyExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// fakeFiles serves attachment bytes from a map keyed by storage key.
type fakeFiles struct {
	data map[string][]byte
	errs map[string]error
}

func (f *fakeFiles) Fetch(ctx context.Context, att workspace.Attachment) ([]byte, error) {
	if err, ok := f.errs[att.StorageKey]; ok {
		return nil, err
	}
	b, ok := f.data[att.StorageKey]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", att.StorageKey)
	}
	return b, nil
}

// fakeMemoryStore implements MemoryStore in memory and records every
// mutation so ordering can be asserted.
type fakeMemoryStore struct {
	mu       sync.Mutex
	count    int
	old      []workspace.Message
	summary  string
	nthAt    time.Time
	countErr error
	fetchErr error
	saveErr  error

	savedSummary string
	deletedAt    time.Time
	deleteCalled bool
	saveCalled   bool
}

func (s *fakeMemoryStore) CountMessages(conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, s.countErr
}

func (s *fakeMemoryStore) MessagesExceptRecent(conversationID string, keep int) ([]workspace.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.old, s.fetchErr
}

func (s *fakeMemoryStore) ConversationSummary(conversationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, nil
}

func (s *fakeMemoryStore) NthRecentCreatedAt(conversationID string, n int) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nthAt, nil
}

func (s *fakeMemoryStore) SaveSummary(conversationID, summary string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saveCalled = true
	s.savedSummary = summary
	return nil
}

func (s *fakeMemoryStore) DeleteMessagesBefore(conversationID string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalled = true
	s.deletedAt = cutoff
	return int64(len(s.old)), nil
}

// fakeSummarizer returns a fixed summary or error and records its inputs.
type fakeSummarizer struct {
	mu         sync.Mutex
	summary    string
	err        error
	gotPrior   string
	gotOldLen  int
	invocation int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, messages []workspace.Message, priorSummary string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invocation++
	f.gotPrior = priorSummary
	f.gotOldLen = len(messages)
	return f.summary, f.err
}
