package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"taskmind/internal/logging"
)

const defaultSystemPrompt = "You are taskmind, a personal productivity assistant. Be concise. Ground answers only in workspace data returned by tools; do not invent tasks, notes, or projects."

// AnthropicConfig holds configuration for the Anthropic client.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.anthropic.com/v1",
		Model:   "claude-sonnet-4-20250514",
		Timeout: 2 * time.Minute,
	}
}

// AnthropicClient implements Client against the Anthropic messages API.
type AnthropicClient struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(config AnthropicConfig) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// SetModel changes the model used for completions.
func (c *AnthropicClient) SetModel(model string) { c.model = model }

// GetModel returns the current model.
func (c *AnthropicClient) GetModel() string { return c.model }

// Chat sends a full transcript with tool definitions.
func (c *AnthropicClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[Anthropic] Chat: model=%s messages=%d tools=%d", c.model, len(req.Messages), len(req.Tools))

	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	system := req.System
	if strings.TrimSpace(system) == "" {
		system = defaultSystemPrompt
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    toAnthropicMessages(req.Messages),
		Temperature: req.Temperature,
	}
	for _, t := range req.Tools {
		reqBody.Tools = append(reqBody.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	c.throttle()

	body, err := c.post(ctx, reqBody)
	if err != nil {
		logging.APIError("[Anthropic] Chat: request failed after %v: %v", time.Since(startTime), err)
		return nil, err
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", apiResp.Error.Message)
	}

	result := &ChatResponse{
		StopReason: apiResp.StopReason,
		Elapsed:    time.Since(startTime),
	}
	result.Usage.InputTokens = apiResp.Usage.InputTokens
	result.Usage.OutputTokens = apiResp.Usage.OutputTokens

	var textBuilder strings.Builder
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			textBuilder.WriteString(block.Text)
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	result.Text = strings.TrimSpace(textBuilder.String())

	logging.API("[Anthropic] Chat: completed in %v text_len=%d tool_calls=%d stop_reason=%s",
		result.Elapsed, len(result.Text), len(result.ToolCalls), result.StopReason)
	return result, nil
}

// Complete sends a single system+user prompt pair.
func (c *AnthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.Chat(ctx, ChatRequest{
		System:      systemPrompt,
		Messages:    []Message{UserText(userPrompt)},
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// throttle enforces a minimum gap between requests.
func (c *AnthropicClient) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
}

// post sends the request with retries on rate limits and transport errors.
func (c *AnthropicClient) post(ctx context.Context, reqBody anthropicRequest) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	maxRetries := 3
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}
		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// toAnthropicMessages maps transcript messages onto the wire format.
func toAnthropicMessages(messages []Message) []anthropicMessage {
	out := make([]anthropicMessage, len(messages))
	for i, m := range messages {
		blocks := make([]anthropicContentBlock, 0, len(m.Content))
		for _, b := range m.Content {
			wire := anthropicContentBlock{
				Type:      b.Type,
				Text:      b.Text,
				ID:        b.ID,
				Name:      b.Name,
				Input:     b.Input,
				ToolUseID: b.ToolUseID,
				Content:   b.Content,
				IsError:   b.IsError,
			}
			if b.Type == BlockImage && b.Source != nil {
				wire.Source = &anthropicImageSource{
					Type:      "base64",
					MediaType: b.Source.MediaType,
					Data:      b.Source.Data,
				}
			}
			blocks = append(blocks, wire)
		}
		out[i] = anthropicMessage{Role: m.Role, Content: blocks}
	}
	return out
}
