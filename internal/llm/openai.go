package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taskmind/internal/logging"
)

// OpenAIConfig holds configuration for OpenAI-compatible endpoints.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
		Timeout: 2 * time.Minute,
	}
}

// OpenAIClient implements Client against an OpenAI-compatible
// chat/completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(config OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Chat sends a full transcript with tool definitions.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[OpenAI] Chat: model=%s messages=%d tools=%d", c.model, len(req.Messages), len(req.Tools))

	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	system := req.System
	if strings.TrimSpace(system) == "" {
		system = defaultSystemPrompt
	}

	wireMessages := []openAIMessage{{Role: "system", Content: system}}
	wireMessages = append(wireMessages, toOpenAIMessages(req.Messages)...)

	reqBody := openAIRequest{
		Model:       c.model,
		Messages:    wireMessages,
		Tools:       toOpenAITools(req.Tools),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	body, err := c.post(ctx, reqBody)
	if err != nil {
		logging.APIError("[OpenAI] Chat: request failed after %v: %v", time.Since(startTime), err)
		return nil, err
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	choice := apiResp.Choices[0]
	result := &ChatResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: mapFinishReason(choice.FinishReason),
		Elapsed:    time.Since(startTime),
	}
	result.Usage.InputTokens = apiResp.Usage.PromptTokens
	result.Usage.OutputTokens = apiResp.Usage.CompletionTokens

	for _, tc := range choice.Message.ToolCalls {
		if tc.Type != "function" {
			continue
		}
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to unmarshal arguments for tool %s: %w", tc.Function.Name, err)
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: args,
		})
	}

	logging.API("[OpenAI] Chat: completed in %v text_len=%d tool_calls=%d stop_reason=%s",
		result.Elapsed, len(result.Text), len(result.ToolCalls), result.StopReason)
	return result, nil
}

// Complete sends a single system+user prompt pair.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
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

func (c *OpenAIClient) post(ctx context.Context, reqBody openAIRequest) ([]byte, error) {
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

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429): %s", strings.TrimSpace(string(body)))
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

// mapFinishReason normalizes OpenAI finish reasons onto the package's stop
// reasons so callers see one vocabulary.
func mapFinishReason(reason string) string {
	switch reason {
	case "stop":
		return StopEndTurn
	case "tool_calls":
		return StopToolUse
	default:
		return reason
	}
}

func toOpenAITools(tools []ToolDefinition) []openAITool {
	out := make([]openAITool, len(tools))
	for i, t := range tools {
		out[i].Type = "function"
		out[i].Function.Name = t.Name
		out[i].Function.Description = t.Description
		out[i].Function.Parameters = t.InputSchema
	}
	return out
}

// toOpenAIMessages translates content-block messages into the
// chat/completions shape. Tool results become role=tool messages; a turn
// mixing text and images becomes a content-part array.
func toOpenAIMessages(messages []Message) []openAIMessage {
	var out []openAIMessage
	for _, m := range messages {
		var (
			textParts []openAIContentPart
			toolCalls []openAIToolCall
			toolsOnly []openAIMessage
			hasImage  bool
			plainText strings.Builder
		)

		for _, b := range m.Content {
			switch b.Type {
			case BlockText:
				textParts = append(textParts, openAIContentPart{Type: "text", Text: b.Text})
				plainText.WriteString(b.Text)
			case BlockImage:
				if b.Source == nil {
					continue
				}
				hasImage = true
				part := openAIContentPart{Type: "image_url"}
				part.ImageURL = &struct {
					URL string `json:"url"`
				}{URL: fmt.Sprintf("data:%s;base64,%s", b.Source.MediaType, b.Source.Data)}
				textParts = append(textParts, part)
			case BlockToolUse:
				args, err := json.Marshal(b.Input)
				if err != nil {
					args = []byte("{}")
				}
				tc := openAIToolCall{ID: b.ID, Type: "function"}
				tc.Function.Name = b.Name
				tc.Function.Arguments = string(args)
				toolCalls = append(toolCalls, tc)
			case BlockToolResult:
				toolsOnly = append(toolsOnly, openAIMessage{
					Role:       "tool",
					Content:    b.Content,
					ToolCallID: b.ToolUseID,
				})
			}
		}

		if len(textParts) > 0 || len(toolCalls) > 0 {
			msg := openAIMessage{Role: m.Role, ToolCalls: toolCalls}
			if hasImage {
				msg.Content = textParts
			} else {
				msg.Content = plainText.String()
			}
			out = append(out, msg)
		}
		out = append(out, toolsOnly...)
	}
	return out
}
