// Package llm provides a provider-agnostic client for conversational
// language-model calls with tool use. Transcripts are modeled as ordered
// messages of content blocks; providers translate to their own wire shapes.
package llm

import "time"

// Roles for transcript messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stop reasons normalized across providers.
const (
	StopEndTurn = "end_turn"
	StopToolUse = "tool_use"
)

// Content block types.
const (
	BlockText       = "text"
	BlockImage      = "image"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ToolDefinition describes a tool the model can invoke.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"` // JSON Schema for parameters
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// ToolResult carries the outcome of executing one tool call back to the
// model, matched by the originating call's ID.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error"`
}

// ImageSource holds inline image bytes for an image content block.
type ImageSource struct {
	MediaType string `json:"media_type"` // image/png, image/jpeg, ...
	Data      string `json:"data"`       // base64-encoded bytes
}

// ContentBlock is one unit of message content. Exactly one of the
// type-specific field groups is populated, selected by Type.
type ContentBlock struct {
	Type string `json:"type"`

	// BlockText
	Text string `json:"text,omitempty"`

	// BlockImage
	Source *ImageSource `json:"source,omitempty"`

	// BlockToolUse
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// BlockToolResult
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ImageBlock builds an inline image content block.
func ImageBlock(mediaType, base64Data string) ContentBlock {
	return ContentBlock{Type: BlockImage, Source: &ImageSource{MediaType: mediaType, Data: base64Data}}
}

// ToolUseBlock builds a tool_use content block from a tool call.
func ToolUseBlock(call ToolCall) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: call.ID, Name: call.Name, Input: call.Input}
}

// ToolResultBlock builds a tool_result content block.
func ToolResultBlock(res ToolResult) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: res.ToolUseID, Content: res.Content, IsError: res.IsError}
}

// Message is one transcript turn.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserText builds a plain-text user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantText builds a plain-text assistant message.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}}
}

// ChatRequest is one provider round-trip: a transcript plus tool catalog.
type ChatRequest struct {
	System      string           `json:"system,omitempty"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
}

// Usage captures token accounting from the provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatResponse is the normalized provider response: the assistant's free
// text, any tool calls, and the stop reason that ended the turn.
type ChatResponse struct {
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
	Elapsed    time.Duration
}

// HasToolCalls reports whether the model requested any tool use this turn.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// AssistantMessage reconstructs the assistant's transcript turn from this
// response, preserving text before tool_use blocks so the next round-trip
// replays the turn exactly.
func (r *ChatResponse) AssistantMessage() Message {
	var blocks []ContentBlock
	if r.Text != "" {
		blocks = append(blocks, TextBlock(r.Text))
	}
	for _, call := range r.ToolCalls {
		blocks = append(blocks, ToolUseBlock(call))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, TextBlock(""))
	}
	return Message{Role: RoleAssistant, Content: blocks}
}
