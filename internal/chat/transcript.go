package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"taskmind/internal/llm"
	"taskmind/internal/logging"
	"taskmind/internal/workspace"
)

// AttachmentSource fetches the bytes of an attached file, resolving the
// temporary or permanent storage location. External collaborator; the
// engine only consumes the bytes.
type AttachmentSource interface {
	Fetch(ctx context.Context, att workspace.Attachment) ([]byte, error)
}

// TranscriptBuilder assembles the prompt transcript for one turn: optional
// compacted summary, trimmed history, and the current user input with any
// image attachments inlined.
type TranscriptBuilder struct {
	files AttachmentSource
}

// NewTranscriptBuilder creates a builder over the given attachment source.
func NewTranscriptBuilder(files AttachmentSource) *TranscriptBuilder {
	return &TranscriptBuilder{files: files}
}

// Build produces the ordered transcript. The current user turn is always
// last; a non-empty summary is prepended as a marked synthetic user turn.
func (b *TranscriptBuilder) Build(ctx context.Context, currentText string, currentAttachments []workspace.Attachment, history []workspace.Message, summary string) ([]llm.Message, error) {
	var transcript []llm.Message

	if summary != "" {
		transcript = append(transcript, llm.UserText(SummaryMarker(summary)))
	}

	for i, msg := range history {
		// The application's canned greeting leads every conversation; it
		// carries no information the model needs as prior context.
		if i == 0 && msg.Role == workspace.RoleAI {
			continue
		}
		transcript = append(transcript, b.toTurn(ctx, msg.Role, msg.Content, msg.Attachments))
	}

	transcript = append(transcript, b.toTurn(ctx, workspace.RoleUser, currentText, currentAttachments))

	logging.ChatDebug("Built transcript: %d turns (history=%d, summary=%v)",
		len(transcript), len(history), summary != "")
	return transcript, nil
}

// toTurn maps one stored message to a transcript turn, translating the
// stored assistant label and inlining image attachments.
func (b *TranscriptBuilder) toTurn(ctx context.Context, role, content string, attachments []workspace.Attachment) llm.Message {
	modelRole := llm.RoleUser
	if role == workspace.RoleAI {
		modelRole = llm.RoleAssistant
	}

	blocks := []llm.ContentBlock{llm.TextBlock(content)}
	for _, att := range attachments {
		if !strings.HasPrefix(att.ContentType, "image/") {
			// Non-image attachments stay visible in the UI but are not
			// sent to the model.
			continue
		}
		if b.files == nil {
			continue
		}
		data, err := b.files.Fetch(ctx, att)
		if err != nil {
			logging.ChatWarn("Skipping attachment %s: fetch failed: %v", att.FileID, err)
			continue
		}
		blocks = append(blocks, llm.ImageBlock(att.ContentType, base64.StdEncoding.EncodeToString(data)))
	}

	return llm.Message{Role: modelRole, Content: blocks}
}

// SummaryMarker is the prefix of the synthetic summary turn. Exposed for
// the consuming layer's rendering decisions.
func SummaryMarker(summary string) string {
	return fmt.Sprintf("[Previous conversation summary]\n%s", summary)
}
