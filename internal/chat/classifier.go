package chat

import (
	"encoding/json"

	"taskmind/internal/llm"
	"taskmind/internal/logging"
)

func (o *Orchestrator) classify(resp *llm.ChatResponse) Outcome {
	return Classify(resp, o.catalog)
}

// Classify converts the final model turn into the terminal outcome. The
// client-terminal tools carry structured input that is decoded here, at the
// boundary; everything else becomes a plain message.
func Classify(resp *llm.ChatResponse, catalog *Catalog) Outcome {
	for _, call := range resp.ToolCalls {
		switch catalog.KindOf(call.Name) {
		case ToolProposeActions:
			input, err := decodeInput[ProposeActionsInput](call.Input)
			if err != nil {
				logging.ChatWarn("propose_actions input failed to decode: %v; falling back to message", err)
				return MessageOutcome{Text: resp.Text}
			}
			return ActionsOutcome{
				Text:       resp.Text,
				Summary:    input.Summary,
				Operations: input.Operations,
			}

		case ToolAskQuestions:
			input, err := decodeInput[AskQuestionsInput](call.Input)
			if err != nil {
				logging.ChatWarn("ask_questions input failed to decode: %v; falling back to message", err)
				return MessageOutcome{Text: resp.Text}
			}
			return QuestionsOutcome{
				Text:      resp.Text,
				Questions: input.Questions,
			}
		}
	}

	if resp.StopReason == llm.StopToolUse {
		// Lenient fallback: an unknown tool name, or tool_use with no
		// invocation present. Logged because it indicates provider
		// behavior the catalog does not cover.
		logging.ChatWarn("Terminal tool_use turn had no recognized client tool (calls=%d); degrading to message", len(resp.ToolCalls))
	}

	return MessageOutcome{Text: resp.Text}
}

// decodeInput round-trips a tool input through JSON into its typed form.
func decodeInput[T any](input map[string]interface{}) (T, error) {
	var out T
	data, err := json.Marshal(input)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
