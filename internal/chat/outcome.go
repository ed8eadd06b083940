// Package chat implements the conversational tool-orchestration engine:
// the tool catalog, the query executor, the transcript builder, the
// orchestration loop, the response classifier, and the conversation memory
// manager.
package chat

import "encoding/json"

// ProposedOperation is one create/update/delete the model proposes for user
// confirmation. Only the structural shape is checked here; validating the
// individual operation is the consuming layer's job.
type ProposedOperation struct {
	Op     string                 `json:"op"`     // create, update, delete
	Entity string                 `json:"entity"` // task, note, project
	ID     string                 `json:"id,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// AskQuestionsInput is the typed input of the ask_questions client tool.
type AskQuestionsInput struct {
	Questions []string `json:"questions"`
}

// ProposeActionsInput is the typed input of the propose_actions client tool.
type ProposeActionsInput struct {
	Summary    string              `json:"summary"`
	Operations []ProposedOperation `json:"operations"`
}

// Outcome is the terminal result of one orchestration run. Exactly one of
// the three concrete types is produced per request.
type Outcome interface {
	outcome()
}

// MessageOutcome is a plain conversational reply.
type MessageOutcome struct {
	Text string
}

// ActionsOutcome is a batch of proposed operations awaiting confirmation.
type ActionsOutcome struct {
	Text       string
	Summary    string
	Operations []ProposedOperation
}

// QuestionsOutcome is a set of clarifying questions for the user.
type QuestionsOutcome struct {
	Text      string
	Questions []string
}

func (MessageOutcome) outcome()   {}
func (ActionsOutcome) outcome()   {}
func (QuestionsOutcome) outcome() {}

// outcomeJSON is the stable caller-facing shape.
type outcomeJSON struct {
	Type      string              `json:"type"`
	Message   string              `json:"message,omitempty"`
	Summary   string              `json:"summary,omitempty"`
	Actions   []ProposedOperation `json:"actions,omitempty"`
	Questions []string            `json:"questions,omitempty"`
}

// MarshalOutcome serializes an outcome into the caller-facing JSON shape
// {type, message?, summary?, actions?, questions?}.
func MarshalOutcome(o Outcome) ([]byte, error) {
	var out outcomeJSON
	switch v := o.(type) {
	case MessageOutcome:
		out = outcomeJSON{Type: "message", Message: v.Text}
	case ActionsOutcome:
		out = outcomeJSON{Type: "actions", Message: v.Text, Summary: v.Summary, Actions: v.Operations}
	case QuestionsOutcome:
		out = outcomeJSON{Type: "questions", Message: v.Text, Questions: v.Questions}
	}
	return json.Marshal(out)
}
