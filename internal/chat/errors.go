package chat

import "errors"

// Orchestration errors.
var (
	// ErrTooManyToolCalls is returned when the loop exceeds its iteration
	// cap. Signals an over-eager tool-calling model; not retried.
	ErrTooManyToolCalls = errors.New("too many tool calls")

	// ErrUnexpectedStop is returned when the provider ends a turn with a
	// stop reason the orchestrator does not understand (e.g. truncation).
	ErrUnexpectedStop = errors.New("unexpected stop reason")
)
