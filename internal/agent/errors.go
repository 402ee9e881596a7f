package agent

import "errors"

// Sentinel errors the workflow boundary branches on.
var (
	// ErrConversationNotFound means no persisted state exists for the ID.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrNotSuspended means a resume was attempted on a conversation that
	// is not awaiting a decision. A second resume for the same draft lands
	// here, which is what keeps approved amendments from applying twice.
	ErrNotSuspended = errors.New("conversation is not awaiting a decision")

	// ErrAwaitingDecision means a new turn was started while the previous
	// one is still suspended; the caller must resume first.
	ErrAwaitingDecision = errors.New("conversation is awaiting a decision")

	// ErrMissingDraft means apply_update ran without a pending amendment.
	// This is a workflow invariant violation, not a user error.
	ErrMissingDraft = errors.New("no pending amendment to apply")
)
