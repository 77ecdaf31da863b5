package engine

import "errors"

// Per-event outcomes the pipeline distinguishes. All of them are terminal
// for the event and none of them is fatal to the process; only startup
// configuration errors are.
var (
	// ErrAccessDenied: the sender failed the global or per-command gate.
	ErrAccessDenied = errors.New("access denied")

	// ErrGuardBlocked: the rate governor refused the action.
	ErrGuardBlocked = errors.New("blocked by rate governor")

	// ErrReasoningUnavailable: the reasoning collaborator had no answer.
	ErrReasoningUnavailable = errors.New("reasoning collaborator unavailable")

	// ErrDeliveryFailure: an outbound send failed. State mutated for the
	// event stays mutated.
	ErrDeliveryFailure = errors.New("outbound delivery failed")
)
