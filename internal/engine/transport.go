package engine

import "context"

// SendOptions carries optional outbound delivery hints.
type SendOptions struct {
	// QuoteRef is a transport-level reference to the message being replied
	// to, empty for a plain send.
	QuoteRef string
}

// Transport is the outbound half of the message transport collaborator.
// Sends are fire-and-forget from the core's perspective: a failure is
// logged, never retried here, and never rolls back state already mutated
// for the event.
type Transport interface {
	Send(ctx context.Context, chat, text string, opts *SendOptions) error
}
