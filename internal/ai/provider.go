// Package ai is the client side of the reasoning collaborator: an opaque
// text generator behind a narrow contract. Providers own transport details;
// Client owns retries, rate adaptation, and the no-answer convention.
package ai

import "context"

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates a reply for a conversation. Implementations must be
// safe for concurrent use.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
