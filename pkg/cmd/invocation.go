// Package cmd provides a transport-agnostic command core: a command is
// something with a name, description, and Run(ctx, invocation). How a
// command is discovered in a message and dispatched (chat message, CLI,
// scheduled task) is defined by adapters that wrap this.
package cmd

import "context"

// Invocation carries the minimal input any command runner can pass:
// arguments and an opaque payload. Adapters set Data to their context
// (e.g. the inbound chat event plus the services a handler may use).
type Invocation struct {
	Args []string
	Data interface{}
}

// Command is the universal contract: identity plus execution. Access
// policy, throttling metadata, and transport-specific concerns stay in
// adapter-level interfaces.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
