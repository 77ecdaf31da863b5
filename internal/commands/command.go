// Package commands holds the built-in command handlers. Commands are plain
// data: a name, a description, an access/throttle policy, and a handler
// function. The whole set is registered once at startup.
package commands

import (
	"context"
	"fmt"
	"time"

	"chatwarden/internal/access"
	"chatwarden/internal/engine"
	"chatwarden/pkg/cmd"
)

// handlerFunc is the shape every built-in handler takes.
type handlerFunc func(ctx context.Context, mc *engine.MessageContext, args []string) error

// command implements cmd.Command plus the engine's Policy interface.
type command struct {
	name        string
	description string
	mode        access.Mode
	antiSpam    bool
	cooldown    time.Duration
	run         handlerFunc
}

func (c *command) Name() string        { return c.name }
func (c *command) Description() string { return c.description }

func (c *command) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, ok := inv.Data.(*engine.MessageContext)
	if !ok {
		return fmt.Errorf("command %s: unexpected invocation payload %T", c.name, inv.Data)
	}
	return c.run(ctx, mc, inv.Args)
}

func (c *command) AccessMode() access.Mode { return c.mode }
func (c *command) AntiSpam() bool          { return c.antiSpam }
func (c *command) Cooldown() time.Duration { return c.cooldown }
