package commands

import (
	"context"
	"fmt"

	"chatwarden/internal/engine"
)

func runPing(ctx context.Context, mc *engine.MessageContext, args []string) error {
	if err := mc.Reply(ctx, "Pong!"); err != nil {
		return fmt.Errorf("ping reply: %w", err)
	}
	return nil
}
