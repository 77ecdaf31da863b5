package commands

import (
	"context"
	"fmt"

	"chatwarden/internal/engine"
)

func runSetOwner(ctx context.Context, mc *engine.MessageContext, args []string) error {
	// Changing the owner is reserved for the bot's own identity, not just
	// whoever currently passes the self gate.
	if mc.Event.Sender != mc.Settings.BotIdentity() {
		return mc.Reply(ctx, "Only the bot itself can change the owner.")
	}

	if len(args) == 0 {
		owner := mc.Settings.OwnerIdentity()
		if owner == "" {
			return mc.Reply(ctx, "No owner is set. Use: setowner <identity>.")
		}
		return mc.Reply(ctx, fmt.Sprintf("Owner is %s.", owner))
	}

	mc.Settings.SetOwnerIdentity(args[0])
	mc.Log.Info().Str("owner", args[0]).Msg("owner identity changed")
	return mc.Reply(ctx, fmt.Sprintf("Owner set to %s.", args[0]))
}
