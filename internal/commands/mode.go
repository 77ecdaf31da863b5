package commands

import (
	"context"
	"fmt"

	"chatwarden/internal/access"
	"chatwarden/internal/engine"
)

func runMode(ctx context.Context, mc *engine.MessageContext, args []string) error {
	if len(args) == 0 {
		return mc.Reply(ctx, fmt.Sprintf("Access mode is *%s*. Use: mode <self|public>.", mc.Settings.AccessMode()))
	}

	mode := access.Mode(args[0])
	if err := mc.Settings.SetAccessMode(mode); err != nil {
		return mc.Reply(ctx, fmt.Sprintf("Unknown mode %q. Use: mode <self|public>.", args[0]))
	}
	mc.Log.Info().Str("mode", string(mode)).Str("by", mc.Event.Sender).Msg("access mode changed")
	return mc.Reply(ctx, fmt.Sprintf("Access mode set to *%s*.", mode))
}
