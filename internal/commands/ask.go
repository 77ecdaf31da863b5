package commands

import (
	"context"
	"strings"

	"chatwarden/internal/ai"
	"chatwarden/internal/engine"
)

func runAsk(ctx context.Context, mc *engine.MessageContext, args []string) error {
	if len(args) == 0 {
		return mc.Reply(ctx, "Usage: ask <question>")
	}

	prompt := strings.Join(args, " ")
	_ = mc.Reply(ctx, "Thinking...")

	reply := mc.AI.GetResponse(ctx, prompt, ai.Options{
		IdentityHint:  mc.Event.Sender,
		ChannelHint:   mc.Event.Chat,
		VerboseErrors: mc.Settings.Verbose(),
	})
	if reply == "" {
		if mc.Settings.Verbose() {
			return mc.Reply(ctx, "Sorry, I cannot respond right now.")
		}
		return nil
	}
	return mc.Reply(ctx, reply)
}
