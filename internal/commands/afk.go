package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatwarden/internal/engine"
	"chatwarden/pkg/util"
)

func runAfk(ctx context.Context, mc *engine.MessageContext, args []string) error {
	sender := mc.Event.Sender

	if len(args) > 0 {
		reason := strings.Join(args, " ")
		mc.Afk.SetAbsent(sender, reason)
		return mc.Reply(ctx, fmt.Sprintf("You are now marked away: %s", reason))
	}

	if rec, ok := mc.Afk.Get(sender); ok {
		mc.Afk.ClearAbsent(sender)
		away := util.HumanDuration(time.Since(rec.Since))
		return mc.Reply(ctx, fmt.Sprintf("Welcome back! You were away for %s.", away))
	}

	return mc.Reply(ctx, "Usage: afk <reason> to go away, afk to come back.")
}
