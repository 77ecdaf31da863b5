package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"chatwarden/internal/engine"
	"chatwarden/pkg/util"
)

func runStatus(ctx context.Context, mc *engine.MessageContext, args []string) error {
	sender := mc.Event.Sender
	st := mc.Guard.Status(sender)

	var b strings.Builder
	b.WriteString("*Your status*\n")

	if st.Blacklisted {
		fmt.Fprintf(&b, "Spam block: level %d, %s remaining\n",
			st.Level, util.HumanDuration(st.BlacklistRemaining))
	} else {
		b.WriteString("Spam block: none\n")
	}

	if len(st.Cooldowns) == 0 {
		b.WriteString("Cooldowns: none\n")
	} else {
		actions := make([]string, 0, len(st.Cooldowns))
		for action := range st.Cooldowns {
			actions = append(actions, action)
		}
		sort.Strings(actions)
		b.WriteString("Cooldowns:\n")
		for _, action := range actions {
			fmt.Fprintf(&b, "  %s: %s\n", action, util.HumanDuration(st.Cooldowns[action]))
		}
	}

	if rec, ok := mc.Afk.Get(sender); ok {
		fmt.Fprintf(&b, "Away since %s (%s): %s\n",
			util.FormatDateTpl(rec.Since, "YYYY-MM-DD hh:mm"),
			util.HumanDuration(time.Since(rec.Since)),
			rec.Reason)
	} else {
		b.WriteString("Away: no\n")
	}

	return mc.Reply(ctx, strings.TrimRight(b.String(), "\n"))
}
