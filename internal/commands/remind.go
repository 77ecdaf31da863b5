package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatwarden/internal/engine"
	"chatwarden/pkg/util"
)

// ReminderTask is the scheduler handler name reminders run under. The
// composition root binds it to a handler that delivers the payload text.
const ReminderTask = "remind"

const remindUsage = "Usage: remind <every> <text>, remind list, remind cancel <id>. Intervals look like 30s, 10m, 2h."

func runRemind(ctx context.Context, mc *engine.MessageContext, args []string) error {
	if mc.Scheduler == nil {
		return mc.Reply(ctx, "Reminders are not available.")
	}
	if len(args) == 0 {
		return mc.Reply(ctx, remindUsage)
	}

	switch strings.ToLower(args[0]) {
	case "list":
		return remindList(ctx, mc)
	case "cancel":
		if len(args) < 2 {
			return mc.Reply(ctx, remindUsage)
		}
		if !mc.Scheduler.Cancel(args[1]) {
			return mc.Reply(ctx, fmt.Sprintf("No reminder with id %s.", args[1]))
		}
		return mc.Reply(ctx, "Reminder cancelled.")
	}

	if len(args) < 2 {
		return mc.Reply(ctx, remindUsage)
	}
	every, err := time.ParseDuration(args[0])
	if err != nil {
		return mc.Reply(ctx, fmt.Sprintf("Cannot read interval %q. %s", args[0], remindUsage))
	}

	text := strings.Join(args[1:], " ")
	task, err := mc.Scheduler.Schedule(ReminderTask, every, map[string]string{
		"chat": mc.Event.Chat,
		"text": text,
	})
	if err != nil {
		return mc.Reply(ctx, fmt.Sprintf("Cannot schedule that: %v", err))
	}
	return mc.Reply(ctx, fmt.Sprintf("Reminder %s set: every %s, %q.",
		task.ID, util.HumanDuration(every), text))
}

func remindList(ctx context.Context, mc *engine.MessageContext) error {
	tasks := mc.Scheduler.Tasks()

	var lines []string
	for _, t := range tasks {
		if t.Name != ReminderTask || t.Payload["chat"] != mc.Event.Chat {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: every %s, %q",
			t.ID, util.HumanDuration(t.Every), t.Payload["text"]))
	}
	if len(lines) == 0 {
		return mc.Reply(ctx, "No reminders in this chat.")
	}
	return mc.Reply(ctx, "*Reminders*\n"+strings.Join(lines, "\n"))
}
