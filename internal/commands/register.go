package commands

import (
	"time"

	"github.com/rs/zerolog"

	"chatwarden/internal/access"
	"chatwarden/internal/middleware"
	"chatwarden/pkg/cmd"
)

// All returns the built-in command set. Registration is data assembled
// here, not discovered at runtime.
func All() []cmd.Command {
	return []cmd.Command{
		&command{
			name:        "ping",
			description: "Check whether the bot is alive.",
			mode:        access.ModePublic,
			antiSpam:    true,
			cooldown:    3 * time.Second,
			run:         runPing,
		},
		&command{
			name:        "ask",
			description: "Ask the assistant a question.",
			mode:        access.ModePublic,
			antiSpam:    true,
			cooldown:    10 * time.Second,
			run:         runAsk,
		},
		&command{
			name:        "afk",
			description: "Mark yourself away, or come back.",
			mode:        access.ModePublic,
			antiSpam:    true,
			cooldown:    5 * time.Second,
			run:         runAfk,
		},
		&command{
			name:        "status",
			description: "Show your cooldowns, blacklist state, and away status.",
			mode:        access.ModePublic,
			antiSpam:    true,
			cooldown:    5 * time.Second,
			run:         runStatus,
		},
		&command{
			name:        "mode",
			description: "Show or change who the bot answers to.",
			mode:        access.ModeSelf,
			antiSpam:    false,
			cooldown:    time.Second,
			run:         runMode,
		},
		&command{
			name:        "setowner",
			description: "Show or change the owner identity.",
			mode:        access.ModeSelf,
			antiSpam:    false,
			cooldown:    time.Second,
			run:         runSetOwner,
		},
		&command{
			name:        "remind",
			description: "Schedule, list, or cancel recurring reminders.",
			mode:        access.ModePublic,
			antiSpam:    true,
			cooldown:    5 * time.Second,
			run:         runRemind,
		},
	}
}

// Register installs the built-in set into reg with the standard middleware
// chain applied.
func Register(reg *cmd.Registry, log zerolog.Logger) {
	for _, c := range All() {
		reg.Register(cmd.Apply(c,
			middleware.WithRecovery(log),
			middleware.WithCommandLogger(log),
		))
	}
}
