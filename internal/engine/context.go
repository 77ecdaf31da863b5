package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chatwarden/internal/access"
	"chatwarden/internal/afk"
	"chatwarden/internal/ai"
	"chatwarden/internal/config"
	"chatwarden/internal/event"
	"chatwarden/internal/guard"
	"chatwarden/internal/schedule"
)

// Policy declares a command's access and throttling metadata. Commands that
// do not implement it default to public access, no anti-spam, and the
// guard's default cooldown.
type Policy interface {
	AccessMode() access.Mode
	AntiSpam() bool
	Cooldown() time.Duration
}

// MessageContext is what the engine hands a command handler through the
// invocation payload: the triggering event plus the services a handler may
// use.
type MessageContext struct {
	Event     *event.Message
	Transport Transport
	AI        *ai.Client
	Guard     *guard.Guard
	Afk       *afk.Registry
	Settings  *config.Settings
	Scheduler *schedule.Scheduler
	Log       zerolog.Logger
}

// Reply sends text to the chat the event came from, quoting the event.
func (m *MessageContext) Reply(ctx context.Context, text string) error {
	return m.Transport.Send(ctx, m.Event.Chat, text, &SendOptions{QuoteRef: m.Event.Ref})
}
