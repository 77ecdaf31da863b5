// Package classify turns an inbound message into a routing decision:
// a command invocation, an AI-directed turn, an away-notification, or
// nothing actionable. Away notifications are checked first and, when one is
// actually delivered, win over everything else for that message.
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatwarden/internal/afk"
	"chatwarden/internal/ai"
	"chatwarden/internal/config"
	"chatwarden/internal/event"
	"chatwarden/pkg/cmd"
	"chatwarden/pkg/util"
)

// Kind is the routing decision variant. Exactly one applies per message.
type Kind int

const (
	KindIgnore Kind = iota
	KindAiTurn
	KindCommand
	KindAfkNotify
)

// String implements fmt.Stringer for logging.
func (k Kind) String() string {
	switch k {
	case KindAiTurn:
		return "ai_turn"
	case KindCommand:
		return "command"
	case KindAfkNotify:
		return "afk_notify"
	default:
		return "ignore"
	}
}

// Decision is the classifier's output. Token and Args are set for
// KindCommand; Context carries the assembled conversation context for
// KindCommand and KindAiTurn.
type Decision struct {
	Kind    Kind
	Token   string
	Args    []string
	Context string
}

// Reasoner is the slice of the reasoning collaborator the classifier needs
// to phrase away notifications.
type Reasoner interface {
	GetResponse(ctx context.Context, prompt string, opts ai.Options) string
}

// SendFunc delivers an outbound message, optionally quoting the event that
// triggered it.
type SendFunc func(ctx context.Context, chat, text, quoteRef string) error

// Classifier resolves routing decisions. All fields must be set.
type Classifier struct {
	Afk      *afk.Registry
	Reasoner Reasoner
	Send     SendFunc
	Registry *cmd.Registry
	Settings *config.Settings
	Log      zerolog.Logger
}

// Classify resolves one message. The absence short-circuit runs first: every
// identity the message references (mentions plus the quoted author, minus
// the bot and the sender) with an away record gets a notification attempt,
// each gated by its own notifier cooldown. If at least one notification is
// delivered the message is done; fully suppressed attempts fall through to
// thread-shape routing as if no absence existed.
func (c *Classifier) Classify(ctx context.Context, ev *event.Message) Decision {
	if delivered := c.notifyAbsent(ctx, ev); delivered {
		return Decision{Kind: KindAfkNotify}
	}
	return c.route(ev)
}

// notifyAbsent handles the away short-circuit and reports whether any
// notification was actually delivered.
func (c *Classifier) notifyAbsent(ctx context.Context, ev *event.Message) bool {
	botID := c.Settings.BotIdentity()

	referenced := make(map[string]struct{})
	for _, id := range ev.Mentions {
		referenced[id] = struct{}{}
	}
	if ev.Quoted != nil && ev.Quoted.Author != "" {
		referenced[ev.Quoted.Author] = struct{}{}
	}
	delete(referenced, botID)
	delete(referenced, ev.Sender)

	delivered := false
	for target := range referenced {
		rec, ok := c.Afk.Get(target)
		if !ok {
			continue
		}
		if !c.Afk.TryNotify(ev.Sender, target) {
			c.Log.Debug().
				Str("target", target).
				Str("notifier", ev.Sender).
				Msg("away notification suppressed by cooldown")
			continue
		}

		away := util.HumanDuration(time.Since(rec.Since))
		text := c.Reasoner.GetResponse(ctx, fmt.Sprintf(
			"Write a short, friendly notification that the user %s has been away for %s with the reason: %q. "+
				"It will be sent as an automated notice.",
			target, away, rec.Reason),
			ai.Options{IdentityHint: "system_afk_notifier", ChannelHint: ev.Chat})
		if text == "" {
			text = fmt.Sprintf("The user you are looking for (%s) has been away for %s. Reason: %q.",
				target, away, rec.Reason)
		}

		if err := c.Send(ctx, ev.Chat, text, ev.Ref); err != nil {
			c.Log.Error().Err(err).Str("target", target).Msg("failed to deliver away notification")
			continue
		}
		c.Afk.MarkNotified(ev.Sender, target)
		c.Log.Info().
			Str("target", target).
			Str("notifier", ev.Sender).
			Msg("away notification delivered")
		delivered = true
	}
	return delivered
}

// route applies thread-shape precedence, first match wins, then refines
// AI turns into command invocations when the text resolves to a registered
// command token.
func (c *Classifier) route(ev *event.Message) Decision {
	botID := c.Settings.BotIdentity()
	botMentioned := ev.Mentioned(botID)

	var contextText string
	switch {
	case ev.Quoted != nil && ev.Quoted.Author == botID && botID != "":
		// Replying to the bot always qualifies, mentions or not.
		contextText = ev.Text

	case ev.Quoted != nil && ev.IsGroup && botMentioned:
		if deep := ev.Quoted.Quoted; deep != nil && deep.Author != "" {
			contextText = fmt.Sprintf(
				"Earlier message from %s: %q. Then %s replied: %q. Now the current message to you: %q",
				deep.Author, deep.Text, ev.Quoted.Author, ev.Quoted.Text, ev.Text)
		} else {
			contextText = fmt.Sprintf(
				"In reply to %s's message %q, the current message to you: %q",
				ev.Quoted.Author, ev.Quoted.Text, ev.Text)
		}

	case ev.Quoted != nil:
		// Quoting someone else without addressing the bot.
		return Decision{Kind: KindIgnore}

	case ev.IsGroup && botMentioned:
		contextText = ev.Text

	case !ev.IsGroup:
		contextText = ev.Text

	default:
		return Decision{Kind: KindIgnore}
	}

	if token, args, ok := c.resolveCommand(ev.Text); ok {
		return Decision{Kind: KindCommand, Token: token, Args: args, Context: contextText}
	}
	return Decision{Kind: KindAiTurn, Context: contextText}
}

// resolveCommand strips a recognized prefix per the configured prefix mode
// and checks the leading token against the command registry.
func (c *Classifier) resolveCommand(text string) (string, []string, bool) {
	clean := strings.TrimSpace(text)

	mode := c.Settings.PrefixModeValue()
	switch mode {
	case config.PrefixNone:
		// The whole message may start with a bare command token.
	default:
		prefixes := c.Settings.Prefixes()
		if mode == config.PrefixSingle && len(prefixes) > 1 {
			prefixes = prefixes[:1]
		}
		matched := false
		lower := strings.ToLower(clean)
		for _, prefix := range prefixes {
			if strings.HasPrefix(lower, prefix) {
				clean = strings.TrimSpace(clean[len(prefix):])
				matched = true
				break
			}
		}
		if !matched {
			return "", nil, false
		}
	}

	parts := strings.Fields(clean)
	if len(parts) == 0 {
		return "", nil, false
	}
	token := strings.ToLower(parts[0])
	if c.Registry.Get(token) == nil {
		return "", nil, false
	}
	return token, parts[1:], true
}
