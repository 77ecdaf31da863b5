// Package engine runs the per-event pipeline: classification, authorization,
// rate governance, and dispatch to either a command handler or the reasoning
// collaborator. Events are processed one at a time; every failure is
// contained at the event boundary.
package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"chatwarden/internal/access"
	"chatwarden/internal/afk"
	"chatwarden/internal/ai"
	"chatwarden/internal/classify"
	"chatwarden/internal/config"
	"chatwarden/internal/event"
	"chatwarden/internal/guard"
	"chatwarden/internal/schedule"
	"chatwarden/pkg/cmd"
)

// Engine wires the pipeline stages together.
type Engine struct {
	transport  Transport
	classifier *classify.Classifier
	guard      *guard.Guard
	afk        *afk.Registry
	ai         *ai.Client
	settings   *config.Settings
	registry   *cmd.Registry
	scheduler  *schedule.Scheduler
	log        zerolog.Logger
}

// Deps are the collaborators an Engine needs. Scheduler may be nil.
type Deps struct {
	Transport Transport
	AI        *ai.Client
	Guard     *guard.Guard
	Afk       *afk.Registry
	Settings  *config.Settings
	Registry  *cmd.Registry
	Scheduler *schedule.Scheduler
	Log       zerolog.Logger
}

// New builds an Engine and its classifier.
func New(d Deps) *Engine {
	e := &Engine{
		transport: d.Transport,
		guard:     d.Guard,
		afk:       d.Afk,
		ai:        d.AI,
		settings:  d.Settings,
		registry:  d.Registry,
		scheduler: d.Scheduler,
		log:       d.Log.With().Str("component", "engine").Logger(),
	}
	e.classifier = &classify.Classifier{
		Afk:      d.Afk,
		Reasoner: d.AI,
		Send: func(ctx context.Context, chat, text, quoteRef string) error {
			return d.Transport.Send(ctx, chat, text, &SendOptions{QuoteRef: quoteRef})
		},
		Registry: d.Registry,
		Settings: d.Settings,
		Log:      d.Log.With().Str("component", "classify").Logger(),
	}
	return e
}

// HandleMessage processes one inbound event. It never panics and never
// returns an error: whatever goes wrong is logged and the next event
// proceeds untouched.
func (e *Engine) HandleMessage(ctx context.Context, ev *event.Message) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Interface("panic", r).
				Str("sender", ev.Sender).
				Msg("event handler panicked")
		}
	}()

	if err := e.handle(ctx, ev); err != nil {
		e.log.Warn().
			Err(err).
			Str("sender", ev.Sender).
			Str("chat", ev.Chat).
			Msg("event not processed")
	}
}

func (e *Engine) handle(ctx context.Context, ev *event.Message) error {
	decision := e.classifier.Classify(ctx, ev)
	e.log.Debug().
		Stringer("kind", decision.Kind).
		Str("token", decision.Token).
		Str("sender", ev.Sender).
		Msg("message classified")

	if decision.Kind == classify.KindIgnore || decision.Kind == classify.KindAfkNotify {
		// Nothing further: either not addressed to the bot, or the away
		// notification already went out.
		return nil
	}

	roles := access.Roles{
		Owner:   e.settings.OwnerIdentity(),
		BotSelf: e.settings.BotIdentity(),
	}
	if !access.Allowed(ev.Sender, roles, e.settings.AccessMode()) {
		e.log.Info().Str("sender", ev.Sender).Msg("sender rejected by global access mode")
		return fmt.Errorf("%w: global mode %s", ErrAccessDenied, e.settings.AccessMode())
	}

	if decision.Kind == classify.KindCommand {
		return e.dispatchCommand(ctx, ev, decision, roles)
	}
	return e.dispatchAiTurn(ctx, ev, decision)
}

// dispatchCommand runs the per-command gate, the rate governor, and finally
// the handler. A governor block or gate denial counts as handled: the
// message never falls through to AI-turn processing.
func (e *Engine) dispatchCommand(ctx context.Context, ev *event.Message, d classify.Decision, roles access.Roles) error {
	command := e.registry.Get(d.Token)
	if command == nil {
		// The classifier only refines to KindCommand for registered tokens,
		// so this is a registry change racing the event.
		return e.dispatchAiTurn(ctx, ev, d)
	}

	policy, _ := cmd.Root(command).(Policy)
	mode := access.ModePublic
	antiSpam := false
	cooldown := guard.DefaultCooldown
	if policy != nil {
		mode = policy.AccessMode()
		antiSpam = policy.AntiSpam()
		cooldown = policy.Cooldown()
	}

	if !access.Allowed(ev.Sender, roles, mode) {
		e.log.Warn().
			Str("command", d.Token).
			Str("sender", ev.Sender).
			Msg("command rejected by access mode")
		if mode == access.ModeSelf && e.settings.Verbose() {
			e.send(ctx, ev, "Sorry, this command is restricted to the bot owner.")
		}
		return fmt.Errorf("%w: command %s", ErrAccessDenied, d.Token)
	}

	res := e.guard.Check(ev.Sender, d.Token, antiSpam, cooldown)
	if !res.Allowed {
		if res.Message != "" && e.settings.Verbose() {
			e.send(ctx, ev, res.Message)
		}
		e.log.Warn().
			Str("command", d.Token).
			Str("sender", ev.Sender).
			Dur("cooldown_remaining", res.CooldownRemaining).
			Dur("blacklist_remaining", res.BlacklistRemaining).
			Msg("command blocked by rate governor")
		return fmt.Errorf("%w: command %s", ErrGuardBlocked, d.Token)
	}

	mc := &MessageContext{
		Event:     ev,
		Transport: e.transport,
		AI:        e.ai,
		Guard:     e.guard,
		Afk:       e.afk,
		Settings:  e.settings,
		Scheduler: e.scheduler,
		Log:       e.log,
	}
	if err := command.Run(ctx, &cmd.Invocation{Args: d.Args, Data: mc}); err != nil {
		e.log.Error().Err(err).Str("command", d.Token).Msg("command failed")
		e.send(ctx, ev, fmt.Sprintf("Sorry, something went wrong running *%s*: %v", d.Token, err))
	}
	return nil
}

// dispatchAiTurn forwards the assembled context to the reasoning
// collaborator and relays the answer.
func (e *Engine) dispatchAiTurn(ctx context.Context, ev *event.Message, d classify.Decision) error {
	e.send(ctx, ev, "Thinking...")

	reply := e.ai.GetResponse(ctx, d.Context, ai.Options{
		IdentityHint:  ev.Sender,
		ChannelHint:   ev.Chat,
		VerboseErrors: e.settings.Verbose(),
	})
	if reply == "" {
		if e.settings.Verbose() {
			e.send(ctx, ev, "Sorry, I cannot respond right now.")
		}
		return ErrReasoningUnavailable
	}

	if err := e.transport.Send(ctx, ev.Chat, reply, &SendOptions{QuoteRef: ev.Ref}); err != nil {
		e.log.Error().Err(err).Str("chat", ev.Chat).Msg("failed to deliver reply")
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	return nil
}

// send delivers a user-facing notice, logging delivery failures and nothing
// more; notices are best-effort.
func (e *Engine) send(ctx context.Context, ev *event.Message, text string) {
	if err := e.transport.Send(ctx, ev.Chat, text, &SendOptions{QuoteRef: ev.Ref}); err != nil {
		e.log.Error().Err(err).Str("chat", ev.Chat).Msg("failed to send notice")
	}
}
