package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwarden/internal/afk"
	"chatwarden/internal/ai"
	"chatwarden/internal/config"
	"chatwarden/internal/event"
	"chatwarden/pkg/cmd"
)

const botID = "bot@host"

type stubReasoner struct {
	reply string
}

func (s *stubReasoner) GetResponse(ctx context.Context, prompt string, opts ai.Options) string {
	return s.reply
}

type sentMessage struct {
	Chat, Text, QuoteRef string
}

type captureSender struct {
	sent []sentMessage
	err  error
}

func (c *captureSender) send(ctx context.Context, chat, text, quoteRef string) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentMessage{Chat: chat, Text: text, QuoteRef: quoteRef})
	return nil
}

type fakeCommand struct{ name string }

func (f *fakeCommand) Name() string        { return f.name }
func (f *fakeCommand) Description() string { return "" }

func (f *fakeCommand) Run(ctx context.Context, inv *cmd.Invocation) error { return nil }

func newTestClassifier(t *testing.T) (*Classifier, *captureSender, *stubReasoner) {
	t.Helper()

	settings, err := config.NewSettings(nil, &config.Config{BotIdentity: botID}, zerolog.Nop())
	require.NoError(t, err)

	registry := cmd.NewRegistry()
	registry.Register(&fakeCommand{name: "ping"})
	registry.Register(&fakeCommand{name: "status"})

	sender := &captureSender{}
	reasoner := &stubReasoner{reply: "phrased notice"}
	c := &Classifier{
		Afk:      afk.New(nil, zerolog.Nop()),
		Reasoner: reasoner,
		Send:     sender.send,
		Registry: registry,
		Settings: settings,
		Log:      zerolog.Nop(),
	}
	return c, sender, reasoner
}

func TestRoutePrecedence(t *testing.T) {
	tests := []struct {
		name string
		ev   event.Message
		want Kind
	}{
		{
			name: "reply to bot qualifies without mentions",
			ev: event.Message{
				Sender: "alice", Chat: "group1", IsGroup: true,
				Text:   "what did you mean?",
				Quoted: &event.Quoted{Text: "earlier answer", Author: botID},
			},
			want: KindAiTurn,
		},
		{
			name: "reply to bot beats mention routing",
			ev: event.Message{
				Sender: "alice", Chat: "group1", IsGroup: true,
				Text:     "what did you mean?",
				Mentions: []string{botID},
				Quoted:   &event.Quoted{Text: "earlier answer", Author: botID},
			},
			want: KindAiTurn,
		},
		{
			name: "quoting a third party with bot mentioned qualifies",
			ev: event.Message{
				Sender: "alice", Chat: "group1", IsGroup: true,
				Text:     "is this right?",
				Mentions: []string{botID},
				Quoted:   &event.Quoted{Text: "the claim", Author: "carol"},
			},
			want: KindAiTurn,
		},
		{
			name: "quoting a third party without addressing the bot is ignored",
			ev: event.Message{
				Sender: "alice", Chat: "group1", IsGroup: true,
				Text:   "lol",
				Quoted: &event.Quoted{Text: "the claim", Author: "carol"},
			},
			want: KindIgnore,
		},
		{
			name: "group mention qualifies",
			ev: event.Message{
				Sender: "alice", Chat: "group1", IsGroup: true,
				Text:     "hello there",
				Mentions: []string{botID},
			},
			want: KindAiTurn,
		},
		{
			name: "group chatter without mention is ignored",
			ev: event.Message{
				Sender: "alice", Chat: "group1", IsGroup: true,
				Text: "hello there",
			},
			want: KindIgnore,
		},
		{
			name: "direct message always qualifies",
			ev: event.Message{
				Sender: "alice", Chat: "alice",
				Text: "hello there",
			},
			want: KindAiTurn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestClassifier(t)
			d := c.Classify(context.Background(), &tt.ev)
			assert.Equal(t, tt.want, d.Kind)
		})
	}
}

func TestRouteContextAssembly(t *testing.T) {
	c, _, _ := newTestClassifier(t)

	// Reply to the bot carries the raw text only.
	d := c.Classify(context.Background(), &event.Message{
		Sender: "alice", Chat: "group1", IsGroup: true,
		Text:   "explain again",
		Quoted: &event.Quoted{Text: "earlier answer", Author: botID},
	})
	require.Equal(t, KindAiTurn, d.Kind)
	assert.Equal(t, "explain again", d.Context)

	// Quoting a third party assembles a two-part context.
	d = c.Classify(context.Background(), &event.Message{
		Sender: "alice", Chat: "group1", IsGroup: true,
		Text:     "is this right?",
		Mentions: []string{botID},
		Quoted:   &event.Quoted{Text: "the claim", Author: "carol"},
	})
	require.Equal(t, KindAiTurn, d.Kind)
	assert.Contains(t, d.Context, "the claim")
	assert.Contains(t, d.Context, "carol")
	assert.Contains(t, d.Context, "is this right?")

	// A nested quote assembles a three-part context.
	d = c.Classify(context.Background(), &event.Message{
		Sender: "alice", Chat: "group1", IsGroup: true,
		Text:     "who is right?",
		Mentions: []string{botID},
		Quoted: &event.Quoted{
			Text:   "no it is not",
			Author: "carol",
			Quoted: &event.Quoted{Text: "it is blue", Author: "dave"},
		},
	})
	require.Equal(t, KindAiTurn, d.Kind)
	assert.Contains(t, d.Context, "it is blue")
	assert.Contains(t, d.Context, "dave")
	assert.Contains(t, d.Context, "no it is not")
	assert.Contains(t, d.Context, "who is right?")
}

func TestCommandRefinement(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantKind Kind
		token    string
		args     []string
	}{
		{"prefixed command", "!ping now please", KindCommand, "ping", []string{"now", "please"}},
		{"alternate prefix", "#status", KindCommand, "status", nil},
		{"case insensitive token", "!PING", KindCommand, "ping", nil},
		{"unregistered token stays an ai turn", "!frobnicate", KindAiTurn, "", nil},
		{"unprefixed text stays an ai turn", "ping me later", KindAiTurn, "", nil},
		{"bare prefix resolves nothing", "!", KindAiTurn, "", nil},
		{"prefix with spaces", "  ! ping  ", KindCommand, "ping", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestClassifier(t)
			d := c.Classify(context.Background(), &event.Message{
				Sender: "alice", Chat: "alice", Text: tt.text,
			})
			require.Equal(t, tt.wantKind, d.Kind)
			assert.Equal(t, tt.token, d.Token)
			if len(tt.args) > 0 {
				assert.Equal(t, tt.args, d.Args)
			} else {
				assert.Empty(t, d.Args)
			}
		})
	}
}

func TestCommandRefinementOnReplyToBot(t *testing.T) {
	c, _, _ := newTestClassifier(t)

	d := c.Classify(context.Background(), &event.Message{
		Sender: "alice", Chat: "group1", IsGroup: true,
		Text:   "!status",
		Quoted: &event.Quoted{Text: "earlier answer", Author: botID},
	})
	assert.Equal(t, KindCommand, d.Kind)
	assert.Equal(t, "status", d.Token)
}

func TestCommandRefinementPrefixModes(t *testing.T) {
	c, _, _ := newTestClassifier(t)
	dm := func(text string) *event.Message {
		return &event.Message{Sender: "alice", Chat: "alice", Text: text}
	}

	require.NoError(t, c.Settings.SetPrefixMode(config.PrefixSingle))
	assert.Equal(t, KindCommand, c.Classify(context.Background(), dm("!ping")).Kind)
	assert.Equal(t, KindAiTurn, c.Classify(context.Background(), dm("#ping")).Kind,
		"single mode only honors the first configured prefix")

	require.NoError(t, c.Settings.SetPrefixMode(config.PrefixNone))
	assert.Equal(t, KindCommand, c.Classify(context.Background(), dm("ping")).Kind)
	assert.Equal(t, KindAiTurn, c.Classify(context.Background(), dm("!ping")).Kind,
		"no-prefix mode takes the bare leading token only")
}

func TestAbsenceShortCircuit(t *testing.T) {
	c, sender, _ := newTestClassifier(t)
	c.Afk.SetAbsent("carol", "vacation")

	// Mentioning the away user wins over routing, even though the group
	// message would otherwise be ignored.
	ev := &event.Message{
		Sender: "bob", Chat: "group1", IsGroup: true,
		Text:     "hey @carol are you around?",
		Mentions: []string{"carol"},
		Ref:      "msg-1",
	}
	d := c.Classify(context.Background(), ev)
	assert.Equal(t, KindAfkNotify, d.Kind)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "group1", sender.sent[0].Chat)
	assert.Equal(t, "phrased notice", sender.sent[0].Text)
	assert.Equal(t, "msg-1", sender.sent[0].QuoteRef)

	rec, ok := c.Afk.Get("carol")
	require.True(t, ok)
	assert.Contains(t, rec.LastNotified, "bob")

	// The same notifier is now on cooldown: the attempt is suppressed and
	// the message falls through to routing as if nobody were away.
	d = c.Classify(context.Background(), ev)
	assert.Equal(t, KindIgnore, d.Kind)
	assert.Len(t, sender.sent, 1)
}

func TestAbsenceNotifyViaQuotedAuthor(t *testing.T) {
	c, sender, _ := newTestClassifier(t)
	c.Afk.SetAbsent("carol", "vacation")

	d := c.Classify(context.Background(), &event.Message{
		Sender: "bob", Chat: "group1", IsGroup: true,
		Text:   "any update on this?",
		Quoted: &event.Quoted{Text: "I'll check tomorrow", Author: "carol"},
	})
	assert.Equal(t, KindAfkNotify, d.Kind)
	assert.Len(t, sender.sent, 1)
}

func TestAbsenceExcludesBotAndSender(t *testing.T) {
	c, sender, _ := newTestClassifier(t)
	c.Afk.SetAbsent(botID, "maintenance")
	c.Afk.SetAbsent("bob", "lunch")

	// Neither the bot's own record nor the sender's record triggers a
	// notification; the message routes normally.
	d := c.Classify(context.Background(), &event.Message{
		Sender: "bob", Chat: "group1", IsGroup: true,
		Text:     "ping @me and the bot",
		Mentions: []string{botID, "bob"},
	})
	assert.Equal(t, KindAiTurn, d.Kind)
	assert.Empty(t, sender.sent)
}

func TestAbsenceTemplateFallback(t *testing.T) {
	c, sender, reasoner := newTestClassifier(t)
	reasoner.reply = ""
	c.Afk.SetAbsent("carol", "vacation")

	d := c.Classify(context.Background(), &event.Message{
		Sender: "bob", Chat: "group1", IsGroup: true,
		Text:     "@carol?",
		Mentions: []string{"carol"},
	})
	assert.Equal(t, KindAfkNotify, d.Kind)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "carol")
	assert.Contains(t, sender.sent[0].Text, "has been away")
	assert.Contains(t, sender.sent[0].Text, "vacation")
}

func TestAbsenceDeliveryFailure(t *testing.T) {
	c, sender, _ := newTestClassifier(t)
	sender.err = errors.New("transport down")
	c.Afk.SetAbsent("carol", "vacation")

	ev := &event.Message{
		Sender: "bob", Chat: "group1", IsGroup: true,
		Text:     "@carol?",
		Mentions: []string{"carol"},
	}

	// Delivery failed: not an AfkNotify, and the delivery is never marked.
	d := c.Classify(context.Background(), ev)
	assert.Equal(t, KindIgnore, d.Kind)
	rec, _ := c.Afk.Get("carol")
	assert.NotContains(t, rec.LastNotified, "bob")

	// The permitted attempt still armed the cooldown: the retry is
	// suppressed even though nothing was ever delivered.
	sender.err = nil
	d = c.Classify(context.Background(), ev)
	assert.Equal(t, KindIgnore, d.Kind)
	assert.Empty(t, sender.sent)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ignore", KindIgnore.String())
	assert.Equal(t, "ai_turn", KindAiTurn.String())
	assert.Equal(t, "command", KindCommand.String())
	assert.Equal(t, "afk_notify", KindAfkNotify.String())
}
