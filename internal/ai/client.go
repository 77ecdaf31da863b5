package ai

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chatwarden/pkg/retrylimit"
)

// Options tune one GetResponse call.
type Options struct {
	IdentityHint  string      // who the answer is for, passed through to logs
	ChannelHint   string      // where the conversation happens
	VerboseErrors bool        // whether the caller intends to surface failures to the user
	OnDevError    func(error) // developer-facing error hook, may be nil
}

// Client wraps a Provider with adaptive rate limiting and retries, and
// normalizes failures into the "no answer" convention: an empty string with
// a nil error means the collaborator had nothing to say, and the caller
// decides what, if anything, the user sees.
type Client struct {
	provider Provider
	limiter  *retrylimit.AdaptiveLimiter
	log      zerolog.Logger
}

// NewClient creates a Client around provider.
func NewClient(provider Provider, log zerolog.Logger) *Client {
	return &Client{
		provider: provider,
		limiter:  retrylimit.NewAdaptiveLimiter(2, 1, 10, 1, 0.5),
		log:      log.With().Str("component", "ai").Logger(),
	}
}

// GetResponse asks the reasoning collaborator for a reply to prompt.
// Failures are logged (and reported through opts.OnDevError) and come back
// as the empty string; the client never propagates a generation error to
// the event pipeline.
func (c *Client) GetResponse(ctx context.Context, prompt string, opts Options) string {
	start := time.Now()

	var reply string
	err := retrylimit.WithRetry(ctx, func() error {
		var genErr error
		reply, genErr = c.provider.Generate(ctx, []Message{
			{Role: "user", Content: prompt},
		})
		return genErr
	}, c.limiter)

	if err != nil {
		c.log.Error().
			Err(err).
			Str("identity", opts.IdentityHint).
			Str("channel", opts.ChannelHint).
			Bool("verbose_errors", opts.VerboseErrors).
			Msg("reasoning request failed")
		if opts.OnDevError != nil {
			opts.OnDevError(err)
		}
		return ""
	}

	c.log.Debug().
		Str("identity", opts.IdentityHint).
		Dur("latency", time.Since(start)).
		Msg("reasoning reply received")
	return reply
}
