// Package middleware holds cross-cutting command wrappers.
package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"chatwarden/pkg/cmd"
)

// WithCommandLogger logs every command invocation with its duration and
// outcome.
func WithCommandLogger(log zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)
			evt := log.Info()
			if err != nil {
				evt = log.Error().Err(err)
			}
			evt.
				Str("command", c.Name()).
				Int("args", len(inv.Args)).
				Dur("took", time.Since(start)).
				Msg("command executed")
			return err
		})
	}
}

// WithRecovery converts a panicking command into an error so one bad
// handler cannot take down the event loop.
func WithRecovery(log zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("command", c.Name()).
						Msg("command panicked")
					err = &PanicError{Command: c.Name(), Value: r}
				}
			}()
			return c.Run(ctx, inv)
		})
	}
}

// PanicError reports a recovered panic from a command handler.
type PanicError struct {
	Command string
	Value   interface{}
}

func (e *PanicError) Error() string {
	return "command " + e.Command + " panicked"
}
