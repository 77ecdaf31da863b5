// Package transport contains channel adapters. The console adapter is the
// reference implementation: stdin lines become direct messages, outbound
// messages print to stdout. Network adapters implement the same two
// surfaces.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatwarden/internal/engine"
	"chatwarden/internal/event"
)

// ConsoleChat is the chat identifier the console adapter reports for every
// inbound line.
const ConsoleChat = "console"

// Console is a stdin/stdout transport for local runs.
type Console struct {
	in       io.Reader
	out      io.Writer
	identity string
	log      zerolog.Logger
}

// NewConsole returns a console transport. Lines typed on stdin arrive as
// direct messages from identity.
func NewConsole(identity string, log zerolog.Logger) *Console {
	return &Console{
		in:       os.Stdin,
		out:      os.Stdout,
		identity: identity,
		log:      log.With().Str("component", "console").Logger(),
	}
}

// Send prints the outbound message. A quote reference is shown inline since
// the console has no native reply threading.
func (c *Console) Send(ctx context.Context, chat, text string, opts *engine.SendOptions) error {
	prefix := fmt.Sprintf("[%s]", chat)
	if opts != nil && opts.QuoteRef != "" {
		prefix += fmt.Sprintf(" (re %s)", opts.QuoteRef)
	}
	_, err := fmt.Fprintf(c.out, "%s %s\n", prefix, text)
	if err != nil {
		return fmt.Errorf("console write: %w", err)
	}
	return nil
}

// Listen reads stdin until EOF or ctx cancellation, handing each non-empty
// line to handle as a direct message.
func (c *Console) Listen(ctx context.Context, handle func(context.Context, *event.Message)) error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		handle(ctx, &event.Message{
			Sender:    c.identity,
			Chat:      ConsoleChat,
			Text:      line,
			Ref:       uuid.NewString(),
			Timestamp: time.Now(),
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("console read: %w", err)
	}
	c.log.Info().Msg("console input closed")
	return nil
}
