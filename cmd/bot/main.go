// cmd/bot/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatwarden/datastore"
	"chatwarden/internal/afk"
	"chatwarden/internal/ai"
	"chatwarden/internal/commands"
	"chatwarden/internal/config"
	"chatwarden/internal/engine"
	"chatwarden/internal/guard"
	"chatwarden/internal/logging"
	"chatwarden/internal/schedule"
	"chatwarden/internal/transport"
	"chatwarden/pkg/cmd"
	"chatwarden/pkg/jobmgr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogPath, cfg.LogLevel)
	log.Info().Msg("starting chatwarden")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := datastore.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("open datastore: %w", err)
	}
	defer store.Close()

	settings, err := config.NewSettings(store, cfg, log)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	g := guard.New(log, settings.AntiSpamGlobal)
	go g.RunCleaner(ctx)

	absences := afk.New(store, log)

	provider := ai.NewOpenAIProvider(cfg.AIBaseURL, cfg.AIModel)
	aiClient := ai.NewClient(provider, log)

	jobs := jobmgr.NewManager(func(msg string) {
		log.Debug().Str("job", msg).Msg("job status")
	})

	scheduler, err := schedule.New(store, jobs, settings.SchedulePollingInterval, log)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	console := transport.NewConsole(consoleIdentity(settings.OwnerIdentity()), log)

	registry := cmd.NewRegistry()
	commands.Register(registry, log)

	eng := engine.New(engine.Deps{
		Transport: console,
		AI:        aiClient,
		Guard:     g,
		Afk:       absences,
		Settings:  settings,
		Registry:  registry,
		Scheduler: scheduler,
		Log:       log,
	})

	scheduler.RegisterHandler(commands.ReminderTask, func(ctx context.Context, t schedule.Task) error {
		return console.Send(ctx, t.Payload["chat"], "Reminder: "+t.Payload["text"], nil)
	})
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer jobs.StopAll()

	errCh := make(chan error, 1)
	go func() {
		if err := console.Listen(ctx, eng.HandleMessage); err != nil && err != context.Canceled {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("transport error")
		}
		cancel()
	case <-ctx.Done():
	}

	log.Info().Msg("chatwarden exited cleanly")
	return nil
}

// consoleIdentity picks whose messages stdin lines count as. Console input
// speaks as the owner so it passes both access gates; with no owner
// configured it arrives as a generic local user.
func consoleIdentity(owner string) string {
	if owner != "" {
		return owner
	}
	return "local"
}
