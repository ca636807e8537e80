package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spinabot/spinabot/internal/api"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/catalog"
	"github.com/spinabot/spinabot/internal/metrics"
	"github.com/spinabot/spinabot/internal/scheduler"
	"github.com/spinabot/spinabot/internal/session"
	"golang.org/x/sync/errgroup"
)

// sweepJob is the scheduler job that removes expired sessions.
const sweepJob = "session-sweep"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with scheduled session cleanup",
	Long: `Run the SPINABOT HTTP API in the foreground.

The server exposes the onboarding flow, the email dashboard queries and the
assistant under /api/v1, plus /health and (when enabled) /metrics.

Expired sessions are swept on [session] sweep_schedule (cron format,
default every 10 minutes). Trigger a sweep manually with
  POST /api/v1/scheduler/jobs/session-sweep/run

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Validate security posture before doing any work
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	ctx := cmd.Context()

	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	store, err := openSessionStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()
	sessions := session.NewManager(store, cfg.Session.TTL.Duration)

	tokens, err := newTokens(cfg)
	if err != nil {
		return err
	}

	cat := catalog.Default()
	flow, err := newFlow(cfg, cat)
	if err != nil {
		return err
	}

	sched := scheduler.New().WithLogger(logger)
	if err := sched.AddJob(sweepJob, cfg.Session.SweepSchedule, sweepSessions(sessions)); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}

	apiServer := api.NewServer(cfg, api.Options{
		Engine:    engine,
		Sessions:  sessions,
		Tokens:    tokens,
		Flow:      flow,
		Scheduler: sched,
		Assistant: assistantConfig(cfg),
		Script:    assistant.DefaultScript(),
		Catalog:   cat,
		Logger:    logger,
	})

	sched.Start()

	fmt.Printf("spinabot server started\n")
	fmt.Printf("  API server: http://%s\n", cfg.ListenAddr())
	fmt.Printf("  Sessions:   %s backend, ttl %s\n", cfg.Session.Backend, cfg.Session.TTL.Duration)
	fmt.Printf("  Inbox:      %d emails\n", len(engine.Emails()))
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown error", "error", err)
		}

		select {
		case <-sched.Stop().Done():
		case <-time.After(30 * time.Second):
			logger.Warn("scheduler shutdown timed out after 30 seconds")
		}
		return nil
	})

	err = g.Wait()
	if ctx.Err() != nil {
		fmt.Println("Shutdown complete.")
		return nil
	}
	return err
}

// sweepSessions removes expired sessions and publishes the live count.
func sweepSessions(m *session.Manager) scheduler.JobFunc {
	return func(ctx context.Context) error {
		n, err := m.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweep sessions: %w", err)
		}
		live, err := m.Store().List(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		metrics.SetActiveSessions(len(live))
		if n > 0 {
			logger.Info("swept expired sessions", "removed", n, "active", len(live))
		}
		return nil
	}
}
