package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/catalog"
	"github.com/spinabot/spinabot/internal/config"
	"github.com/spinabot/spinabot/internal/dataset"
	"github.com/spinabot/spinabot/internal/onboard"
	"github.com/spinabot/spinabot/internal/query"
	"github.com/spinabot/spinabot/internal/secret"
	"github.com/spinabot/spinabot/internal/session"
	"github.com/spinabot/spinabot/internal/simulate"
)

// openEngine generates the demo inbox from the [dataset] section. A zero
// seed is replaced with a time-based one so each run differs.
func openEngine(c *config.Config) (*query.MemoryEngine, error) {
	anchor, err := c.Dataset.AnchorTime()
	if err != nil {
		return nil, err
	}
	seed := c.Dataset.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	emails := dataset.Generate(dataset.Options{Size: c.Dataset.Size, Seed: seed, Anchor: anchor})
	logger.Debug("generated inbox", "emails", len(emails), "seed", seed)
	return query.NewMemoryEngine(emails), nil
}

// delayer scales the simulated latency by [simulation] delay_scale.
func delayer(c *config.Config) simulate.Delayer {
	return simulate.Delayer{Scale: c.Simulation.DelayScale}
}

func assistantConfig(c *config.Config) assistant.Config {
	return assistant.Config{Delayer: delayer(c), Logger: logger}
}

func searchMode(c *config.Config) query.SearchMode {
	// Validate already rejected unknown modes.
	m, _ := query.ParseSearchMode(c.Dashboard.SearchMode)
	return m
}

// newFlow builds the onboarding flow, sealing credentials when a
// credential key is configured.
func newFlow(c *config.Config, cat *catalog.Catalog) (*onboard.Flow, error) {
	var sealer *secret.Sealer
	if key := c.Security.CredentialKey; key != "" {
		var err error
		if sealer, err = secret.NewSealer(key); err != nil {
			return nil, fmt.Errorf("credential key: %w", err)
		}
	} else {
		logger.Warn("no [security] credential_key configured; integration credentials are stored unsealed")
	}
	return onboard.New(onboard.Config{
		Catalog: cat,
		Delayer: delayer(c),
		Sealer:  sealer,
		Logger:  logger,
	}), nil
}

// openSessionStore opens the backend named by [session] backend.
func openSessionStore(ctx context.Context, c *config.Config) (session.Store, error) {
	switch c.Session.Backend {
	case config.BackendSQLite:
		st, err := session.OpenSQLite(c.SessionDBPath())
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendRedis:
		st, err := session.OpenRedis(ctx, session.RedisOptions{
			Addr:     c.Session.RedisAddr,
			Password: c.Session.RedisPassword,
			DB:       c.Session.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return session.NewMemoryStore(), nil
	}
}

// newTokens signs session tokens with [session] token_secret, or a random
// per-process secret when unset.
func newTokens(c *config.Config) (*session.Tokens, error) {
	secretKey := c.Session.TokenSecret
	if secretKey == "" {
		var err error
		if secretKey, err = session.RandomSecret(); err != nil {
			return nil, err
		}
		logger.Info("no [session] token_secret configured; sessions will not survive a restart")
	}
	return session.NewTokens(secretKey)
}
