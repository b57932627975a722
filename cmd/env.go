package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-intel/internal/enrich"
	"github.com/sells-group/lead-intel/internal/model"
	"github.com/sells-group/lead-intel/internal/prospect"
	"github.com/sells-group/lead-intel/internal/provider"
	"github.com/sells-group/lead-intel/internal/store"
	"github.com/sells-group/lead-intel/pkg/apify"
)

// env holds the wired components shared by the serve and enrich commands.
type env struct {
	Store        store.Store
	Orchestrator *enrich.Orchestrator
}

func (e *env) Close() {
	e.Store.Close()
}

// initStore opens the job store for the configured driver.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "lead-intel.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: int32(cfg.Store.MaxConns),
			MinConns: int32(cfg.Store.MinConns),
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEngine wires the full enrichment engine. The prospect store and the
// completion outbox live in Postgres, so the engine requires that driver;
// the sqlite driver only backs the job-inspection commands.
func initEngine(ctx context.Context) (*env, error) {
	if cfg.Store.Driver != "postgres" {
		return nil, eris.Errorf("enrichment engine requires the postgres driver, got %s", cfg.Store.Driver)
	}

	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: int32(cfg.Store.MaxConns),
		MinConns: int32(cfg.Store.MinConns),
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	client := apify.NewClient(cfg.Apify.Token,
		apify.WithBaseURL(cfg.Apify.BaseURL),
		apify.WithRateLimit(cfg.Apify.RateRPS),
	)

	registry := provider.NewRegistry()
	for kindStr, actorID := range cfg.Apify.Actors {
		kind := model.JobKind(kindStr)
		if !kind.Valid() {
			zap.L().Warn("ignoring actor for unknown job kind", zap.String("kind", kindStr))
			continue
		}
		registry.Register(kind, provider.NewApifyGateway(client, actorID))
	}

	pool := st.Pool()
	orch := enrich.New(st, prospect.NewPostgresStore(pool), registry, store.NewOutbox(pool), enrich.Options{
		Workers:   cfg.Enrich.Workers,
		MaxRunAge: cfg.Enrich.MaxRunAge,
	})

	return &env{Store: st, Orchestrator: orch}, nil
}
