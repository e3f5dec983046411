package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ersonp/canon-core/internal/application/handlers"
	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
	"github.com/ersonp/canon-core/internal/domain/services"
	qdrant "github.com/ersonp/canon-core/internal/infrastructure/claimindex/qdrant"
	"github.com/ersonp/canon-core/internal/infrastructure/config"
	embedder "github.com/ersonp/canon-core/internal/infrastructure/embedder/openai"
	"github.com/ersonp/canon-core/internal/infrastructure/entitystore/fsjson"
	"github.com/ersonp/canon-core/internal/infrastructure/eventlog"
	"github.com/ersonp/canon-core/internal/infrastructure/schema"
	sqlite "github.com/ersonp/canon-core/internal/infrastructure/searchindex/sqlite"
	semantic "github.com/ersonp/canon-core/internal/infrastructure/semantic/openai"
	"github.com/ersonp/canon-core/internal/infrastructure/snapshots"
)

// Deps holds high-level dependencies for commands. Only handlers and
// services are exposed; repositories stay internal.
type Deps struct {
	Config    *config.Config
	Worlds    *config.WorldsConfig
	Mutation  *handlers.MutationHandler
	Query     *handlers.QueryHandler
	Audit     *handlers.AuditHandler
	Sessions  *services.Sessions
	Chronicle *services.Chronicle
}

// internalDeps holds all dependencies including low-level components.
type internalDeps struct {
	Deps
	repo      *fsjson.Store
	registry  *schema.Registry
	log       *eventlog.Log
	snaps     *snapshots.Store
	index     *sqlite.Index
	claimIdx  *qdrant.Index
	store     *services.Store
	engine    *services.Engine
	recovery  *services.Recovery
}

// withDeps loads config, builds dependencies and calls fn, cleaning up
// afterwards.
func withDeps(fn func(context.Context, *Deps) error) error {
	return withInternalDeps(func(ctx context.Context, d *internalDeps) error {
		return fn(ctx, &d.Deps)
	})
}

func withInternalDeps(fn func(context.Context, *internalDeps) error) error {
	ctx := context.Background()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	worlds, err := config.LoadWorlds(cwd)
	if err != nil {
		return fmt.Errorf("loading worlds: %w", err)
	}

	if globalWorld == "" {
		return errors.New("world is required (use --world flag)")
	}
	if _, err := worlds.Get(globalWorld); err != nil {
		return err
	}

	logger := slog.Default()

	registry, err := schema.Load(config.SchemasDir(cwd))
	if err != nil {
		return fmt.Errorf("loading schemas: %w", err)
	}

	repo, err := fsjson.NewStore(config.EntitiesDir(cwd, globalWorld))
	if err != nil {
		return fmt.Errorf("opening entity store: %w", err)
	}

	log, err := eventlog.Open(config.EventLogPath(cwd, globalWorld))
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer log.Close()

	snaps, err := snapshots.NewStore(config.SnapshotsDir(cwd, globalWorld))
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}

	index, err := sqlite.NewIndex(config.SearchIndexPath(cwd, globalWorld))
	if err != nil {
		return fmt.Errorf("opening search index: %w", err)
	}
	defer index.Close()

	// The semantic stack is optional: without it stage 3 reports itself
	// skipped and everything else works.
	var (
		emb      ports.Embedder
		claimIdx *qdrant.Index
		checker  ports.SemanticChecker
	)
	if cfg.Consistency.SemanticEnabled {
		if cfg.LLM.APIKey == "" {
			logger.Warn("semantic stage enabled but no LLM API key configured")
		} else {
			c, err := semantic.NewChecker(cfg.LLM)
			if err != nil {
				return fmt.Errorf("creating semantic checker: %w", err)
			}
			checker = c

			if cfg.Embedder.APIKey != "" {
				e, err := embedder.NewEmbedder(cfg.Embedder)
				if err != nil {
					return fmt.Errorf("creating embedder: %w", err)
				}
				emb = e

				qdrantCfg := cfg.Qdrant
				collection, err := worlds.GetCollection(globalWorld)
				if err == nil {
					qdrantCfg.Collection = collection
				}
				ci, err := qdrant.NewIndex(qdrantCfg)
				if err != nil {
					logger.Warn("claim mirror unavailable, falling back to lexical retrieval", "error", err)
				} else {
					claimIdx = ci
					defer ci.Close()
					if err := ci.EnsureCollection(ctx, e.VectorSize()); err != nil {
						logger.Warn("claim mirror collection unavailable, falling back to lexical retrieval", "error", err)
						claimIdx = nil
					}
				}
			}
		}
	}

	var claimIndex ports.ClaimIndex
	if claimIdx != nil {
		claimIndex = claimIdx
	}
	mirror := services.NewClaimMirror(emb, claimIndex)

	engine := services.NewEngine(registry, repo, services.EngineConfig{
		Embedder:        emb,
		ClaimIndex:      claimIndex,
		Checker:         checker,
		RelatedLimit:    cfg.Consistency.RelatedLimit,
		SemanticTimeout: time.Duration(cfg.Consistency.SemanticTimeoutSeconds) * time.Second,
		Logger:          logger,
	})

	store := services.NewStore(repo, engine, log, snaps, index, mirror, logger)
	recovery := services.NewRecovery(repo, registry, log, snaps, index, mirror, store, logger)
	sessions := services.NewSessions(log)
	chronicle := services.NewChronicle(log)

	// Attribute mutations to the active session, if any.
	if active, err := sessions.Current(ctx); err == nil && active != nil {
		store.SetSession(active.ID, active.Step)
	}

	deps := &internalDeps{
		Deps: Deps{
			Config:    cfg,
			Worlds:    worlds,
			Mutation:  handlers.NewMutationHandler(store),
			Query:     handlers.NewQueryHandler(store, index, registry),
			Audit:     handlers.NewAuditHandler(store, engine, recovery),
			Sessions:  sessions,
			Chronicle: chronicle,
		},
		repo:     repo,
		registry: registry,
		log:      log,
		snaps:    snaps,
		index:    index,
		claimIdx: claimIdx,
		store:    store,
		engine:   engine,
		recovery: recovery,
	}

	return fn(ctx, deps)
}

// entityStatuses lists valid lifecycle statuses for help text.
var entityStatuses = []string{string(entities.StatusDraft), string(entities.StatusCanon)}
