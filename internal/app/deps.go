package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shorebreak/backend/internal/auth"
	"github.com/shorebreak/backend/internal/cleanup"
	"github.com/shorebreak/backend/internal/config"
	"github.com/shorebreak/backend/internal/db"
	"github.com/shorebreak/backend/internal/friends"
	"github.com/shorebreak/backend/internal/handlers"
	"github.com/shorebreak/backend/internal/middleware"
	"github.com/shorebreak/backend/internal/posts"
	"github.com/shorebreak/backend/internal/profiles"
	"github.com/shorebreak/backend/internal/repositories"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup function drains background workers and must
// run before the process exits.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	users := repositories.NewPostgresUserRepository(pool)
	graph := repositories.NewPostgresGraphStore(pool)
	sessions := auth.NewManager(15*time.Minute, 24*time.Hour, repositories.NewPostgresSessionStore(pool))

	relationships := friends.NewService(graph, logger)
	queries := friends.NewQueries(graph)

	summaries := profiles.NewCachingSummaryProvider(users, cfg.SummaryCacheTTL)
	postService := posts.NewService(repositories.NewPostgresPostRepository(pool), queries)

	sweeper := cleanup.NewSweeper(graph, cleanup.SweeperConfig{
		QueueSize: cfg.CleanupQueueSize,
		Workers:   cfg.CleanupWorkers,
	}, logger)

	limiter := middleware.NewKeyedRateLimiter(
		cfg.MutationRateLimit.Requests,
		cfg.MutationRateLimit.Window,
		cfg.MutationRateLimit.Burst,
		cfg.MutationRateLimit.TTL,
	)

	deps := handlers.Dependencies{
		Users:     users,
		Sessions:  sessions,
		Friends:   relationships,
		Queries:   queries,
		Summaries: summaries,
		Posts:     postService,
		Cleanup:   sweeper,
		Limiter:   limiter,
	}

	if cfg.ObjectStore.Bucket != "" {
		avatars, err := profiles.NewS3AvatarStorage(ctx, cfg.ObjectStore)
		if err != nil {
			_ = sweeper.Shutdown(ctx)
			return handlers.Dependencies{}, nil, fmt.Errorf("configure avatar storage: %w", err)
		}
		deps.Avatars = avatars
	}

	shutdown := func(ctx context.Context) error {
		return sweeper.Shutdown(ctx)
	}

	return deps, shutdown, nil
}
