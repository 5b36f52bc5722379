package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/shorebreak/backend/internal/logging"
)

// GraphPurger removes a deleted user id from every other record's
// relationship projections. The sweep is idempotent, so retries are safe.
type GraphPurger interface {
	Purge(ctx context.Context, userID string) error
}

// SweeperConfig controls the concurrency and retry characteristics of the sweeper.
type SweeperConfig struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Sweeper asynchronously applies the account-deletion cleanup sweep. The
// deletion flow enqueues the id and completes immediately; sweep failures
// are logged and retried in the background and never block the deletion.
type Sweeper struct {
	purger GraphPurger
	logger *slog.Logger
	cfg    SweeperConfig

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var errSweeperClosed = errors.New("cleanup sweeper closed")

// NewSweeper constructs a background worker pool applying graph purges.
func NewSweeper(purger GraphPurger, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Sweeper{
		purger: purger,
		logger: logger,
		cfg:    cfg,
		jobs:   make(chan string, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	s.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go s.worker()
	}

	return s
}

// Enqueue schedules the cleanup sweep for a deleted user id.
func (s *Sweeper) Enqueue(ctx context.Context, userID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errSweeperClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errSweeperClosed
	case s.jobs <- userID:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding sweeps.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		s.cancel()
		close(s.jobs)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *Sweeper) worker() {
	defer s.wg.Done()

	for userID := range s.jobs {
		s.sweep(userID)
	}
}

func (s *Sweeper) sweep(userID string) {
	if s.purger == nil {
		s.logger.Error("cleanup sweeper missing purger", "userId", userID)
		return
	}

	spanCtx, span := logging.StartSpan(logging.WithLogger(context.Background(), s.logger), "cleanup.sweep")
	defer span.End()

	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * s.cfg.BaseBackoff
			if backoff > s.cfg.MaxBackoff {
				backoff = s.cfg.MaxBackoff
			}
			time.Sleep(backoff)
		}

		ctx, cancel := context.WithTimeout(spanCtx, 30*time.Second)
		err := s.purger.Purge(ctx, userID)
		cancel()

		if err == nil {
			s.logger.Info("cleanup sweep completed", "userId", userID, "attempts", attempt+1)
			return
		}

		s.logger.Error("cleanup sweep failed", "userId", userID, "attempt", attempt+1, "error", err)
	}

	s.logger.Error("cleanup sweep exhausted retries", "userId", userID, "attempts", s.cfg.MaxAttempts)
}
