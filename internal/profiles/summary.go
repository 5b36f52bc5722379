package profiles

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shorebreak/backend/internal/models"
)

// ErrSourceUnavailable indicates the summary source is not configured.
var ErrSourceUnavailable = errors.New("user summary source unavailable")

// SummarySource resolves display fields for a set of user ids.
type SummarySource interface {
	Summaries(ctx context.Context, ids []string) ([]models.UserSummary, error)
}

type cacheEntry struct {
	summary models.UserSummary
	expires time.Time
}

// CachingSummaryProvider wraps a SummarySource with a per-id TTL cache.
// Friend and request listings resolve the same handful of users over and
// over; a short TTL keeps them cheap without holding display fields stale
// for long.
type CachingSummaryProvider struct {
	base SummarySource
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingSummaryProvider returns a SummarySource that caches lookups for the provided TTL.
func NewCachingSummaryProvider(base SummarySource, ttl time.Duration) *CachingSummaryProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingSummaryProvider{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// Summaries returns cached summaries where available and delegates to the
// underlying source for the rest, storing fresh results. Ordering follows
// username, matching the source.
func (c *CachingSummaryProvider) Summaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	if c == nil || c.base == nil {
		return nil, ErrSourceUnavailable
	}
	if len(ids) == 0 {
		return nil, nil
	}

	now := time.Now()

	var (
		out     []models.UserSummary
		missing []string
	)

	c.mu.RLock()
	for _, id := range ids {
		if entry, ok := c.items[id]; ok && now.Before(entry.expires) {
			out = append(out, entry.summary)
			continue
		}
		missing = append(missing, id)
	}
	c.mu.RUnlock()

	if len(missing) > 0 {
		fetched, err := c.base.Summaries(ctx, missing)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		for _, s := range fetched {
			c.items[s.ID] = cacheEntry{summary: s, expires: now.Add(c.ttl)}
		}
		c.mu.Unlock()

		out = append(out, fetched...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
