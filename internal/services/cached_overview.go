package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"saldo/internal/cache"
	"saldo/internal/core"
)

// overviewCacheTag is the literal operation tag in overview fingerprints.
const overviewCacheTag = "period-overview"

// CachedOverview memoizes OverviewService results in a fingerprinted
// store. The fingerprint covers the aggregation window, the operation
// tag and the account id; a hit short-circuits computation entirely.
// Concurrent misses for the same fingerprint are collapsed so the
// aggregation runs once.
type CachedOverview struct {
	svc   *OverviewService
	store cache.Store
	group singleflight.Group
}

func NewCachedOverview(svc *OverviewService, store cache.Store) *CachedOverview {
	return &CachedOverview{svc: svc, store: store}
}

// PeriodOverview returns the cached overview for the account, computing
// and storing it first on a miss. Both paths decode the same serialized
// bytes, so a hit is observably identical to the computation it stands
// in for.
func (c *CachedOverview) PeriodOverview(ctx context.Context, account core.Account, now time.Time, rng core.ViewRange) ([]core.PeriodEntry, error) {
	key, err := c.fingerprint(ctx, account, now, rng)
	if err != nil {
		return nil, err
	}

	if b, ok := c.store.Get(key); ok {
		slog.DebugContext(ctx, "Period overview cache hit", "account", account.ID)
		return decodeEntries(b)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// another request may have stored the result while we queued
		if b, ok := c.store.Get(key); ok {
			return b, nil
		}
		entries, err := c.svc.PeriodOverview(ctx, account, now, rng)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("encode period overview: %w", err)
		}
		c.store.Put(key, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return decodeEntries(v.([]byte))
}

// Refresh drops the cached overview for the account's current window and
// recomputes it. Used after new journal postings, where the fingerprint
// alone would not change.
func (c *CachedOverview) Refresh(ctx context.Context, account core.Account, now time.Time, rng core.ViewRange) ([]core.PeriodEntry, error) {
	key, err := c.fingerprint(ctx, account, now, rng)
	if err != nil {
		return nil, err
	}
	c.store.Delete(key)
	return c.PeriodOverview(ctx, account, now, rng)
}

func (c *CachedOverview) fingerprint(ctx context.Context, account core.Account, now time.Time, rng core.ViewRange) (string, error) {
	start, end, err := c.svc.Window(ctx, account, now, rng)
	if err != nil {
		return "", err
	}
	return cache.Fingerprint(
		start.Format(core.DateKeyFormat),
		end.Format(core.DateKeyFormat),
		overviewCacheTag,
		account.ID,
	), nil
}

func decodeEntries(b []byte) ([]core.PeriodEntry, error) {
	var entries []core.PeriodEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode period overview: %w", err)
	}
	return entries, nil
}
