// Package worker keeps cached aggregations warm and mirrors refreshed
// period overviews to the report spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/services"
	"saldo/internal/sheets"
)

type OverviewWorker struct {
	accounts    services.AccountSource
	overview    *services.CachedOverview
	exporter    *sheets.ReportExporter // nil disables export
	rng         core.ViewRange
	concurrency int
	now         func() time.Time
}

func NewOverviewWorker(accounts services.AccountSource, overview *services.CachedOverview, exporter *sheets.ReportExporter, rng core.ViewRange, concurrency int) *OverviewWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &OverviewWorker{
		accounts:    accounts,
		overview:    overview,
		exporter:    exporter,
		rng:         rng,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// HandleJournalPosted refreshes the cached period overview of the
// account named in the message and exports the fresh rows when an
// exporter is configured. Unknown accounts are dropped, not requeued.
func (w *OverviewWorker) HandleJournalPosted(ctx context.Context, msg *amqp.JournalPostedMessage) error {
	account, err := w.accounts.Find(ctx, msg.AccountID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Dropping message for unknown account", "account", msg.AccountID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find account %s: %w", msg.AccountID, err)
	}

	entries, err := w.overview.Refresh(ctx, account, w.now(), w.rng)
	if err != nil {
		return fmt.Errorf("refresh overview for %s: %w", account.ID, err)
	}

	slog.InfoContext(ctx, "Refreshed period overview",
		"account", account.ID,
		"entries", len(entries))

	if w.exporter != nil {
		if err := w.exporter.AppendOverview(ctx, account, entries); err != nil {
			return fmt.Errorf("export overview for %s: %w", account.ID, err)
		}
		slog.InfoContext(ctx, "Exported period overview to report sheet", "account", account.ID)
	}
	return nil
}

// WarmAll precomputes period overviews for all asset accounts with
// bounded concurrency. Individual failures are logged and skipped so a
// single broken account does not block the rest.
func (w *OverviewWorker) WarmAll(ctx context.Context) error {
	accounts, err := w.accounts.AccountsByType(ctx, []core.AccountType{core.Asset})
	if err != nil {
		return fmt.Errorf("list asset accounts: %w", err)
	}

	now := w.now()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, account := range accounts {
		g.Go(func() error {
			if _, err := w.overview.PeriodOverview(ctx, account, now, w.rng); err != nil {
				slog.ErrorContext(ctx, "Failed to warm overview", "account", account.ID, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Warmed period overviews", "accounts", len(accounts))
	return nil
}
