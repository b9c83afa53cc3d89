package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// DefaultMaxPeriods caps the backward iteration of a period overview.
// 90 iterations cover roughly 7.5 years of monthly periods and act as a
// circuit breaker against pathological date ranges or clock skew.
const DefaultMaxPeriods = 90

// OverviewService builds the period overview of an account: a bounded
// time series of per-period earned/spent totals, most recent first.
// It is pure with respect to its inputs; caching is layered on top by
// CachedOverview.
type OverviewService struct {
	txs        TransactionSource
	maxPeriods int
}

// NewOverviewService creates an aggregator. maxPeriods bounds the number
// of emitted entries; values below one fall back to DefaultMaxPeriods.
func NewOverviewService(txs TransactionSource, maxPeriods int) *OverviewService {
	if maxPeriods < 1 {
		maxPeriods = DefaultMaxPeriods
	}
	return &OverviewService{txs: txs, maxPeriods: maxPeriods}
}

// Window computes the aggregation window for an account: the start of
// the period containing its oldest activity (first transaction or
// opening balance, whichever is earlier), and the end of the period
// containing now. An account with no activity gets the current period
// as its whole window.
func (s *OverviewService) Window(ctx context.Context, account core.Account, now time.Time, rng core.ViewRange) (start, end time.Time, err error) {
	oldest, ok, err := s.txs.OldestTransactionDate(ctx, account.ID)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("oldest transaction date: %w", err)
	}
	if ob := account.OpeningBalance; ob != nil && (!ok || ob.Date.Before(oldest)) {
		oldest, ok = ob.Date, true
	}
	if !ok {
		oldest = now
	}
	start, err = core.StartOfPeriod(oldest, rng)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = core.EndOfPeriodsAgo(now, rng, 0)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// PeriodOverview walks periods backward from now to the account's oldest
// transaction and totals deposits (earned) and withdrawals (spent) per
// period, counting only legs with a resolved opposing account. An
// account with no transactions yields exactly one zero-valued entry for
// the current period.
func (s *OverviewService) PeriodOverview(ctx context.Context, account core.Account, now time.Time, rng core.ViewRange) ([]core.PeriodEntry, error) {
	start, end, err := s.Window(ctx, account, now, rng)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Computing period overview",
		"account", account.ID,
		"range", rng.String(),
		"start", start.Format(core.DateKeyFormat),
		"end", end.Format(core.DateKeyFormat))

	ids := []string{account.ID}
	entries := make([]core.PeriodEntry, 0, 12)
	for count := 0; !end.Before(start) && count < s.maxPeriods; count++ {
		periodStart, err := core.StartOfPeriod(end, rng)
		if err != nil {
			return nil, err
		}
		currentEnd, err := core.EndOfPeriod(periodStart, rng)
		if err != nil {
			return nil, err
		}

		earned, err := s.sumTransactions(ctx, ids, periodStart, currentEnd, core.Deposit)
		if err != nil {
			return nil, err
		}
		spent, err := s.sumTransactions(ctx, ids, periodStart, currentEnd, core.Withdrawal)
		if err != nil {
			return nil, err
		}

		label, err := core.PeriodLabel(periodStart, rng)
		if err != nil {
			return nil, err
		}
		entries = append(entries, core.PeriodEntry{
			Label:  label,
			Key:    periodStart.Format(core.DateKeyFormat),
			Earned: earned,
			Spent:  spent,
			Date:   periodStart,
		})

		end, err = core.SubtractPeriod(periodStart, rng, 1)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// sumTransactions totals the amounts of the given type within
// [start, end], skipping legs whose opposing account is unresolved.
func (s *OverviewService) sumTransactions(ctx context.Context, accountIDs []string, start, end time.Time, typ core.TransactionType) (decimal.Decimal, error) {
	txs, err := s.txs.TransactionsInRange(ctx, accountIDs, start, end, []core.TransactionType{typ}, true)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s transactions in [%s, %s]: %w",
			typ, start.Format(core.DateKeyFormat), end.Format(core.DateKeyFormat), err)
	}
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total, nil
}
