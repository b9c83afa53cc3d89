package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/cache"
	"saldo/internal/core"
)

// balancesCacheTag distinguishes balance snapshots from other cached
// operations sharing the fingerprint mechanism.
const balancesCacheTag = "balances-as-of"

// BalanceService computes point-in-time account balances and last
// activity dates. Read-only; results for repeated as-of dates are
// memoized through the aggregation cache when one is configured.
type BalanceService struct {
	txs      TransactionSource
	accounts AccountSource
	store    cache.Store
}

// NewBalanceService creates a snapshotter. store may be nil to disable
// memoization.
func NewBalanceService(txs TransactionSource, accounts AccountSource, store cache.Store) *BalanceService {
	return &BalanceService{txs: txs, accounts: accounts, store: store}
}

// BalancesAsOf returns the running balance of each account as of the
// given date: the signed sum of all transactions posted on or before
// asOf, plus the opening balance when its date is on or before asOf.
// Every requested account appears in the result; accounts with no data
// resolve to an explicit zero.
func (s *BalanceService) BalancesAsOf(ctx context.Context, accountIDs []string, asOf time.Time) (map[string]decimal.Decimal, error) {
	asOf = core.DateOnly(asOf)
	key := cache.Fingerprint(asOf.Format(core.DateKeyFormat), balancesCacheTag, strings.Join(accountIDs, ","))
	if s.store != nil {
		if b, ok := s.store.Get(key); ok {
			return decodeBalances(b)
		}
	}

	balances := make(map[string]decimal.Decimal, len(accountIDs))
	for _, id := range accountIDs {
		balances[id] = decimal.Zero
	}

	txs, err := s.txs.TransactionsInRange(ctx, accountIDs, time.Time{}, asOf, nil, false)
	if err != nil {
		return nil, fmt.Errorf("transactions up to %s: %w", asOf.Format(core.DateKeyFormat), err)
	}
	for _, tx := range txs {
		balances[tx.AccountID] = balances[tx.AccountID].Add(tx.SignedAmount())
	}

	for _, id := range accountIDs {
		account, err := s.accounts.Find(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", id, err)
		}
		ob := account.OpeningBalance
		if ob != nil && !core.DateOnly(ob.Date).After(asOf) {
			balances[id] = balances[id].Add(ob.Amount)
		}
	}

	if s.store != nil {
		if b, err := json.Marshal(balances); err == nil {
			s.store.Put(key, b)
			return decodeBalances(b)
		}
	}
	return balances, nil
}

// LastActivity returns the most recent posting date per account.
// Accounts with no activity are absent; callers treat absence as "never".
func (s *BalanceService) LastActivity(ctx context.Context, accountIDs []string) (map[string]time.Time, error) {
	activity, err := s.txs.LastTransactionDates(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("last transaction dates: %w", err)
	}
	return activity, nil
}

// decodeBalances keeps the cached and computed paths observably
// equivalent: both produce the map from the same serialized form.
func decodeBalances(b []byte) (map[string]decimal.Decimal, error) {
	var balances map[string]decimal.Decimal
	if err := json.Unmarshal(b, &balances); err != nil {
		return nil, fmt.Errorf("decode balance snapshot: %w", err)
	}
	return balances, nil
}
