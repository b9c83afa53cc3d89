package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// AccountRow is one line of an account listing: balances at the window
// edges, their exact difference and the account's last activity.
type AccountRow struct {
	Account      core.Account
	StartBalance decimal.Decimal
	EndBalance   decimal.Decimal
	Difference   decimal.Decimal
	LastActivity *time.Time
}

// AccountListService assembles listing rows from balance snapshots.
type AccountListService struct {
	balances *BalanceService
}

func NewAccountListService(balances *BalanceService) *AccountListService {
	return &AccountListService{balances: balances}
}

// Rows computes start/end balances and their difference for a page of
// accounts. Missing balance entries default to zero; the difference is
// exact decimal subtraction, never floating point.
func (s *AccountListService) Rows(ctx context.Context, accounts []core.Account, start, end time.Time) ([]AccountRow, error) {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}

	startBalances, err := s.balances.BalancesAsOf(ctx, ids, start)
	if err != nil {
		return nil, fmt.Errorf("start balances: %w", err)
	}
	endBalances, err := s.balances.BalancesAsOf(ctx, ids, end)
	if err != nil {
		return nil, fmt.Errorf("end balances: %w", err)
	}
	activity, err := s.balances.LastActivity(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]AccountRow, len(accounts))
	for i, account := range accounts {
		sb := balanceOrZero(startBalances, account.ID)
		eb := balanceOrZero(endBalances, account.ID)
		row := AccountRow{
			Account:      account,
			StartBalance: sb,
			EndBalance:   eb,
			Difference:   eb.Sub(sb),
		}
		if last, ok := activity[account.ID]; ok {
			row.LastActivity = &last
		}
		rows[i] = row
	}
	return rows, nil
}

// Paginate slices a pre-fetched, already-ordered collection. Pages are
// 1-based; zero or negative pages normalize to the first page.
func Paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return nil
	}
	lo := (page - 1) * pageSize
	if lo >= len(items) {
		return nil
	}
	hi := lo + pageSize
	if hi > len(items) {
		hi = len(items)
	}
	return items[lo:hi]
}

// ResolveOriginalAccount follows the opposing leg of an initial-balance
// account's journal back to the account the opening balance belongs to.
// Returns core.ErrMissingTransactionLeg when the journal is incomplete.
func ResolveOriginalAccount(ctx context.Context, txs TransactionSource, accounts AccountSource, account core.Account) (core.Account, error) {
	first, ok, err := txs.FirstTransaction(ctx, account.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("first transaction of %s: %w", account.ID, err)
	}
	if !ok {
		return core.Account{}, fmt.Errorf("account %s has no transactions: %w", account.ID, core.ErrMissingTransactionLeg)
	}
	legs, err := txs.JournalTransactions(ctx, first.JournalID)
	if err != nil {
		return core.Account{}, fmt.Errorf("journal %s: %w", first.JournalID, err)
	}
	for _, leg := range legs {
		if leg.AccountID != account.ID {
			return accounts.Find(ctx, leg.AccountID)
		}
	}
	return core.Account{}, fmt.Errorf("journal %s: %w", first.JournalID, core.ErrMissingTransactionLeg)
}

func balanceOrZero(balances map[string]decimal.Decimal, id string) decimal.Decimal {
	if b, ok := balances[id]; ok {
		return b
	}
	return decimal.Zero
}
