package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// fakeLedger is an in-memory TransactionSource, AccountSource and
// PreferenceSource for service tests. rangeCalls counts aggregation
// queries so cache tests can assert that hits skip recomputation.
type fakeLedger struct {
	accounts   map[string]core.Account
	txs        []core.Transaction
	prefs      map[string]string
	rangeCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts: make(map[string]core.Account),
		prefs:    make(map[string]string),
	}
}

func (f *fakeLedger) addAccount(a core.Account) {
	f.accounts[a.ID] = a
}

func (f *fakeLedger) addTransaction(tx core.Transaction) {
	f.txs = append(f.txs, tx)
}

func (f *fakeLedger) TransactionsInRange(ctx context.Context, accountIDs []string, start, end time.Time, types []core.TransactionType, requireOpposing bool) ([]core.Transaction, error) {
	f.rangeCalls++
	var out []core.Transaction
	for _, tx := range f.txs {
		if !slices.Contains(accountIDs, tx.AccountID) {
			continue
		}
		d := core.DateOnly(tx.Date)
		if !start.IsZero() && d.Before(core.DateOnly(start)) {
			continue
		}
		if d.After(core.DateOnly(end)) {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, tx.Type) {
			continue
		}
		if requireOpposing && !tx.HasOpposingAccount() {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (f *fakeLedger) OldestTransactionDate(ctx context.Context, accountID string) (time.Time, bool, error) {
	var oldest time.Time
	found := false
	for _, tx := range f.txs {
		if tx.AccountID != accountID {
			continue
		}
		if !found || tx.Date.Before(oldest) {
			oldest = tx.Date
			found = true
		}
	}
	return oldest, found, nil
}

func (f *fakeLedger) LastTransactionDates(ctx context.Context, accountIDs []string) (map[string]time.Time, error) {
	latest := make(map[string]time.Time)
	for _, tx := range f.txs {
		if !slices.Contains(accountIDs, tx.AccountID) {
			continue
		}
		if cur, ok := latest[tx.AccountID]; !ok || tx.Date.After(cur) {
			latest[tx.AccountID] = tx.Date
		}
	}
	return latest, nil
}

func (f *fakeLedger) FirstTransaction(ctx context.Context, accountID string) (core.Transaction, bool, error) {
	var first core.Transaction
	found := false
	for _, tx := range f.txs {
		if tx.AccountID != accountID {
			continue
		}
		if !found || tx.Date.Before(first.Date) {
			first = tx
			found = true
		}
	}
	return first, found, nil
}

func (f *fakeLedger) JournalTransactions(ctx context.Context, journalID string) ([]core.Transaction, error) {
	var legs []core.Transaction
	for _, tx := range f.txs {
		if tx.JournalID == journalID {
			legs = append(legs, tx)
		}
	}
	return legs, nil
}

func (f *fakeLedger) AccountsByType(ctx context.Context, types []core.AccountType) ([]core.Account, error) {
	var out []core.Account
	for _, a := range f.accounts {
		if slices.Contains(types, a.Type) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b core.Account) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (f *fakeLedger) Find(ctx context.Context, id string) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (f *fakeLedger) GetPreference(ctx context.Context, name, defaultValue string) (string, error) {
	if v, ok := f.prefs[name]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func mustAmount(t interface{ Fatalf(string, ...any) }, s string) decimal.Decimal {
	d, err := core.ParseAmount(s)
	if err != nil {
		t.Fatalf("ParseAmount(%q): %v", s, err)
	}
	return d
}
