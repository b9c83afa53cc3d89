// Package services implements the reporting engine: balance snapshots,
// period overviews and account listing, on top of narrow collaborator
// contracts for transaction and account data.
package services

import (
	"context"
	"time"

	"saldo/internal/core"
)

// TransactionSource provides read-only views over posted transactions.
// The engine borrows data for the duration of one call and never owns it.
type TransactionSource interface {
	// TransactionsInRange returns the transactions of the given accounts
	// posted within [start, end] (inclusive). A zero start means no lower
	// bound. types filters by transaction type when non-empty;
	// requireOpposing drops legs whose opposing account is unresolved.
	TransactionsInRange(ctx context.Context, accountIDs []string, start, end time.Time, types []core.TransactionType, requireOpposing bool) ([]core.Transaction, error)

	// OldestTransactionDate returns the earliest posting date for the
	// account; ok is false when the account has no transactions.
	OldestTransactionDate(ctx context.Context, accountID string) (date time.Time, ok bool, err error)

	// LastTransactionDates returns the latest posting date per account.
	// Accounts with no activity are absent from the result.
	LastTransactionDates(ctx context.Context, accountIDs []string) (map[string]time.Time, error)

	// FirstTransaction returns any transaction of the account, preferring
	// the earliest; ok is false when the account has none.
	FirstTransaction(ctx context.Context, accountID string) (tx core.Transaction, ok bool, err error)

	// JournalTransactions returns all legs of a journal entry.
	JournalTransactions(ctx context.Context, journalID string) ([]core.Transaction, error)
}

// AccountSource resolves accounts.
type AccountSource interface {
	// AccountsByType returns accounts of the given types, ordered by name.
	AccountsByType(ctx context.Context, types []core.AccountType) ([]core.Account, error)

	// Find returns the account with the given id, or core.ErrNotFound.
	Find(ctx context.Context, id string) (core.Account, error)
}

// PreferenceSource reads named user preferences (page size, view range).
// Core services never consult it; handlers resolve preferences and pass
// explicit arguments.
type PreferenceSource interface {
	GetPreference(ctx context.Context, name, defaultValue string) (string, error)
}
