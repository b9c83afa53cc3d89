package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an account has no currency of its own.
const DefaultCurrency = "EUR"

const (
	Asset          AccountType = "asset"
	Expense        AccountType = "expense"
	Revenue        AccountType = "revenue"
	Liability      AccountType = "liability"
	InitialBalance AccountType = "initial-balance"
)

const (
	Deposit        TransactionType = "deposit"
	Withdrawal     TransactionType = "withdrawal"
	Transfer       TransactionType = "transfer"
	OpeningBalance TransactionType = "opening-balance"
)

const (
	In  Direction = "in"
	Out Direction = "out"
)

type (
	AccountType     string
	TransactionType string
	Direction       string

	// Account is a ledger account as seen by the reporting engine.
	// OpeningBalance is nil when the account has none; legacy sentinel
	// values (zero amount, year-1900 date) are translated to nil by the
	// storage layer.
	Account struct {
		ID             string
		Name           string
		Type           AccountType
		Currency       string
		OpeningBalance *OpeningBalanceEntry
	}

	// OpeningBalanceEntry is a synthetic starting amount for an account,
	// treated like a transaction when computing balances.
	OpeningBalanceEntry struct {
		Amount decimal.Decimal
		Date   time.Time
	}

	// Transaction is one leg of a double-entry journal. Amount is always
	// positive; Direction says which way money moved relative to the
	// owning account. OpposingAccountID is empty when the other leg could
	// not be resolved.
	Transaction struct {
		ID                string
		JournalID         string
		AccountID         string
		OpposingAccountID string
		Amount            decimal.Decimal
		Direction         Direction
		Type              TransactionType
		Date              time.Time
	}

	// PeriodEntry is one row of a period overview: money earned and spent
	// on an account within a single period. Immutable once built.
	PeriodEntry struct {
		Label  string          `json:"label"`
		Key    string          `json:"key"`
		Earned decimal.Decimal `json:"earned"`
		Spent  decimal.Decimal `json:"spent"`
		Date   time.Time       `json:"date"`
	}
)

var (
	// ErrInvalidRange is returned for unknown view-range tokens. Never
	// silently defaulted.
	ErrInvalidRange = errors.New("invalid view range")

	// ErrMissingTransactionLeg means a journal lacks its opposing leg
	// where one is required. Data-integrity failure, not retried.
	ErrMissingTransactionLeg = errors.New("missing opposing transaction leg")

	// ErrNotFound means an account or currency id did not resolve.
	ErrNotFound = errors.New("not found")
)

// ReportingCurrency resolves the currency used for reporting on this
// account, falling back to the system default when unset.
func (a Account) ReportingCurrency() string {
	if a.Currency == "" {
		return DefaultCurrency
	}
	return a.Currency
}

// SignedAmount returns the transaction amount signed by direction:
// positive for money flowing into the account, negative for money out.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Direction == Out {
		return t.Amount.Neg()
	}
	return t.Amount
}

// HasOpposingAccount reports whether the other journal leg resolved to a
// known account.
func (t Transaction) HasOpposingAccount() bool {
	return t.OpposingAccountID != ""
}
