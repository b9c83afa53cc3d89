// Package storage implements the transaction, account and preference
// collaborators on SQLite. Dates are stored as YYYY-MM-DD text (string
// comparison matches chronological order) and amounts as exact decimal
// text, never floats.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"saldo/internal/core"

	_ "modernc.org/sqlite"
)

// sentinelYear marks "no opening balance date" in data imported from
// legacy ledgers. Rows carrying it surface as a nil OpeningBalance.
const sentinelYear = 1900

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const transactionColumns = "id, journal_id, account_id, opposing_account_id, amount, direction, type, date"

// TransactionsInRange implements services.TransactionSource.
func (r *SQLiteRepository) TransactionsInRange(ctx context.Context, accountIDs []string, start, end time.Time, types []core.TransactionType, requireOpposing bool) ([]core.Transaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM transactions WHERE account_id IN (%s)", transactionColumns, placeholders(len(accountIDs)))
	args := make([]any, 0, len(accountIDs)+len(types)+2)
	for _, id := range accountIDs {
		args = append(args, id)
	}
	if !start.IsZero() {
		sb.WriteString(" AND date >= ?")
		args = append(args, formatDate(start))
	}
	sb.WriteString(" AND date <= ?")
	args = append(args, formatDate(end))
	if len(types) > 0 {
		fmt.Fprintf(&sb, " AND type IN (%s)", placeholders(len(types)))
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	if requireOpposing {
		sb.WriteString(" AND opposing_account_id != ''")
	}
	sb.WriteString(" ORDER BY date, id")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// OldestTransactionDate implements services.TransactionSource.
func (r *SQLiteRepository) OldestTransactionDate(ctx context.Context, accountID string) (time.Time, bool, error) {
	var oldest sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT MIN(date) FROM transactions WHERE account_id = ?", accountID).Scan(&oldest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest transaction date: %w", err)
	}
	if !oldest.Valid {
		return time.Time{}, false, nil
	}
	date, err := parseDate(oldest.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return date, true, nil
}

// LastTransactionDates implements services.TransactionSource.
func (r *SQLiteRepository) LastTransactionDates(ctx context.Context, accountIDs []string) (map[string]time.Time, error) {
	if len(accountIDs) == 0 {
		return map[string]time.Time{}, nil
	}

	query := fmt.Sprintf(
		"SELECT account_id, MAX(date) FROM transactions WHERE account_id IN (%s) GROUP BY account_id",
		placeholders(len(accountIDs)))
	args := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query last transaction dates: %w", err)
	}
	defer rows.Close()

	activity := make(map[string]time.Time)
	for rows.Next() {
		var accountID, dateStr string
		if err := rows.Scan(&accountID, &dateStr); err != nil {
			return nil, fmt.Errorf("scan last activity: %w", err)
		}
		date, err := parseDate(dateStr)
		if err != nil {
			return nil, err
		}
		activity[accountID] = date
	}
	return activity, rows.Err()
}

// FirstTransaction implements services.TransactionSource.
func (r *SQLiteRepository) FirstTransaction(ctx context.Context, accountID string) (core.Transaction, bool, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s FROM transactions WHERE account_id = ? ORDER BY date, id LIMIT 1", transactionColumns), accountID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, err
	}
	return tx, true, nil
}

// JournalTransactions implements services.TransactionSource.
func (r *SQLiteRepository) JournalTransactions(ctx context.Context, journalID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM transactions WHERE journal_id = ? ORDER BY id", transactionColumns), journalID)
	if err != nil {
		return nil, fmt.Errorf("query journal transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

const accountColumns = "id, name, type, currency, opening_balance, opening_balance_date"

// AccountsByType implements services.AccountSource.
func (r *SQLiteRepository) AccountsByType(ctx context.Context, types []core.AccountType) ([]core.Account, error) {
	if len(types) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM accounts WHERE type IN (%s) ORDER BY name, id",
		accountColumns, placeholders(len(types)))
	args := make([]any, len(types))
	for i, t := range types {
		args[i] = string(t)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Find implements services.AccountSource.
func (r *SQLiteRepository) Find(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s FROM accounts WHERE id = ?", accountColumns), id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return account, err
}

// GetPreference implements services.PreferenceSource.
func (r *SQLiteRepository) GetPreference(ctx context.Context, name, defaultValue string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultValue, nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference %s: %w", name, err)
	}
	return value, nil
}

// SetPreference stores a named preference, replacing any previous value.
func (r *SQLiteRepository) SetPreference(ctx context.Context, name, value string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO preferences (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value",
		name, value)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", name, err)
	}
	return nil
}

// CreateAccount inserts a ledger account.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, account core.Account) error {
	balance, balanceDate := "", ""
	if ob := account.OpeningBalance; ob != nil {
		balance = ob.Amount.String()
		balanceDate = formatDate(ob.Date)
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (id, name, type, currency, opening_balance, opening_balance_date) VALUES (?, ?, ?, ?, ?, ?)",
		account.ID, account.Name, string(account.Type), account.Currency, balance, balanceDate)
	if err != nil {
		return fmt.Errorf("create account %s: %w", account.ID, err)
	}
	return nil
}

// CreateJournal inserts a journal entry with its legs atomically.
// Double-entry bookkeeping requires at least two legs.
func (r *SQLiteRepository) CreateJournal(ctx context.Context, journalID, description string, date time.Time, legs []core.Transaction) error {
	if len(legs) < 2 {
		return fmt.Errorf("journal %s has %d legs: %w", journalID, len(legs), core.ErrMissingTransactionLeg)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO journals (id, description, date) VALUES (?, ?, ?)",
		journalID, description, formatDate(date)); err != nil {
		return fmt.Errorf("insert journal %s: %w", journalID, err)
	}
	for _, leg := range legs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO transactions (id, journal_id, account_id, opposing_account_id, amount, direction, type, date) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			leg.ID, journalID, leg.AccountID, leg.OpposingAccountID,
			leg.Amount.String(), string(leg.Direction), string(leg.Type), formatDate(leg.Date)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", leg.ID, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var amount, direction, typ, date string
	err := row.Scan(&tx.ID, &tx.JournalID, &tx.AccountID, &tx.OpposingAccountID, &amount, &direction, &typ, &date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Amount, err = core.ParseAmount(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s amount %q: %w", tx.ID, amount, err)
	}
	tx.Date, err = parseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.Direction = core.Direction(direction)
	tx.Type = core.TransactionType(typ)
	return tx, nil
}

func scanAccount(row rowScanner) (core.Account, error) {
	var account core.Account
	var typ, balance, balanceDate string
	err := row.Scan(&account.ID, &account.Name, &typ, &account.Currency, &balance, &balanceDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, err
		}
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	account.Type = core.AccountType(typ)

	// Legacy ledgers encode "no opening balance" as a zero amount or a
	// year-1900 date; both collapse to a nil OpeningBalance here.
	if balance == "" || balance == "0" || balanceDate == "" {
		return account, nil
	}
	amount, err := core.ParseAmount(balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %s opening balance %q: %w", account.ID, balance, err)
	}
	date, err := parseDate(balanceDate)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %s: %w", account.ID, err)
	}
	if date.Year() == sentinelYear || amount.IsZero() {
		return account, nil
	}
	account.OpeningBalance = &core.OpeningBalanceEntry{Amount: amount, Date: date}
	return account, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func formatDate(t time.Time) string {
	return core.DateOnly(t).Format(core.DateKeyFormat)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(core.DateKeyFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
