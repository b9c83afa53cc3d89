package services

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"saldo/internal/cache"
	"saldo/internal/core"
)

func TestCachedOverviewHitSkipsComputation(t *testing.T) {
	ledger := newFakeLedger()
	account := seedScenario(ledger, t)
	store := cache.NewLRUStore(16, time.Minute)
	cached := NewCachedOverview(NewOverviewService(ledger, 0), store)

	now := date(2020, time.March, 10)
	monthly := core.ViewRange{Unit: core.Monthly}

	first, err := cached.PeriodOverview(context.Background(), account, now, monthly)
	if err != nil {
		t.Fatalf("PeriodOverview: %v", err)
	}
	calls := ledger.rangeCalls

	second, err := cached.PeriodOverview(context.Background(), account, now, monthly)
	if err != nil {
		t.Fatalf("PeriodOverview (cached): %v", err)
	}
	if ledger.rangeCalls != calls {
		t.Errorf("cache hit ran %d aggregation queries, want 0", ledger.rangeCalls-calls)
	}
	if !reflect.DeepEqual(encode(t, first), encode(t, second)) {
		t.Error("cached result differs from computed result")
	}
}

func TestCachedOverviewDistinctAccounts(t *testing.T) {
	ledger := newFakeLedger()
	a := seedScenario(ledger, t)
	b := core.Account{ID: "other", Name: "Other", Type: core.Asset}
	ledger.addAccount(b)
	ledger.addTransaction(core.Transaction{
		ID: "t8", JournalID: "j8", AccountID: "other", OpposingAccountID: "x",
		Amount: mustAmount(t, "5.00"), Direction: core.In, Type: core.Deposit,
		Date: date(2020, time.March, 2),
	})
	store := cache.NewLRUStore(16, time.Minute)
	cached := NewCachedOverview(NewOverviewService(ledger, 0), store)

	now := date(2020, time.March, 10)
	monthly := core.ViewRange{Unit: core.Monthly}

	entriesA, err := cached.PeriodOverview(context.Background(), a, now, monthly)
	if err != nil {
		t.Fatalf("PeriodOverview(a): %v", err)
	}
	entriesB, err := cached.PeriodOverview(context.Background(), b, now, monthly)
	if err != nil {
		t.Fatalf("PeriodOverview(b): %v", err)
	}
	if len(entriesA) == len(entriesB) {
		t.Fatalf("accounts with different windows got same entry count %d; cache keys collided?", len(entriesA))
	}
}

func TestCachedOverviewRefresh(t *testing.T) {
	ledger := newFakeLedger()
	account := seedScenario(ledger, t)
	store := cache.NewLRUStore(16, time.Minute)
	cached := NewCachedOverview(NewOverviewService(ledger, 0), store)

	now := date(2020, time.March, 10)
	monthly := core.ViewRange{Unit: core.Monthly}

	before, err := cached.PeriodOverview(context.Background(), account, now, monthly)
	if err != nil {
		t.Fatalf("PeriodOverview: %v", err)
	}
	if got := before[0].Spent.String(); got != "20" {
		t.Fatalf("march spent = %s, want 20", got)
	}

	// a new posting in the current period: the window (and so the
	// fingerprint) is unchanged, only Refresh can surface it
	ledger.addTransaction(core.Transaction{
		ID: "t3", JournalID: "j3", AccountID: "checking", OpposingAccountID: "rent",
		Amount: mustAmount(t, "30.00"), Direction: core.Out, Type: core.Withdrawal,
		Date: date(2020, time.March, 9),
	})

	stale, err := cached.PeriodOverview(context.Background(), account, now, monthly)
	if err != nil {
		t.Fatalf("PeriodOverview (stale): %v", err)
	}
	if got := stale[0].Spent.String(); got != "20" {
		t.Fatalf("stale march spent = %s, want cached 20", got)
	}

	fresh, err := cached.Refresh(context.Background(), account, now, monthly)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := fresh[0].Spent.String(); got != "50" {
		t.Errorf("refreshed march spent = %s, want 50", got)
	}
}

func encode(t *testing.T, entries []core.PeriodEntry) []byte {
	t.Helper()
	b, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal entries: %v", err)
	}
	return b
}
