package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"saldo/internal/core"
	"saldo/internal/services"
)

// Preference names shared with the presentation layer.
const (
	prefViewRange    = "viewRange"
	prefListPageSize = "listPageSize"
)

// accountTypesByKind maps the URL-facing account kind to the ledger
// account types it covers.
var accountTypesByKind = map[string][]core.AccountType{
	"asset":     {core.Asset},
	"expense":   {core.Expense},
	"revenue":   {core.Revenue},
	"liability": {core.Liability},
}

type Handlers struct {
	accounts services.AccountSource
	txs      services.TransactionSource
	prefs    services.PreferenceSource
	list     *services.AccountListService
	balances *services.BalanceService
	overview *services.CachedOverview

	defaultViewRange string
	defaultPageSize  int
	now              func() time.Time
}

func NewHandlers(
	accounts services.AccountSource,
	txs services.TransactionSource,
	prefs services.PreferenceSource,
	list *services.AccountListService,
	balances *services.BalanceService,
	overview *services.CachedOverview,
	defaultViewRange string,
	defaultPageSize int,
) *Handlers {
	return &Handlers{
		accounts:         accounts,
		txs:              txs,
		prefs:            prefs,
		list:             list,
		balances:         balances,
		overview:         overview,
		defaultViewRange: defaultViewRange,
		defaultPageSize:  defaultPageSize,
		now:              time.Now,
	}
}

type accountRowResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Currency     string `json:"currency"`
	StartBalance string `json:"start_balance"`
	EndBalance   string `json:"end_balance"`
	Difference   string `json:"difference"`
	LastActivity string `json:"last_activity,omitempty"`
}

type accountListResponse struct {
	Accounts []accountRowResponse `json:"accounts"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Total    int                  `json:"total"`
}

// ListAccounts serves GET /api/accounts?type=asset&page=N: a page of
// accounts with start/end balances over the current period window and
// their exact difference. The window starts one day before the period
// start, the usual ledger listing convention.
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind := r.URL.Query().Get("type")
	if kind == "" {
		kind = "asset"
	}
	types, ok := accountTypesByKind[kind]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown account type %q", kind))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, err := h.pageSize(ctx)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}
	rng, err := h.viewRange(ctx, r)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}

	collection, err := h.accounts.AccountsByType(ctx, types)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}
	if page < 1 {
		page = 1
	}
	pageAccounts := services.Paginate(collection, page, pageSize)

	now := h.now()
	periodStart, err := core.StartOfPeriod(now, rng)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}
	start := periodStart.AddDate(0, 0, -1)
	end, err := core.EndOfPeriod(now, rng)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}

	rows, err := h.list.Rows(ctx, pageAccounts, start, end)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}

	resp := accountListResponse{
		Accounts: make([]accountRowResponse, len(rows)),
		Page:     page,
		PageSize: pageSize,
		Total:    len(collection),
	}
	for i, row := range rows {
		out := accountRowResponse{
			ID:           row.Account.ID,
			Name:         row.Account.Name,
			Type:         string(row.Account.Type),
			Currency:     row.Account.ReportingCurrency(),
			StartBalance: core.FormatAmount(row.StartBalance),
			EndBalance:   core.FormatAmount(row.EndBalance),
			Difference:   core.FormatAmount(row.Difference),
		}
		if row.LastActivity != nil {
			out.LastActivity = row.LastActivity.Format(core.DateKeyFormat)
		}
		resp.Accounts[i] = out
	}
	writeJSON(w, http.StatusOK, resp)
}

type overviewResponse struct {
	AccountID string             `json:"account_id"`
	Currency  string             `json:"currency"`
	Range     string             `json:"range"`
	Entries   []core.PeriodEntry `json:"entries"`
}

// AccountOverview serves GET /api/accounts/{id}/overview?range=1M: the
// cached per-period earned/spent series for the account, most recent
// period first. Initial-balance accounts redirect to the account their
// opening balance belongs to.
func (h *Handlers) AccountOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := h.accounts.Find(ctx, r.PathValue("id"))
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}

	if account.Type == core.InitialBalance {
		original, err := services.ResolveOriginalAccount(ctx, h.txs, h.accounts, account)
		if err != nil {
			h.writeFailure(ctx, w, err)
			return
		}
		target := "/api/accounts/" + original.ID + "/overview"
		if raw := r.URL.RawQuery; raw != "" {
			target += "?" + raw
		}
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		return
	}

	rng, err := h.viewRange(ctx, r)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}

	entries, err := h.overview.PeriodOverview(ctx, account, h.now(), rng)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, overviewResponse{
		AccountID: account.ID,
		Currency:  account.ReportingCurrency(),
		Range:     rng.String(),
		Entries:   entries,
	})
}

type balancesResponse struct {
	AsOf     string            `json:"as_of"`
	Balances map[string]string `json:"balances"`
}

// Balances serves GET /api/balances?ids=a,b&asOf=YYYY-MM-DD: the running
// balance of each account as of the given date. Every requested account
// appears; missing data means an explicit zero.
func (h *Handlers) Balances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "missing ids parameter")
		return
	}

	asOf := h.now()
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		parsed, err := time.Parse(core.DateKeyFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid asOf date %q", raw))
			return
		}
		asOf = parsed
	}

	balances, err := h.balances.BalancesAsOf(ctx, ids, asOf)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}

	resp := balancesResponse{
		AsOf:     core.DateOnly(asOf).Format(core.DateKeyFormat),
		Balances: make(map[string]string, len(balances)),
	}
	for id, balance := range balances {
		resp.Balances[id] = balance.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health serves GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// viewRange resolves the granularity for a request: explicit ?range=
// parameter first, then the stored preference, then the configured
// default. Unknown tokens surface as a 400, never a silent fallback.
func (h *Handlers) viewRange(ctx context.Context, r *http.Request) (core.ViewRange, error) {
	token := r.URL.Query().Get("range")
	if token == "" {
		var err error
		token, err = h.prefs.GetPreference(ctx, prefViewRange, h.defaultViewRange)
		if err != nil {
			return core.ViewRange{}, err
		}
	}
	return core.ParseViewRange(token)
}

func (h *Handlers) pageSize(ctx context.Context) (int, error) {
	raw, err := h.prefs.GetPreference(ctx, prefListPageSize, strconv.Itoa(h.defaultPageSize))
	if err != nil {
		return 0, err
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 1 {
		return h.defaultPageSize, nil
	}
	return size, nil
}

// writeFailure maps domain errors to status codes: invalid ranges are
// client errors, unresolved accounts are 404s, incomplete journals are
// data-integrity failures surfaced as 422.
func (h *Handlers) writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrMissingTransactionLeg):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(ctx, "Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
