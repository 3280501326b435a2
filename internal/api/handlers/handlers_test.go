package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/accounts"
	calmemory "github.com/omnitrack/ledger/internal/calendar/memory"
	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/invalidation"
	"github.com/omnitrack/ledger/internal/ledger"
	"github.com/omnitrack/ledger/internal/pockets"
	"github.com/omnitrack/ledger/internal/projection"
	"github.com/omnitrack/ledger/internal/recurrence"
	"github.com/omnitrack/ledger/internal/store/inmemory"
)

// newTestMux wires the full API over in-memory backends, mirroring the
// server's route table.
func newTestMux(t *testing.T) (*http.ServeMux, *calmemory.Calendar) {
	t.Helper()

	st := inmemory.NewStore()
	cal := calmemory.New()
	inv := invalidation.LogInvalidator{}
	log := zerolog.Nop()

	dispatcher := projection.NewSyncDispatcher(recurrence.NewProjector(cal))
	accountsSvc := accounts.NewService(st, inv)
	allocator := pockets.NewAllocator(st, inv)
	ledgerSvc := ledger.NewService(st, dispatcher, cal, inv)

	accountsHandler := NewAccountsHandler(accountsSvc, allocator, log)
	transactionsHandler := NewTransactionsHandler(ledgerSvc, nil, log)
	pocketsHandler := NewPocketsHandler(allocator, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/accounts", accountsHandler.List)
	mux.HandleFunc("POST /api/accounts", accountsHandler.Create)
	mux.HandleFunc("GET /api/accounts/{id}", accountsHandler.Get)
	mux.HandleFunc("PUT /api/accounts/{id}", accountsHandler.Update)
	mux.HandleFunc("DELETE /api/accounts/{id}", accountsHandler.Delete)
	mux.HandleFunc("GET /api/accounts/{id}/pockets", accountsHandler.ListPockets)
	mux.HandleFunc("GET /api/accounts/{id}/unallocated", accountsHandler.Unallocated)
	mux.HandleFunc("GET /api/transactions", transactionsHandler.List)
	mux.HandleFunc("POST /api/transactions", transactionsHandler.Create)
	mux.HandleFunc("GET /api/transactions/{id}", transactionsHandler.Get)
	mux.HandleFunc("PUT /api/transactions/{id}", transactionsHandler.Update)
	mux.HandleFunc("DELETE /api/transactions/{id}", transactionsHandler.Delete)
	mux.HandleFunc("POST /api/transactions/suggest-category", transactionsHandler.SuggestCategory)
	mux.HandleFunc("POST /api/pockets", pocketsHandler.Create)
	mux.HandleFunc("GET /api/pockets/{id}", pocketsHandler.Get)
	mux.HandleFunc("PUT /api/pockets/{id}/allocation", pocketsHandler.SetAllocation)
	mux.HandleFunc("POST /api/pockets/transfer", pocketsHandler.Transfer)
	mux.HandleFunc("DELETE /api/pockets/{id}", pocketsHandler.Delete)

	return mux, cal
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func createAccount(t *testing.T, mux *http.ServeMux, name, class, balance string) domain.Account {
	t.Helper()
	rec := doJSON(t, mux, http.MethodPost, "/api/accounts", map[string]any{
		"name":            name,
		"kind":            "Bank Account",
		"class":           class,
		"initial_balance": balance,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[domain.Account](t, rec)
}

func TestAccountEndpoints(t *testing.T) {
	mux, _ := newTestMux(t)

	acc := createAccount(t, mux, "Checking", "current_asset", "100")
	if acc.ID == "" || !acc.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected created account: %+v", acc)
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/accounts/"+acc.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get account: status %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/accounts/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get unknown account: status %d, want 404", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/accounts", map[string]any{
		"name":  "",
		"class": "current_asset",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create invalid account: status %d, want 400", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPut, "/api/accounts/"+acc.ID, map[string]any{
		"name":  "Main Checking",
		"kind":  "Bank Account",
		"class": "current_asset",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update account: status %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decode[domain.Account](t, rec)
	if updated.Name != "Main Checking" {
		t.Errorf("updated name = %q, want Main Checking", updated.Name)
	}
	if !updated.Balance.Equal(acc.Balance) {
		t.Errorf("metadata update changed balance: %s -> %s", acc.Balance, updated.Balance)
	}
}

func TestTransactionLifecycleOverHTTP(t *testing.T) {
	mux, cal := newTestMux(t)
	acc := createAccount(t, mux, "Checking", "current_asset", "1000")

	rec := doJSON(t, mux, http.MethodPost, "/api/transactions", map[string]any{
		"description":  "Rent",
		"amount":       "350",
		"kind":         "expense",
		"account_id":   acc.ID,
		"is_recurring": true,
		"frequency":    "monthly",
		"date":         "2025-01-31",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: status %d, body %s", rec.Code, rec.Body.String())
	}
	tx := decode[domain.Transaction](t, rec)

	rec = doJSON(t, mux, http.MethodGet, "/api/accounts/"+acc.ID, nil)
	got := decode[domain.Account](t, rec)
	if !got.Balance.Equal(decimal.NewFromInt(650)) {
		t.Errorf("balance after expense = %s, want 650", got.Balance)
	}

	events := cal.EventsByOrigin(domain.OriginTypeTransaction, tx.ID)
	if len(events) != recurrence.OccurrenceCount {
		t.Errorf("projected %d events, want %d", len(events), recurrence.OccurrenceCount)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete transaction: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/accounts/"+acc.ID, nil)
	got = decode[domain.Account](t, rec)
	if !got.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance after delete = %s, want 1000", got.Balance)
	}
	if remaining := cal.EventsByOrigin(domain.OriginTypeTransaction, tx.ID); len(remaining) != 0 {
		t.Errorf("%d projected events remain after delete, want 0", len(remaining))
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/transactions/"+tx.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted transaction: status %d, want 404", rec.Code)
	}
}

func TestTransactionValidationOverHTTP(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/transactions", map[string]any{
		"description": "Ghost",
		"amount":      "0",
		"kind":        "expense",
		"date":        "2025-03-03",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-positive amount: status %d, want 400", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/transactions", map[string]any{
		"description": "Orphan",
		"amount":      "10",
		"kind":        "expense",
		"account_id":  "missing",
		"date":        "2025-03-03",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown account: status %d, want 404", rec.Code)
	}
}

func TestPocketEndpoints(t *testing.T) {
	mux, _ := newTestMux(t)
	acc := createAccount(t, mux, "Checking", "current_asset", "500")

	newPocket := func(name, allocation string) domain.Pocket {
		rec := doJSON(t, mux, http.MethodPost, "/api/pockets", map[string]any{
			"account_id":         acc.ID,
			"name":               name,
			"initial_allocation": allocation,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create pocket: status %d, body %s", rec.Code, rec.Body.String())
		}
		return decode[domain.Pocket](t, rec)
	}

	groceries := newPocket("Groceries", "200")
	savings := newPocket("Savings", "100")

	rec := doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/accounts/%s/unallocated", acc.ID), nil)
	var unalloc struct {
		Unallocated decimal.Decimal `json:"unallocated"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&unalloc); err != nil {
		t.Fatalf("decoding unallocated: %v", err)
	}
	if !unalloc.Unallocated.Equal(decimal.NewFromInt(200)) {
		t.Errorf("unallocated = %s, want 200", unalloc.Unallocated)
	}

	// Transfer exceeding the source allocation maps to 422 and leaves
	// both pockets unchanged.
	rec = doJSON(t, mux, http.MethodPost, "/api/pockets/transfer", map[string]any{
		"from_id": groceries.ID,
		"to_id":   savings.ID,
		"amount":  "999",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over-transfer: status %d, want 422", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/pockets/"+groceries.ID, nil)
	if got := decode[domain.Pocket](t, rec); !got.Allocated.Equal(decimal.NewFromInt(200)) {
		t.Errorf("from.allocated after failed transfer = %s, want 200", got.Allocated)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/pockets/transfer", map[string]any{
		"from_id": groceries.ID,
		"to_id":   savings.ID,
		"amount":  "50",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer: status %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, mux, http.MethodGet, "/api/pockets/"+savings.ID, nil)
	if got := decode[domain.Pocket](t, rec); !got.Allocated.Equal(decimal.NewFromInt(150)) {
		t.Errorf("to.allocated after transfer = %s, want 150", got.Allocated)
	}

	// Pocket operations never touch the account balance.
	rec = doJSON(t, mux, http.MethodGet, "/api/accounts/"+acc.ID, nil)
	if got := decode[domain.Account](t, rec); !got.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("account balance after pocket activity = %s, want 500", got.Balance)
	}

	rec = doJSON(t, mux, http.MethodPut, "/api/pockets/"+groceries.ID+"/allocation", map[string]any{
		"amount": "75",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set allocation: status %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decode[domain.Pocket](t, rec); !got.Allocated.Equal(decimal.NewFromInt(75)) {
		t.Errorf("allocated after set = %s, want 75", got.Allocated)
	}
}

func TestSuggestCategoryUnconfigured(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/transactions/suggest-category", map[string]any{
		"description": "TESCO STORES 3297",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("suggest without a suggester: status %d, want 503", rec.Code)
	}
}
