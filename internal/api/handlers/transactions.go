package handlers

import (
	"encoding/json"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/api/middleware"
	"github.com/omnitrack/ledger/internal/categorize"
	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/ledger"
	"github.com/omnitrack/ledger/internal/store"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	svc       *ledger.Service
	suggester *categorize.Suggester
	log       zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler. suggester may
// be nil when category suggestions are disabled.
func NewTransactionsHandler(svc *ledger.Service, suggester *categorize.Suggester, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{svc: svc, suggester: suggester, log: log}
}

type transactionRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind"`
	AccountID   string          `json:"account_id"`
	IsRecurring bool            `json:"is_recurring"`
	Frequency   string          `json:"frequency"`
	Category    string          `json:"category"`
	AreaID      string          `json:"area_id"`
	Date        civil.Date      `json:"date"`
}

func (req *transactionRequest) fields() ledger.Fields {
	return ledger.Fields{
		Description: req.Description,
		Amount:      req.Amount,
		Kind:        domain.TransactionKind(req.Kind),
		AccountID:   req.AccountID,
		IsRecurring: req.IsRecurring,
		Frequency:   domain.Frequency(req.Frequency),
		Category:    req.Category,
		AreaID:      req.AreaID,
		Date:        req.Date,
	}
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.Create(r.Context(), req.fields())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.TransactionFilter{
		AccountID: query.Get("account_id"),
		Category:  query.Get("category"),
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Get handles GET /api/transactions/{id}
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Update handles PUT /api/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.Edit(r.Context(), r.PathValue("id"), req.fields())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Delete handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// SuggestCategory handles POST /api/transactions/suggest-category
func (h *TransactionsHandler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	if h.suggester == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Category suggestions are not configured")
		return
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}

	suggestion, err := h.suggester.Suggest(r.Context(), req.Description)
	if err != nil {
		h.log.Error().Err(err).Msg("Category suggestion failed")
		middleware.WriteError(w, http.StatusBadGateway, "Category suggestion failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, suggestion)
}
