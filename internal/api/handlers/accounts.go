// Package handlers implements the HTTP surface of the ledger API. Handlers
// decode and encode; every rule lives in the services underneath.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/accounts"
	"github.com/omnitrack/ledger/internal/api/middleware"
	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/pockets"
)

// AccountsHandler handles account-related endpoints.
type AccountsHandler struct {
	svc       *accounts.Service
	allocator *pockets.Allocator
	log       zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(svc *accounts.Service, allocator *pockets.Allocator, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{svc: svc, allocator: allocator, log: log}
}

type accountRequest struct {
	Name           string          `json:"name"`
	Kind           string          `json:"kind"`
	Class          string          `json:"class"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acc, err := h.svc.Create(r.Context(), accounts.CreateParams{
		Name:           req.Name,
		Kind:           req.Kind,
		Class:          domain.AccountClass(req.Class),
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, acc)
}

// List handles GET /api/accounts
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accs, err := h.svc.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accs,
		"count":    len(accs),
	})
}

// Get handles GET /api/accounts/{id}
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, acc)
}

// Update handles PUT /api/accounts/{id}. Only metadata is updatable; the
// balance has no write endpoint.
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acc, err := h.svc.UpdateMetadata(r.Context(), r.PathValue("id"), req.Name, req.Kind, domain.AccountClass(req.Class))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, acc)
}

// Delete handles DELETE /api/accounts/{id}
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListPockets handles GET /api/accounts/{id}/pockets
func (h *AccountsHandler) ListPockets(w http.ResponseWriter, r *http.Request) {
	pcks, err := h.allocator.ListByAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"pockets": pcks,
		"count":   len(pcks),
	})
}

// Unallocated handles GET /api/accounts/{id}/unallocated
func (h *AccountsHandler) Unallocated(w http.ResponseWriter, r *http.Request) {
	amount, err := h.allocator.Unallocated(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":  r.PathValue("id"),
		"unallocated": amount,
	})
}
