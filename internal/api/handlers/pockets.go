package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omnitrack/ledger/internal/api/middleware"
	"github.com/omnitrack/ledger/internal/pockets"
)

// PocketsHandler handles pocket-related endpoints.
type PocketsHandler struct {
	allocator *pockets.Allocator
	log       zerolog.Logger
}

// NewPocketsHandler creates a new pockets handler.
func NewPocketsHandler(allocator *pockets.Allocator, log zerolog.Logger) *PocketsHandler {
	return &PocketsHandler{allocator: allocator, log: log}
}

// Create handles POST /api/pockets
func (h *PocketsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID         string           `json:"account_id"`
		Name              string           `json:"name"`
		InitialAllocation decimal.Decimal  `json:"initial_allocation"`
		Target            *decimal.Decimal `json:"target"`
		AreaID            string           `json:"area_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.allocator.CreatePocket(r.Context(), pockets.CreateParams{
		AccountID:         req.AccountID,
		Name:              req.Name,
		InitialAllocation: req.InitialAllocation,
		Target:            req.Target,
		AreaID:            req.AreaID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/pockets/{id}
func (h *PocketsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.allocator.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, p)
}

// SetAllocation handles PUT /api/pockets/{id}/allocation
func (h *PocketsHandler) SetAllocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.allocator.SetAllocation(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, p)
}

// Transfer handles POST /api/pockets/transfer
func (h *PocketsHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromID string          `json:"from_id"`
		ToID   string          `json:"to_id"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.allocator.Transfer(r.Context(), req.FromID, req.ToID, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

// Delete handles DELETE /api/pockets/{id}
func (h *PocketsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.allocator.DeletePocket(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
