package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/supplyhub/procure/internal/domain/ledger"
)

type earnRequest struct {
	OrganizationID string          `json:"organizationId"`
	OrderID        string          `json:"orderId,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	ReferenceID    string          `json:"referenceId,omitempty"`
	ReferenceType  string          `json:"referenceType,omitempty"`
	Description    string          `json:"description,omitempty"`
}

type useRequest struct {
	OrganizationID string          `json:"organizationId"`
	OrderID        string          `json:"orderId,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description,omitempty"`
}

type walletResponse struct {
	OrganizationID   string          `json:"organizationId"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	TotalEarned      decimal.Decimal `json:"totalEarned"`
	TotalUsed        decimal.Decimal `json:"totalUsed"`
}

type transactionResponse struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"orderId,omitempty"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	ReferenceID   string          `json:"referenceId,omitempty"`
	ReferenceType string          `json:"referenceType,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// EarnCashback credits cashback to an organization's wallet.
func (h *Handler) EarnCashback(w http.ResponseWriter, r *http.Request) {
	var req earnRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	txn, err := h.wallet.Earn(r.Context(), ledger.EarnRequest{
		OrganizationID: req.OrganizationID,
		OrderID:        req.OrderID,
		Amount:         req.Amount,
		ReferenceID:    req.ReferenceID,
		ReferenceType:  req.ReferenceType,
		Description:    req.Description,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			respondError(w, r, http.StatusBadRequest, "amount must be greater than zero")
			return
		}
		respondInternal(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, toTransactionResponse(txn))
}

// UseCashback redeems cashback from an organization's wallet.
func (h *Handler) UseCashback(w http.ResponseWriter, r *http.Request) {
	var req useRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	txn, err := h.wallet.Use(r.Context(), ledger.UseRequest{
		OrganizationID: req.OrganizationID,
		OrderID:        req.OrderID,
		Amount:         req.Amount,
		Description:    req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			respondError(w, r, http.StatusBadRequest, "amount must be greater than zero")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			respondError(w, r, http.StatusUnprocessableEntity, "insufficient cashback balance")
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respondJSON(w, r, http.StatusCreated, toTransactionResponse(txn))
}

// GetWallet returns an organization's wallet balance, creating the wallet
// lazily on first access.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.wallet.Balance(r.Context(), r.PathValue("id"))
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, walletResponse{
		OrganizationID:   wallet.OrganizationID,
		AvailableBalance: wallet.AvailableBalance,
		TotalEarned:      wallet.TotalEarned,
		TotalUsed:        wallet.TotalUsed,
	})
}

// GetWalletHistory returns an organization's transactions, oldest first.
// Optional query parameters: type (EARNED|USED), limit.
func (h *Handler) GetWalletHistory(w http.ResponseWriter, r *http.Request) {
	var f ledger.HistoryFilter
	if t := r.URL.Query().Get("type"); t != "" {
		tt := ledger.TransactionType(t)
		if tt != ledger.TransactionEarned && tt != ledger.TransactionUsed {
			respondError(w, r, http.StatusBadRequest, "unknown transaction type")
			return
		}
		f.Type = &tt
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			respondError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}

	txns, err := h.wallet.History(r.Context(), r.PathValue("id"), f)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toTransactionResponses(txns))
}

// GetOrderCashback returns all ledger transactions referencing an order.
func (h *Handler) GetOrderCashback(w http.ResponseWriter, r *http.Request) {
	txns, err := h.wallet.HistoryByOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toTransactionResponses(txns))
}

func toTransactionResponse(t *ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		OrderID:       t.OrderID,
		Type:          string(t.Type),
		Amount:        t.Amount,
		ReferenceID:   t.ReferenceID,
		ReferenceType: t.ReferenceType,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
	}
}

func toTransactionResponses(txns []ledger.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txns))
	for i := range txns {
		out[i] = toTransactionResponse(&txns[i])
	}
	return out
}
