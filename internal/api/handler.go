// Package api exposes the pricing, order lifecycle, and cashback ledger
// operations as a small JSON HTTP surface for the platform's CRUD layer.
package api

import (
	"net/http"

	"github.com/supplyhub/procure/internal/domain/ledger"
	"github.com/supplyhub/procure/internal/domain/order"
	"github.com/supplyhub/procure/internal/domain/pricing"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	resolver *pricing.Resolver
	orders   *order.Service
	wallet   *ledger.Service
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(resolver *pricing.Resolver, orders *order.Service, wallet *ledger.Service) *Handler {
	return &Handler{
		resolver: resolver,
		orders:   orders,
		wallet:   wallet,
	}
}

// Register attaches all routes to the mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quotes", h.CreateQuote)
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /api/orders/{id}/status", h.UpdateOrderStatus)
	mux.HandleFunc("GET /api/orders/{id}/cashback", h.GetOrderCashback)
	mux.HandleFunc("GET /api/organizations/{id}/wallet", h.GetWallet)
	mux.HandleFunc("GET /api/organizations/{id}/wallet/transactions", h.GetWalletHistory)
	mux.HandleFunc("POST /api/wallet/earn", h.EarnCashback)
	mux.HandleFunc("POST /api/wallet/use", h.UseCashback)
}
