package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/supplyhub/procure/internal/domain/order"
)

type createOrderItemRequest struct {
	ProductID         string          `json:"productId"`
	ProductName       string          `json:"productName"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	UnitPriceAdjusted decimal.Decimal `json:"unitPriceAdjusted"`
	CashbackAmount    decimal.Decimal `json:"cashbackAmount"`
}

type createOrderRequest struct {
	StoreOrgID                      string                   `json:"storeOrgId"`
	SupplierOrgID                   string                   `json:"supplierOrgId"`
	ShippingAddressID               string                   `json:"shippingAddressId,omitempty"`
	PaymentConditionID              string                   `json:"paymentConditionId,omitempty"`
	AppliedSupplierStateConditionID string                   `json:"appliedSupplierStateConditionId,omitempty"`
	CreatedBy                       string                   `json:"createdBy"`
	CashbackUsed                    decimal.Decimal          `json:"cashbackUsed"`
	Items                           []createOrderItemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status    string `json:"status"`
	ChangedBy string `json:"changedBy"`
	Note      string `json:"note,omitempty"`
}

type orderItemResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"productId"`
	ProductName       string          `json:"productName"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	UnitPriceAdjusted decimal.Decimal `json:"unitPriceAdjusted"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	CashbackAmount    decimal.Decimal `json:"cashbackAmount"`
}

type statusChangeResponse struct {
	PreviousStatus *string   `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	ChangedBy      string    `json:"changedBy,omitempty"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type orderResponse struct {
	ID                string                 `json:"id"`
	StoreOrgID        string                 `json:"storeOrgId"`
	SupplierOrgID     string                 `json:"supplierOrgId"`
	Status            string                 `json:"status"`
	PlacedAt          time.Time              `json:"placedAt"`
	ShippingAddressID string                 `json:"shippingAddressId,omitempty"`
	Subtotal          decimal.Decimal        `json:"subtotalAmount"`
	ShippingCost      decimal.Decimal        `json:"shippingCost"`
	Adjustments       decimal.Decimal        `json:"adjustments"`
	TotalAmount       decimal.Decimal        `json:"totalAmount"`
	TotalCashback     decimal.Decimal        `json:"totalCashback"`
	CashbackUsed      decimal.Decimal        `json:"cashbackUsed"`
	CreatedBy         string                 `json:"createdBy,omitempty"`
	Items             []orderItemResponse    `json:"items"`
	StatusHistory     []statusChangeResponse `json:"statusHistory"`
}

// CreateOrder persists a confirmed order draft.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]order.CreateOrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CreateOrderItem{
			ProductID:         it.ProductID,
			ProductName:       it.ProductName,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			UnitPriceAdjusted: it.UnitPriceAdjusted,
			CashbackAmount:    it.CashbackAmount,
		}
	}

	o, err := h.orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		StoreOrgID:                      req.StoreOrgID,
		SupplierOrgID:                   req.SupplierOrgID,
		ShippingAddressID:               req.ShippingAddressID,
		PaymentConditionID:              req.PaymentConditionID,
		AppliedSupplierStateConditionID: req.AppliedSupplierStateConditionID,
		CreatedBy:                       req.CreatedBy,
		CashbackUsed:                    req.CashbackUsed,
		Items:                           items,
	})
	if err != nil {
		var (
			iqErr *order.InvalidQuantityError
			upErr *order.InvalidUnitPriceError
		)
		switch {
		case errors.Is(err, order.ErrEmptyItems):
			respondError(w, r, http.StatusBadRequest, "items required")
		case errors.As(err, &iqErr), errors.As(err, &upErr):
			respondError(w, r, http.StatusBadRequest, err.Error())
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respondJSON(w, r, http.StatusCreated, toOrderResponse(o))
}

// GetOrder returns an order with items and status history.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// UpdateOrderStatus transitions an order's lifecycle state.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	newStatus, err := order.ParseStatus(req.Status)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), newStatus, req.ChangedBy, req.Note)
	if err != nil {
		var itErr *order.InvalidTransitionError
		switch {
		case errors.Is(err, order.ErrNotFound):
			respondError(w, r, http.StatusNotFound, "order not found")
		case errors.As(err, &itErr):
			respondError(w, r, http.StatusConflict, itErr.Error())
		case errors.Is(err, order.ErrStatusChanged):
			respondError(w, r, http.StatusConflict, "order status changed concurrently, retry")
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respondJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ID:                it.ID,
			ProductID:         it.ProductID,
			ProductName:       it.ProductName,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			UnitPriceAdjusted: it.UnitPriceAdjusted,
			TotalPrice:        it.TotalPrice,
			CashbackAmount:    it.CashbackAmount,
		}
	}

	history := make([]statusChangeResponse, len(o.StatusHistory))
	for i, h := range o.StatusHistory {
		var prev *string
		if h.PreviousStatus != nil {
			s := string(*h.PreviousStatus)
			prev = &s
		}
		history[i] = statusChangeResponse{
			PreviousStatus: prev,
			NewStatus:      string(h.NewStatus),
			ChangedBy:      h.ChangedBy,
			Note:           h.Note,
			CreatedAt:      h.CreatedAt,
		}
	}

	return orderResponse{
		ID:                o.ID,
		StoreOrgID:        o.StoreOrgID,
		SupplierOrgID:     o.SupplierOrgID,
		Status:            string(o.Status),
		PlacedAt:          o.PlacedAt,
		ShippingAddressID: o.ShippingAddressID,
		Subtotal:          o.SubtotalAmount,
		ShippingCost:      o.ShippingCost,
		Adjustments:       o.Adjustments,
		TotalAmount:       o.TotalAmount,
		TotalCashback:     o.TotalCashback,
		CashbackUsed:      o.CashbackUsed,
		CreatedBy:         o.CreatedBy,
		Items:             items,
		StatusHistory:     history,
	}
}
