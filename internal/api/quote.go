package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/supplyhub/procure/internal/domain/pricing"
)

type quoteItemRequest struct {
	ProductID  string          `json:"productId"`
	CategoryID string          `json:"categoryId,omitempty"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
}

type quoteRequest struct {
	StoreOrgID         string             `json:"storeOrgId"`
	SupplierOrgID      string             `json:"supplierOrgId"`
	ShippingAddressID  string             `json:"shippingAddressId,omitempty"`
	ShippingState      string             `json:"shippingState,omitempty"`
	PaymentConditionID string             `json:"paymentConditionId,omitempty"`
	Items              []quoteItemRequest `json:"items"`
}

type quoteItemResponse struct {
	ProductID         string          `json:"productId"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	UnitPriceAdjusted decimal.Decimal `json:"unitPriceAdjusted"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	CashbackAmount    decimal.Decimal `json:"cashbackAmount"`
}

type paymentConditionResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PaymentMethod string `json:"paymentMethod"`
}

type campaignAppliedResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	GiftProductID  string          `json:"giftProductId,omitempty"`
	CashbackAmount decimal.Decimal `json:"cashbackAmount"`
}

type adjustmentDetailsResponse struct {
	PaymentCondition         *paymentConditionResponse `json:"paymentCondition,omitempty"`
	SupplierStateConditionID string                    `json:"supplierStateConditionId,omitempty"`
	Campaigns                []campaignAppliedResponse `json:"campaigns,omitempty"`
}

type quoteResponse struct {
	Subtotal      decimal.Decimal           `json:"subtotal"`
	ShippingCost  decimal.Decimal           `json:"shippingCost"`
	Adjustments   decimal.Decimal           `json:"adjustments"`
	TotalAmount   decimal.Decimal           `json:"totalAmount"`
	TotalCashback decimal.Decimal           `json:"totalCashback"`
	Items         []quoteItemResponse       `json:"items"`
	Details       adjustmentDetailsResponse `json:"adjustmentDetails"`
}

// CreateQuote computes a non-persisted quote for a candidate order draft.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]pricing.QuoteItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = pricing.QuoteItem{
			ProductID:  it.ProductID,
			CategoryID: it.CategoryID,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
		}
	}

	q, err := h.resolver.Quote(r.Context(), pricing.QuoteRequest{
		StoreOrgID:         req.StoreOrgID,
		SupplierOrgID:      req.SupplierOrgID,
		ShippingAddressID:  req.ShippingAddressID,
		ShippingState:      req.ShippingState,
		PaymentConditionID: req.PaymentConditionID,
		Items:              items,
	})
	if err != nil {
		var (
			iqErr *pricing.InvalidQuantityError
			upErr *pricing.InvalidUnitPriceError
		)
		switch {
		case errors.Is(err, pricing.ErrEmptyItems):
			respondError(w, r, http.StatusBadRequest, "items required")
		case errors.As(err, &iqErr), errors.As(err, &upErr):
			respondError(w, r, http.StatusBadRequest, err.Error())
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respondJSON(w, r, http.StatusOK, toQuoteResponse(q))
}

func toQuoteResponse(q *pricing.Quote) quoteResponse {
	items := make([]quoteItemResponse, len(q.Items))
	for i, it := range q.Items {
		items[i] = quoteItemResponse{
			ProductID:         it.ProductID,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			UnitPriceAdjusted: it.UnitPriceAdjusted,
			TotalPrice:        it.TotalPrice,
			CashbackAmount:    it.CashbackAmount,
		}
	}

	details := adjustmentDetailsResponse{}
	if pc := q.Details.PaymentCondition; pc != nil {
		details.PaymentCondition = &paymentConditionResponse{
			ID:            pc.ID,
			Name:          pc.Name,
			PaymentMethod: pc.PaymentMethod,
		}
	}
	if sc := q.Details.SupplierStateCondition; sc != nil {
		details.SupplierStateConditionID = sc.ID
	}
	for _, c := range q.Details.Campaigns {
		details.Campaigns = append(details.Campaigns, campaignAppliedResponse{
			ID:             c.ID,
			Name:           c.Name,
			Type:           string(c.Type),
			GiftProductID:  c.GiftProductID,
			CashbackAmount: c.CashbackAmount,
		})
	}

	return quoteResponse{
		Subtotal:      q.Subtotal,
		ShippingCost:  q.ShippingCost,
		Adjustments:   q.Adjustments,
		TotalAmount:   q.TotalAmount,
		TotalCashback: q.TotalCashback,
		Items:         items,
		Details:       details,
	}
}
