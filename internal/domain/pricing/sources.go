package pricing

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/supplyhub/procure/internal/domain/catalog"
)

// AdjustmentSource contributes adjustments or rule metadata to a quote under
// construction. Sources run after subtotals are computed and before campaign
// evaluation, in registration order.
type AdjustmentSource interface {
	Apply(ctx context.Context, req QuoteRequest, q *Quote) error
}

// SupplierStateSource surfaces the currently-effective supplier-state
// condition for the request's shipping region on the quote's adjustment
// details.
//
// The condition's unit-price adjustment and cashback percent are NOT applied
// to the quote: how they interact with campaign cashback is unresolved
// product behaviour. When that is decided, the application belongs here.
type SupplierStateSource struct {
	Conditions catalog.ConditionRepository
}

// Apply looks up the condition for (supplier, shipping state) and attaches it
// when present. Requests without a shipping state are skipped.
func (s *SupplierStateSource) Apply(ctx context.Context, req QuoteRequest, q *Quote) error {
	if req.ShippingState == "" {
		return nil
	}

	cond, err := s.Conditions.GetSupplierStateCondition(ctx, req.SupplierOrgID, req.ShippingState)
	if err != nil {
		return errors.Wrap(err, "get supplier state condition")
	}
	if cond != nil {
		q.Details.SupplierStateCondition = cond
	}
	return nil
}
