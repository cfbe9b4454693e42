package pricing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/supplyhub/procure/internal/domain/catalog"
)

var hundred = decimal.NewFromInt(100)

// Resolver computes quotes by evaluating the rule catalog against a candidate
// order draft.
type Resolver struct {
	campaigns  catalog.CampaignRepository
	conditions catalog.ConditionRepository
	sources    []AdjustmentSource
	now        func() time.Time
}

// NewResolver creates a Resolver over the given catalog repositories. The
// default adjustment source set surfaces the supplier-state condition on the
// quote without applying it to prices.
func NewResolver(campaigns catalog.CampaignRepository, conditions catalog.ConditionRepository) *Resolver {
	return &Resolver{
		campaigns:  campaigns,
		conditions: conditions,
		sources: []AdjustmentSource{
			&SupplierStateSource{Conditions: conditions},
		},
		now: time.Now,
	}
}

// Quote evaluates the request against current campaign and condition state.
// It has no side effects.
func (r *Resolver) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Per-item subtotals. No supplier-state price adjustment is applied here,
	// so the adjusted unit price starts equal to the original.
	items := make([]ItemQuote, len(req.Items))
	subtotal := decimal.Zero
	totalQty := 0
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
		if !it.UnitPrice.IsPositive() {
			return nil, &InvalidUnitPriceError{ProductID: it.ProductID}
		}

		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		items[i] = ItemQuote{
			ProductID:         it.ProductID,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			UnitPriceAdjusted: it.UnitPrice,
			TotalPrice:        line,
			CashbackAmount:    decimal.Zero,
		}
		subtotal = subtotal.Add(line)
		totalQty += it.Quantity
	}
	subtotal = subtotal.Round(2)

	q := &Quote{
		Subtotal:      subtotal,
		Adjustments:   decimal.Zero,
		TotalCashback: decimal.Zero,
		Items:         items,
	}

	// Informational payment-terms metadata. An unknown id is tolerated and
	// simply leaves the slot empty.
	if req.PaymentConditionID != "" {
		pc, err := r.conditions.GetPaymentCondition(ctx, req.PaymentConditionID)
		if err != nil {
			return nil, errors.Wrap(err, "get payment condition")
		}
		if pc != nil {
			q.Details.PaymentCondition = &PaymentConditionInfo{
				ID:            pc.ID,
				Name:          pc.Name,
				PaymentMethod: pc.PaymentMethod,
			}
		}
	}

	// Additional rule sources (supplier-state condition today).
	for _, src := range r.sources {
		if err := src.Apply(ctx, req, q); err != nil {
			return nil, errors.Wrap(err, "apply adjustment source")
		}
	}

	// Campaign evaluation: eligible CASHBACK campaigns stack additively;
	// GIFT campaigns are recorded but contribute no cashback.
	campaigns, err := r.campaigns.ListActiveBySupplier(ctx, req.SupplierOrgID)
	if err != nil {
		return nil, errors.Wrap(err, "list campaigns")
	}

	now := r.now()
	totalCashback := decimal.Zero
	for i := range campaigns {
		c := &campaigns[i]
		if !c.ActiveAt(now) {
			continue
		}
		if !eligible(c, req.Items, subtotal, totalQty) {
			continue
		}

		applied := CampaignApplied{
			ID:             c.ID,
			Name:           c.Name,
			Type:           c.Type,
			GiftProductID:  c.GiftProductID,
			CashbackAmount: decimal.Zero,
		}
		if c.Type == catalog.CampaignCashback {
			amount := subtotal.Mul(c.CashbackPercent).Div(hundred).Round(2)
			applied.CashbackAmount = amount
			totalCashback = totalCashback.Add(amount)
		}
		q.Details.Campaigns = append(q.Details.Campaigns, applied)
	}

	q.TotalCashback = totalCashback.Round(2)
	if q.TotalCashback.IsPositive() {
		distributeCashback(q.Items, subtotal, q.TotalCashback)
	}

	// Flat shipping fee only when a shipping address was supplied.
	q.ShippingCost = decimal.Zero
	if req.ShippingAddressID != "" {
		q.ShippingCost = ShippingFlatFee
	}

	q.TotalAmount = q.Subtotal.Add(q.ShippingCost).Add(q.Adjustments).Round(2)
	return q, nil
}

// eligible evaluates the campaign's eligibility rules in order, failing on
// the first unmet rule: minimum total, minimum quantity, then scope.
func eligible(c *catalog.Campaign, items []QuoteItem, subtotal decimal.Decimal, totalQty int) bool {
	if c.MinTotal != nil && subtotal.LessThan(*c.MinTotal) {
		return false
	}
	if c.MinQuantity != nil && totalQty < *c.MinQuantity {
		return false
	}

	switch c.Scope {
	case catalog.ScopeProduct:
		return anyProductMatch(items, c.ProductIDs)
	case catalog.ScopeCategory:
		return anyCategoryMatch(items, c.CategoryID)
	default:
		return true
	}
}

func anyProductMatch(items []QuoteItem, productIDs []string) bool {
	for _, it := range items {
		for _, id := range productIDs {
			if it.ProductID == id {
				return true
			}
		}
	}
	return false
}

func anyCategoryMatch(items []QuoteItem, categoryID string) bool {
	if categoryID == "" {
		return false
	}
	for _, it := range items {
		if it.CategoryID == categoryID {
			return true
		}
	}
	return false
}

var cent = decimal.New(1, -2)

// distributeCashback splits the total cashback across items proportionally to
// each item's share of the subtotal. Shares are floor-rounded to 2dp and the
// leftover cents are handed out one per item from the front, so every share
// stays non-negative and the shares sum exactly to the total.
func distributeCashback(items []ItemQuote, subtotal, total decimal.Decimal) {
	allocated := decimal.Zero
	for i := range items {
		share := items[i].TotalPrice.Div(subtotal).Mul(total).RoundDown(2)
		items[i].CashbackAmount = share
		allocated = allocated.Add(share)
	}

	// Floor rounding under-allocates by less than a cent per item, so the
	// remainder is a non-negative whole number of cents below len(items).
	remainder := total.Sub(allocated)
	for i := 0; remainder.IsPositive(); i = (i + 1) % len(items) {
		items[i].CashbackAmount = items[i].CashbackAmount.Add(cent)
		remainder = remainder.Sub(cent)
	}
}
