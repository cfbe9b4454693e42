// Package pricing computes order quotes: subtotals, shipping, promotional
// cashback, and per-item breakdowns. A quote is a pure function of the current
// rule catalog state; nothing is persisted and results must not be cached
// beyond a short TTL since campaigns can start or stop between calls.
package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/supplyhub/procure/internal/domain/catalog"
)

// ShippingFlatFee is the flat shipping cost applied when a shipping address
// is present on the request. Shipping computation is deliberately a
// placeholder; there is no carrier integration.
var ShippingFlatFee = decimal.RequireFromString("15.00")

// Sentinel errors for quote validation.
var ErrEmptyItems = errors.New("items required")

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidUnitPriceError indicates a line item has a non-positive unit price.
type InvalidUnitPriceError struct {
	ProductID string
}

func (e *InvalidUnitPriceError) Error() string {
	return fmt.Sprintf("unit price must be greater than 0 for product %s", e.ProductID)
}

// QuoteItem is a candidate order line for quoting.
type QuoteItem struct {
	ProductID  string
	CategoryID string // optional; required for CATEGORY-scope campaign eligibility
	UnitPrice  decimal.Decimal
	Quantity   int
}

// QuoteRequest is a candidate order draft.
type QuoteRequest struct {
	StoreOrgID         string
	SupplierOrgID      string
	ShippingAddressID  string // optional
	ShippingState      string // optional two-letter region code of the shipping address
	PaymentConditionID string // optional
	Items              []QuoteItem
}

// ItemQuote is the calculated breakdown for a single line.
type ItemQuote struct {
	ProductID         string
	Quantity          int
	UnitPrice         decimal.Decimal
	UnitPriceAdjusted decimal.Decimal
	TotalPrice        decimal.Decimal
	CashbackAmount    decimal.Decimal
}

// PaymentConditionInfo is the informational payment-terms metadata attached
// to a quote. It never affects totals.
type PaymentConditionInfo struct {
	ID            string
	Name          string
	PaymentMethod string
}

// CampaignApplied records one campaign that matched the quote.
type CampaignApplied struct {
	ID             string
	Name           string
	Type           catalog.CampaignType
	GiftProductID  string          // set for GIFT campaigns
	CashbackAmount decimal.Decimal // zero for GIFT campaigns
}

// AdjustmentDetails collects the rule sources that contributed to (or were
// surfaced on) the quote.
type AdjustmentDetails struct {
	PaymentCondition       *PaymentConditionInfo
	SupplierStateCondition *catalog.SupplierStateCondition
	Campaigns              []CampaignApplied
}

// Quote is the calculated, non-persisted result of evaluating a request.
// TotalAmount == Subtotal + ShippingCost + Adjustments, all rounded to 2dp.
type Quote struct {
	Subtotal      decimal.Decimal
	ShippingCost  decimal.Decimal
	Adjustments   decimal.Decimal
	TotalAmount   decimal.Decimal
	TotalCashback decimal.Decimal
	Items         []ItemQuote
	Details       AdjustmentDetails
}
