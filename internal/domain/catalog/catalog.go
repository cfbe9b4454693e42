// Package catalog holds the promotional and pricing rule types and the
// read-only repositories the quote resolver evaluates against: campaigns,
// supplier-state conditions, and payment conditions.
package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CampaignType enumerates the supported promotional campaign kinds.
type CampaignType string

const (
	// CampaignCashback grants a percentage of the order subtotal as cashback.
	CampaignCashback CampaignType = "CASHBACK"
	// CampaignGift grants a gift product; it contributes no cashback.
	CampaignGift CampaignType = "GIFT"
)

// CampaignScope enumerates which products a campaign applies to.
type CampaignScope string

const (
	// ScopeAll applies to every product of the supplier.
	ScopeAll CampaignScope = "ALL"
	// ScopeCategory applies to products within a single category.
	ScopeCategory CampaignScope = "CATEGORY"
	// ScopeProduct applies to an explicit list of products.
	ScopeProduct CampaignScope = "PRODUCT"
)

// Campaign is a time-bounded promotional rule owned by a supplier.
type Campaign struct {
	ID              string
	SupplierOrgID   string
	Name            string
	Type            CampaignType
	Scope           CampaignScope
	MinTotal        *decimal.Decimal
	MinQuantity     *int
	CashbackPercent decimal.Decimal // meaningful only when Type is CASHBACK
	GiftProductID   string          // set only when Type is GIFT
	CategoryID      string          // set only when Scope is CATEGORY
	ProductIDs      []string        // set only when Scope is PRODUCT
	StartAt         *time.Time
	EndAt           *time.Time
	Active          bool
}

// ActiveAt reports whether the campaign is eligible for evaluation at the
// given instant: the active flag is set and now falls within the optional
// [StartAt, EndAt] window. An unset bound is unbounded.
func (c *Campaign) ActiveAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return false
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return false
	}
	return true
}

// SupplierStateCondition is a region-specific pricing/cashback/term override
// scoped to one supplier and one two-letter state code. At most one condition
// exists per (supplier, state) pair.
type SupplierStateCondition struct {
	ID                  string
	SupplierOrgID       string
	State               string
	CashbackPercent     *decimal.Decimal
	PaymentTermDays     *int
	UnitPriceAdjustment *decimal.Decimal
	EffectiveFrom       *time.Time
	EffectiveTo         *time.Time
}

// CurrentAt reports whether the condition is in effect at the given instant.
// An unset bound is unbounded.
func (c *SupplierStateCondition) CurrentAt(now time.Time) bool {
	if c.EffectiveFrom != nil && now.Before(*c.EffectiveFrom) {
		return false
	}
	if c.EffectiveTo != nil && now.After(*c.EffectiveTo) {
		return false
	}
	return true
}

// PaymentCondition is informational payment-terms metadata. It is surfaced in
// quotes but never changes totals.
type PaymentCondition struct {
	ID              string
	SupplierOrgID   string
	Name            string
	PaymentTermDays int
	PaymentMethod   string
	Notes           string
	Active          bool
}

// CampaignRepository provides read access to promotional campaigns.
type CampaignRepository interface {
	// ListActiveBySupplier returns campaigns for the supplier whose active
	// flag is set. Time-window filtering is left to the caller so it can be
	// evaluated against a single consistent clock reading.
	ListActiveBySupplier(ctx context.Context, supplierOrgID string) ([]Campaign, error)
}

// ConditionRepository provides read access to supplier-state and payment
// conditions. Lookups return (nil, nil) when no matching row exists; absence
// is an ordinary outcome here, not an error.
type ConditionRepository interface {
	// GetSupplierStateCondition returns the currently-effective condition for
	// the supplier and state, or nil when none exists.
	GetSupplierStateCondition(ctx context.Context, supplierOrgID, state string) (*SupplierStateCondition, error)
	// GetPaymentCondition returns the active payment condition with the given
	// id, or nil when none exists.
	GetPaymentCondition(ctx context.Context, id string) (*PaymentCondition, error)
}
