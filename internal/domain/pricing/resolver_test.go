package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplyhub/procure/internal/domain/catalog"
)

// --- Mock implementations ---

type mockCampaignRepo struct {
	campaigns []catalog.Campaign
	err       error
}

func (m *mockCampaignRepo) ListActiveBySupplier(_ context.Context, _ string) ([]catalog.Campaign, error) {
	return m.campaigns, m.err
}

type mockConditionRepo struct {
	stateCond   *catalog.SupplierStateCondition
	paymentCond *catalog.PaymentCondition
	err         error
}

func (m *mockConditionRepo) GetSupplierStateCondition(_ context.Context, _, _ string) (*catalog.SupplierStateCondition, error) {
	return m.stateCond, m.err
}

func (m *mockConditionRepo) GetPaymentCondition(_ context.Context, _ string) (*catalog.PaymentCondition, error) {
	return m.paymentCond, m.err
}

// --- Helpers ---

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newResolver(campaigns *mockCampaignRepo, conditions *mockConditionRepo) *Resolver {
	r := NewResolver(campaigns, conditions)
	r.now = func() time.Time { return fixedNow }
	return r
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(v int) *int { return &v }

func cashbackCampaign(id string, percent string) catalog.Campaign {
	return catalog.Campaign{
		ID:              id,
		SupplierOrgID:   "sup-1",
		Name:            id,
		Type:            catalog.CampaignCashback,
		Scope:           catalog.ScopeAll,
		CashbackPercent: dec(percent),
		Active:          true,
	}
}

// --- Tests ---

func TestQuote_EmptyItems(t *testing.T) {
	r := newResolver(&mockCampaignRepo{}, &mockConditionRepo{})

	_, err := r.Quote(context.Background(), QuoteRequest{SupplierOrgID: "sup-1"})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestQuote_InvalidQuantity(t *testing.T) {
	r := newResolver(&mockCampaignRepo{}, &mockConditionRepo{})

	_, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		Items:         []QuoteItem{{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestQuote_InvalidUnitPrice(t *testing.T) {
	r := newResolver(&mockCampaignRepo{}, &mockConditionRepo{})

	_, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		Items:         []QuoteItem{{ProductID: "p1", UnitPrice: decimal.Zero, Quantity: 1}},
	})

	var upErr *InvalidUnitPriceError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "p1", upErr.ProductID)
}

func TestQuote_SubtotalAndTotal(t *testing.T) {
	r := newResolver(&mockCampaignRepo{}, &mockConditionRepo{})

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		Items: []QuoteItem{
			{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 2},
			{ProductID: "p2", UnitPrice: dec("20.00"), Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.True(t, dec("40.00").Equal(q.Subtotal))
	assert.True(t, decimal.Zero.Equal(q.ShippingCost))
	assert.True(t, decimal.Zero.Equal(q.Adjustments))
	assert.True(t, dec("40.00").Equal(q.TotalAmount))
	assert.True(t, decimal.Zero.Equal(q.TotalCashback))
	require.Len(t, q.Items, 2)
	assert.True(t, q.Items[0].UnitPrice.Equal(q.Items[0].UnitPriceAdjusted))
}

func TestQuote_ShippingFeeWithAddress(t *testing.T) {
	r := newResolver(&mockCampaignRepo{}, &mockConditionRepo{})

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID:     "sup-1",
		ShippingAddressID: "addr-1",
		Items:             []QuoteItem{{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 1}},
	})

	require.NoError(t, err)
	assert.True(t, ShippingFlatFee.Equal(q.ShippingCost))
	assert.True(t, dec("25.00").Equal(q.TotalAmount))
}

func TestQuote_CashbackCampaign(t *testing.T) {
	// One active 10% campaign, order subtotal 200.00 split over two equal
	// items: 20.00 cashback distributed 10.00 each.
	campaigns := &mockCampaignRepo{campaigns: []catalog.Campaign{cashbackCampaign("c1", "10")}}
	r := newResolver(campaigns, &mockConditionRepo{})

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		Items: []QuoteItem{
			{ProductID: "p1", UnitPrice: dec("100.00"), Quantity: 1},
			{ProductID: "p2", UnitPrice: dec("100.00"), Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.True(t, dec("20.00").Equal(q.TotalCashback))
	assert.True(t, dec("10.00").Equal(q.Items[0].CashbackAmount))
	assert.True(t, dec("10.00").Equal(q.Items[1].CashbackAmount))
	require.Len(t, q.Details.Campaigns, 1)
	assert.True(t, dec("20.00").Equal(q.Details.Campaigns[0].CashbackAmount))
}

func TestQuote_CashbackStacksAdditively(t *testing.T) {
	campaigns := &mockCampaignRepo{campaigns: []catalog.Campaign{
		cashbackCampaign("c1", "10"),
		cashbackCampaign("c2", "5"),
	}}
	r := newResolver(campaigns, &mockConditionRepo{})

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		Items:         []QuoteItem{{ProductID: "p1", UnitPrice: dec("100.00"), Quantity: 1}},
	})

	require.NoError(t, err)
	assert.True(t, dec("15.00").Equal(q.TotalCashback))
	assert.Len(t, q.Details.Campaigns, 2)
}

func TestQuote_MinTotalBoundary(t *testing.T) {
	c := cashbackCampaign("c1", "10")
	c.MinTotal = decPtr("100.00")
	campaigns := &mockCampaignRepo{campaigns: []catalog.Campaign{c}}

	tests := []struct {
		name         string
		unitPrice    string
		wantCashback string
	}{
		{name: "just below threshold", unitPrice: "99.99", wantCashback: "0"},
		{name: "exactly at threshold", unitPrice: "100.00", wantCashback: "10.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(campaigns, &mockConditionRepo{})
			q, err := r.Quote(context.Background(), QuoteRequest{
				SupplierOrgID: "sup-1",
				Items:         []QuoteItem{{ProductID: "p1", UnitPrice: dec(tt.unitPrice), Quantity: 1}},
			})

			require.NoError(t, err)
			assert.True(t, dec(tt.wantCashback).Equal(q.TotalCashback),
				"expected cashback %s, got %s", tt.wantCashback, q.TotalCashback)
		})
	}
}

func TestQuote_MinQuantity(t *testing.T) {
	c := cashbackCampaign("c1", "10")
	c.MinQuantity = intPtr(3)
	campaigns := &mockCampaignRepo{campaigns: []catalog.Campaign{c}}
	r := newResolver(campaigns, &mockConditionRepo{})

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		Items:         []QuoteItem{{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 2}},
	})

	require.NoError(t, err)
	assert.True(t, q.TotalCashback.IsZero())
	assert.Empty(t, q.Details.Campaigns)
}

func TestQuote_ProductScope(t *testing.T) {
	c := cashbackCampaign("c1", "10")
	c.Scope = catalog.ScopeProduct
	c.ProductIDs = []string{"pA", "pB"}
	campaigns := &mockCampaignRepo{campaigns: []catalog.Campaign{c}}

	t.Run("no ordered product in list", func(t *testing.T) {
		r := newResolver(campaigns, &mockConditionRepo{})
		q, err := r.Quote(context.Background(), QuoteRequest{
			SupplierOrgID: "sup-1",
			Items:         []QuoteItem{{ProductID: "pC", UnitPrice: dec("50.00"), Quantity: 1}},
		})
		require.NoError(t, err)
		assert.True(t, q.TotalCashback.IsZero())
	})

	t.Run("one ordered product in list", func(t *testing.T) {
		r := newResolver(campaigns, &mockConditionRepo{})
		q, err := r.Quote(context.Background(), QuoteRequest{
			SupplierOrgID: "sup-1",
			Items: []QuoteItem{
				{ProductID: "pA", UnitPrice: dec("50.00"), Quantity: 1},
				{ProductID: "pC", UnitPrice: dec("50.00"), Quantity: 1},
			},
		})
		require.NoError(t, err)
		assert.True(t, dec("10.00").Equal(q.TotalCashback))
	})
}

func TestQuote_CategoryScope(t *testing.T) {
	c := cashbackCampaign("c1", "10")
	c.Scope = catalog.ScopeCategory
	c.CategoryID = "cat-1"
	campaigns := &mockCampaignRepo{campaigns: []catalog.Campaign{c}}

	t.Run("item in category", func(t *testing.T) {
		r := newResolver(campaigns, &mockConditionRepo{})
		q, err := r.Quote(context.Background(), QuoteRequest{
			SupplierOrgID: "sup-1",
			Items:         []QuoteItem{{ProductID: "p1", CategoryID: "cat-1", UnitPrice: dec("100.00"), Quantity: 1}},
		})
		require.NoError(t, err)
		assert.True(t, dec("10.00").Equal(q.TotalCashback))
	})

	t.Run("no item in category", func(t *testing.T) {
		r := newResolver(campaigns, &mockConditionRepo{})
		q, err := r.Quote(context.Background(), QuoteRequest{
			SupplierOrgID: "sup-1",
			Items:         []QuoteItem{{ProductID: "p1", CategoryID: "cat-2", UnitPrice: dec("100.00"), Quantity: 1}},
		})
		require.NoError(t, err)
		assert.True(t, q.TotalCashback.IsZero())
	})
}

func TestQuote_GiftCampaignContributesNoCashback(t *testing.T) {
	g := catalog.Campaign{
		ID:            "g1",
		SupplierOrgID: "sup-1",
		Name:          "free sampler",
		Type:          catalog.CampaignGift,
		Scope:         catalog.ScopeAll,
		GiftProductID: "gift-1",
		Active:        true,
	}
	campaigns := &mockCampaignRepo{campaigns: []catalog.Campaign{g}}
	r := newResolver(campaigns, &mockConditionRepo{})

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		Items:         []QuoteItem{{ProductID: "p1", UnitPrice: dec("100.00"), Quantity: 1}},
	})

	require.NoError(t, err)
	assert.True(t, q.TotalCashback.IsZero())
	require.Len(t, q.Details.Campaigns, 1)
	assert.Equal(t, catalog.CampaignGift, q.Details.Campaigns[0].Type)
	assert.Equal(t, "gift-1", q.Details.Campaigns[0].GiftProductID)
}

func TestQuote_ExpiredCampaignSkipped(t *testing.T) {
	past := fixedNow.Add(-24 * time.Hour)
	c := cashbackCampaign("c1", "10")
	c.EndAt = &past
	campaigns := &mockCampaignRepo{campaigns: []catalog.Campaign{c}}
	r := newResolver(campaigns, &mockConditionRepo{})

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		Items:         []QuoteItem{{ProductID: "p1", UnitPrice: dec("100.00"), Quantity: 1}},
	})

	require.NoError(t, err)
	assert.True(t, q.TotalCashback.IsZero())
}

func TestQuote_CashbackDistributionSumsExactly(t *testing.T) {
	// Three unequal items where naive per-item rounding drifts from the
	// rounded total; the leftover cents are spread across the items.
	campaigns := &mockCampaignRepo{campaigns: []catalog.Campaign{cashbackCampaign("c1", "10")}}
	r := newResolver(campaigns, &mockConditionRepo{})

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		Items: []QuoteItem{
			{ProductID: "p1", UnitPrice: dec("33.33"), Quantity: 1},
			{ProductID: "p2", UnitPrice: dec("33.33"), Quantity: 1},
			{ProductID: "p3", UnitPrice: dec("33.33"), Quantity: 1},
		},
	})

	require.NoError(t, err)
	sum := decimal.Zero
	for _, it := range q.Items {
		sum = sum.Add(it.CashbackAmount)
	}
	assert.True(t, sum.Equal(q.TotalCashback),
		"item shares %s must sum to total %s", sum, q.TotalCashback)
}

func TestQuote_CashbackSharesNeverNegative(t *testing.T) {
	// Many tiny shares that half-up rounding would over-allocate: five items
	// at 0.54 and one at 0.30 under a 1% campaign give 0.03 total cashback,
	// while each 0.54-item's exact share (0.0054) rounds up to 0.01. The
	// distribution must keep every share >= 0 and sum exactly to the total.
	campaigns := &mockCampaignRepo{campaigns: []catalog.Campaign{cashbackCampaign("c1", "1")}}
	r := newResolver(campaigns, &mockConditionRepo{})

	items := make([]QuoteItem, 6)
	for i := 0; i < 5; i++ {
		items[i] = QuoteItem{ProductID: "p" + string(rune('1'+i)), UnitPrice: dec("0.54"), Quantity: 1}
	}
	items[5] = QuoteItem{ProductID: "p6", UnitPrice: dec("0.30"), Quantity: 1}

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		Items:         items,
	})

	require.NoError(t, err)
	assert.True(t, dec("0.03").Equal(q.TotalCashback))

	sum := decimal.Zero
	for _, it := range q.Items {
		assert.False(t, it.CashbackAmount.IsNegative(),
			"item %s has negative cashback share %s", it.ProductID, it.CashbackAmount)
		sum = sum.Add(it.CashbackAmount)
	}
	assert.True(t, sum.Equal(q.TotalCashback),
		"item shares %s must sum to total %s", sum, q.TotalCashback)
}

func TestQuote_PaymentConditionMetadata(t *testing.T) {
	conditions := &mockConditionRepo{
		paymentCond: &catalog.PaymentCondition{
			ID:            "pay-1",
			SupplierOrgID: "sup-1",
			Name:          "Net 30",
			PaymentMethod: "bank_transfer",
			Active:        true,
		},
	}
	r := newResolver(&mockCampaignRepo{}, conditions)

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID:      "sup-1",
		PaymentConditionID: "pay-1",
		Items:              []QuoteItem{{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 1}},
	})

	require.NoError(t, err)
	require.NotNil(t, q.Details.PaymentCondition)
	assert.Equal(t, "Net 30", q.Details.PaymentCondition.Name)
	assert.Equal(t, "bank_transfer", q.Details.PaymentCondition.PaymentMethod)
}

func TestQuote_UnknownPaymentConditionIgnored(t *testing.T) {
	r := newResolver(&mockCampaignRepo{}, &mockConditionRepo{})

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID:      "sup-1",
		PaymentConditionID: "missing",
		Items:              []QuoteItem{{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Nil(t, q.Details.PaymentCondition)
}

func TestQuote_SupplierStateConditionSurfacedNotApplied(t *testing.T) {
	conditions := &mockConditionRepo{
		stateCond: &catalog.SupplierStateCondition{
			ID:                  "ssc-1",
			SupplierOrgID:       "sup-1",
			State:               "SP",
			UnitPriceAdjustment: decPtr("-1.50"),
		},
	}
	r := newResolver(&mockCampaignRepo{}, conditions)

	q, err := r.Quote(context.Background(), QuoteRequest{
		SupplierOrgID: "sup-1",
		ShippingState: "SP",
		Items:         []QuoteItem{{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 1}},
	})

	require.NoError(t, err)
	require.NotNil(t, q.Details.SupplierStateCondition)
	assert.Equal(t, "ssc-1", q.Details.SupplierStateCondition.ID)
	// The condition is metadata only: prices stay untouched.
	assert.True(t, q.Items[0].UnitPrice.Equal(q.Items[0].UnitPriceAdjusted))
	assert.True(t, dec("10.00").Equal(q.TotalAmount))
}
