package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/supplyhub/procure/internal/domain/catalog"
)

const (
	listActiveCampaignsSQL = `SELECT id, supplier_org_id, name, type, scope, min_total, min_quantity,
		cashback_percent, gift_product_id, category_id, product_ids, start_at, end_at, active
		FROM campaigns WHERE supplier_org_id = $1 AND active = TRUE`

	getSupplierStateConditionSQL = `SELECT id, supplier_org_id, state, cashback_percent,
		payment_term_days, unit_price_adjustment, effective_from, effective_to
		FROM supplier_state_conditions
		WHERE supplier_org_id = $1 AND state = $2
		AND (effective_from IS NULL OR effective_from <= NOW())
		AND (effective_to IS NULL OR effective_to >= NOW())`

	getPaymentConditionSQL = `SELECT id, supplier_org_id, name, payment_term_days,
		payment_method, notes, active
		FROM payment_conditions WHERE id = $1 AND active = TRUE`
)

var (
	_ catalog.CampaignRepository  = (*CatalogRepository)(nil)
	_ catalog.ConditionRepository = (*CatalogRepository)(nil)
)

// CatalogRepository implements the read-only rule catalog backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListActiveBySupplier returns the supplier's campaigns whose active flag is
// set. Time-window evaluation is left to the resolver's clock.
func (r *CatalogRepository) ListActiveBySupplier(ctx context.Context, supplierOrgID string) ([]catalog.Campaign, error) {
	rows, err := r.pool.Query(ctx, listActiveCampaignsSQL, supplierOrgID)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns for supplier %q: %w", supplierOrgID, err)
	}
	return pgx.CollectRows(rows, scanCampaign)
}

// GetSupplierStateCondition returns the currently-effective condition for the
// supplier and state, or nil when none exists.
func (r *CatalogRepository) GetSupplierStateCondition(ctx context.Context, supplierOrgID, state string) (*catalog.SupplierStateCondition, error) {
	rows, err := r.pool.Query(ctx, getSupplierStateConditionSQL, supplierOrgID, state)
	if err != nil {
		return nil, fmt.Errorf("getting condition for supplier %q state %q: %w", supplierOrgID, state, err)
	}

	cond, err := pgx.CollectExactlyOneRow(rows, scanSupplierStateCondition)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting condition for supplier %q state %q: %w", supplierOrgID, state, err)
	}
	return &cond, nil
}

// GetPaymentCondition returns the active payment condition with the given id,
// or nil when none exists.
func (r *CatalogRepository) GetPaymentCondition(ctx context.Context, id string) (*catalog.PaymentCondition, error) {
	rows, err := r.pool.Query(ctx, getPaymentConditionSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting payment condition %q: %w", id, err)
	}

	pc, err := pgx.CollectExactlyOneRow(rows, scanPaymentCondition)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting payment condition %q: %w", id, err)
	}
	return &pc, nil
}

func scanCampaign(row pgx.CollectableRow) (catalog.Campaign, error) {
	var (
		c           catalog.Campaign
		campType    string
		scope       string
		minTotal    *decimal.Decimal
		minQuantity *int32
	)
	err := row.Scan(
		&c.ID, &c.SupplierOrgID, &c.Name, &campType, &scope, &minTotal, &minQuantity,
		&c.CashbackPercent, &c.GiftProductID, &c.CategoryID, &c.ProductIDs,
		&c.StartAt, &c.EndAt, &c.Active,
	)
	c.Type = catalog.CampaignType(campType)
	c.Scope = catalog.CampaignScope(scope)
	c.MinTotal = minTotal
	if minQuantity != nil {
		q := int(*minQuantity)
		c.MinQuantity = &q
	}
	return c, err
}

func scanSupplierStateCondition(row pgx.CollectableRow) (catalog.SupplierStateCondition, error) {
	var (
		c        catalog.SupplierStateCondition
		termDays *int32
		from     *time.Time
		to       *time.Time
	)
	err := row.Scan(
		&c.ID, &c.SupplierOrgID, &c.State, &c.CashbackPercent,
		&termDays, &c.UnitPriceAdjustment, &from, &to,
	)
	if termDays != nil {
		d := int(*termDays)
		c.PaymentTermDays = &d
	}
	c.EffectiveFrom = from
	c.EffectiveTo = to
	return c, err
}

func scanPaymentCondition(row pgx.CollectableRow) (catalog.PaymentCondition, error) {
	var (
		pc       catalog.PaymentCondition
		termDays int32
	)
	err := row.Scan(
		&pc.ID, &pc.SupplierOrgID, &pc.Name, &termDays,
		&pc.PaymentMethod, &pc.Notes, &pc.Active,
	)
	pc.PaymentTermDays = int(termDays)
	return pc, err
}
