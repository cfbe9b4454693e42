package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supplyhub/procure/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
		(id, store_org_id, supplier_org_id, status, placed_at, shipping_address_id,
		subtotal_amount, shipping_cost, adjustments, total_amount, total_cashback,
		cashback_used, applied_supplier_state_condition_id, payment_condition_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	insertOrderItemSQL = `INSERT INTO order_items
		(id, order_id, line_no, product_id, product_name, quantity,
		unit_price, unit_price_adjusted, total_price, cashback_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	insertStatusHistorySQL = `INSERT INTO order_status_history
		(id, order_id, previous_status, new_status, changed_by, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getOrderSQL = `SELECT id, store_org_id, supplier_org_id, status, placed_at, shipping_address_id,
		subtotal_amount, shipping_cost, adjustments, total_amount, total_cashback,
		cashback_used, applied_supplier_state_condition_id, payment_condition_id, created_by
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT id, order_id, product_id, product_name, quantity,
		unit_price, unit_price_adjusted, total_price, cashback_amount
		FROM order_items WHERE order_id = $1 ORDER BY line_no`

	getStatusHistorySQL = `SELECT id, order_id, previous_status, new_status, changed_by, note, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at, id`

	// Conditional on the expected current status so a concurrent transition
	// cannot be silently overwritten.
	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1 AND status = $3`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order, its items, and its initial history row in one
// database transaction. No partial order is ever visible to readers.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.StoreOrgID, o.SupplierOrgID, string(o.Status), o.PlacedAt,
			o.ShippingAddressID, o.SubtotalAmount, o.ShippingCost, o.Adjustments,
			o.TotalAmount, o.TotalCashback, o.CashbackUsed,
			o.AppliedSupplierStateConditionID, o.PaymentConditionID, o.CreatedBy,
		); err != nil {
			return errors.Wrapf(err, "insert order %q", o.ID)
		}

		for i, it := range o.Items {
			if _, err := tx.Exec(ctx, insertOrderItemSQL,
				it.ID, it.OrderID, int16(i+1), it.ProductID, it.ProductName,
				it.Quantity, it.UnitPrice, it.UnitPriceAdjusted, it.TotalPrice,
				it.CashbackAmount,
			); err != nil {
				return errors.Wrapf(err, "insert order item %q", it.ID)
			}
		}

		for _, h := range o.StatusHistory {
			if err := insertStatusChange(ctx, tx, &h); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID returns the order with its items and full status history.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}
	if o.Items, err = pgx.CollectRows(itemRows, scanOrderItem); err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}

	histRows, err := r.pool.Query(ctx, getStatusHistorySQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting history for order %q: %w", id, err)
	}
	if o.StatusHistory, err = pgx.CollectRows(histRows, scanStatusChange); err != nil {
		return nil, fmt.Errorf("getting history for order %q: %w", id, err)
	}

	return &o, nil
}

// UpdateStatus conditionally moves the order out of the expected status and
// appends the audit record, both inside one database transaction.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, from order.Status, change *order.StatusChange) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateOrderStatusSQL, orderID, string(change.NewStatus), string(from))
		if err != nil {
			return errors.Wrapf(err, "update status of order %q", orderID)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrStatusChanged
		}
		return insertStatusChange(ctx, tx, change)
	})
}

func insertStatusChange(ctx context.Context, tx pgx.Tx, h *order.StatusChange) error {
	var prev *string
	if h.PreviousStatus != nil {
		s := string(*h.PreviousStatus)
		prev = &s
	}
	if _, err := tx.Exec(ctx, insertStatusHistorySQL,
		h.ID, h.OrderID, prev, string(h.NewStatus), h.ChangedBy, h.Note, h.CreatedAt,
	); err != nil {
		return errors.Wrapf(err, "insert status history %q", h.ID)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.StoreOrgID, &o.SupplierOrgID, &status, &o.PlacedAt,
		&o.ShippingAddressID, &o.SubtotalAmount, &o.ShippingCost, &o.Adjustments,
		&o.TotalAmount, &o.TotalCashback, &o.CashbackUsed,
		&o.AppliedSupplierStateConditionID, &o.PaymentConditionID, &o.CreatedBy,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it  order.Item
		qty int32
	)
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &qty,
		&it.UnitPrice, &it.UnitPriceAdjusted, &it.TotalPrice, &it.CashbackAmount,
	)
	it.Quantity = int(qty)
	return it, err
}

func scanStatusChange(row pgx.CollectableRow) (order.StatusChange, error) {
	var (
		h       order.StatusChange
		prev    *string
		current string
	)
	err := row.Scan(&h.ID, &h.OrderID, &prev, &current, &h.ChangedBy, &h.Note, &h.CreatedAt)
	if prev != nil {
		s := order.Status(*prev)
		h.PreviousStatus = &s
	}
	h.NewStatus = order.Status(current)
	return h, err
}
