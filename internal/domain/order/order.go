// Package order manages the order lifecycle: transactional creation with
// item snapshots, and audited status transitions.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for lifecycle operations.
var (
	ErrEmptyItems = errors.New("items required")
	ErrNotFound   = errors.New("order not found")
	// ErrStatusChanged is returned when the order's status was modified by a
	// concurrent transition between the read and the conditional update.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// InvalidTransitionError indicates an illegal status edge.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidUnitPriceError indicates a line item with a non-positive unit price.
type InvalidUnitPriceError struct {
	ProductID string
}

func (e *InvalidUnitPriceError) Error() string {
	return fmt.Sprintf("unit price must be greater than 0 for product %s", e.ProductID)
}

// Order is a placed procurement order. Once PlacedAt is set the order is
// immutable except for Status and its history.
// TotalAmount == SubtotalAmount + ShippingCost + Adjustments.
type Order struct {
	ID                              string
	StoreOrgID                      string
	SupplierOrgID                   string
	Status                          Status
	PlacedAt                        time.Time
	ShippingAddressID               string
	SubtotalAmount                  decimal.Decimal
	ShippingCost                    decimal.Decimal
	Adjustments                     decimal.Decimal
	TotalAmount                     decimal.Decimal
	TotalCashback                   decimal.Decimal
	CashbackUsed                    decimal.Decimal
	AppliedSupplierStateConditionID string
	PaymentConditionID              string
	CreatedBy                       string
	Items                           []Item
	StatusHistory                   []StatusChange
}

// Item is an order line. ProductName is a point-in-time snapshot captured at
// creation and never re-read from the product catalog.
type Item struct {
	ID                string
	OrderID           string
	ProductID         string
	ProductName       string
	Quantity          int
	UnitPrice         decimal.Decimal
	UnitPriceAdjusted decimal.Decimal
	TotalPrice        decimal.Decimal
	CashbackAmount    decimal.Decimal
}

// StatusChange is one append-only audit record of a lifecycle transition.
// PreviousStatus is nil only for the creation record; ChangedBy is empty for
// system-initiated transitions.
type StatusChange struct {
	ID             string
	OrderID        string
	PreviousStatus *Status
	NewStatus      Status
	ChangedBy      string
	Note           string
	CreatedAt      time.Time
}

// Repository defines persistence for orders.
//
// Create and UpdateStatus are single atomic units: a crash mid-write must
// leave no partial order, items, or history visible to readers.
type Repository interface {
	// Create persists the order, all its items, and its first status-history
	// row in one transaction.
	Create(ctx context.Context, o *Order) error
	// GetByID returns the order with items and history (history ordered by
	// creation time ascending), or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Order, error)
	// UpdateStatus sets the order's status from `from` to `change.NewStatus`
	// and appends the history row in one transaction. It returns
	// ErrStatusChanged when the order's status no longer equals `from`.
	UpdateStatus(ctx context.Context, orderID string, from Status, change *StatusChange) error
}
