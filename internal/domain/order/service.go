package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/supplyhub/procure/internal/domain/pricing"
)

// createNote is the audit note written on the creation history row.
const createNote = "order created"

// CreateOrderItem is one line of a create request. ProductName is snapshotted
// onto the item; UnitPriceAdjusted defaults to UnitPrice when zero.
type CreateOrderItem struct {
	ProductID         string
	ProductName       string
	Quantity          int
	UnitPrice         decimal.Decimal
	UnitPriceAdjusted decimal.Decimal
	CashbackAmount    decimal.Decimal
}

// CreateOrderRequest holds the input for creating an order. Monetary
// aggregates are recomputed server-side from the items; per-item cashback
// shares come from the confirmed quote.
type CreateOrderRequest struct {
	StoreOrgID                      string
	SupplierOrgID                   string
	ShippingAddressID               string
	PaymentConditionID              string
	AppliedSupplierStateConditionID string
	CreatedBy                       string
	CashbackUsed                    decimal.Decimal
	Items                           []CreateOrderItem
}

// Service encapsulates order lifecycle business logic.
type Service struct {
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service over the given repository.
func NewService(orders Repository) *Service {
	return &Service{orders: orders, now: time.Now}
}

// CreateOrder validates the request, computes totals, and persists the order
// with its items and initial PLACED history row in one atomic unit.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	orderID := uuid.New().String()
	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	totalCashback := decimal.Zero
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
		if !it.UnitPrice.IsPositive() {
			return nil, &InvalidUnitPriceError{ProductID: it.ProductID}
		}

		adjusted := it.UnitPriceAdjusted
		if adjusted.IsZero() {
			adjusted = it.UnitPrice
		}
		line := adjusted.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		cashback := it.CashbackAmount.Round(2)

		items[i] = Item{
			ID:                uuid.New().String(),
			OrderID:           orderID,
			ProductID:         it.ProductID,
			ProductName:       it.ProductName,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			UnitPriceAdjusted: adjusted,
			TotalPrice:        line,
			CashbackAmount:    cashback,
		}
		subtotal = subtotal.Add(line)
		totalCashback = totalCashback.Add(cashback)
	}
	subtotal = subtotal.Round(2)

	shipping := decimal.Zero
	if req.ShippingAddressID != "" {
		shipping = pricing.ShippingFlatFee
	}
	adjustments := decimal.Zero
	now := s.now()

	initial := StatusChange{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		NewStatus: StatusPlaced,
		ChangedBy: req.CreatedBy,
		Note:      createNote,
		CreatedAt: now,
	}

	o := &Order{
		ID:                              orderID,
		StoreOrgID:                      req.StoreOrgID,
		SupplierOrgID:                   req.SupplierOrgID,
		Status:                          StatusPlaced,
		PlacedAt:                        now,
		ShippingAddressID:               req.ShippingAddressID,
		SubtotalAmount:                  subtotal,
		ShippingCost:                    shipping,
		Adjustments:                     adjustments,
		TotalAmount:                     subtotal.Add(shipping).Add(adjustments).Round(2),
		TotalCashback:                   totalCashback.Round(2),
		CashbackUsed:                    req.CashbackUsed.Round(2),
		AppliedSupplierStateConditionID: req.AppliedSupplierStateConditionID,
		PaymentConditionID:              req.PaymentConditionID,
		CreatedBy:                       req.CreatedBy,
		Items:                           items,
		StatusHistory:                   []StatusChange{initial},
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// GetOrder returns the order with items and status history.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// UpdateStatus transitions the order to newStatus, validating the edge
// against the transition table and appending the audit record atomically
// with the status column update.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, newStatus Status, changedBy, note string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransitionTo(newStatus) {
		return nil, &InvalidTransitionError{From: o.Status, To: newStatus}
	}

	prev := o.Status
	change := &StatusChange{
		ID:             uuid.New().String(),
		OrderID:        orderID,
		PreviousStatus: &prev,
		NewStatus:      newStatus,
		ChangedBy:      changedBy,
		Note:           note,
		CreatedAt:      s.now(),
	}
	if err := s.orders.UpdateStatus(ctx, orderID, prev, change); err != nil {
		return nil, errors.Wrap(err, "update status")
	}

	return s.orders.GetByID(ctx, orderID)
}
