package order

import "fmt"

// Status is an order lifecycle state.
type Status string

const (
	// StatusDraft is a pre-confirmation working state.
	StatusDraft Status = "DRAFT"
	// StatusPending is a pre-confirmation state awaiting submission.
	StatusPending Status = "PENDING"
	// StatusPlaced is the entry state for a submitted order.
	StatusPlaced Status = "PLACED"
	// StatusConfirmed means the supplier accepted the order.
	StatusConfirmed Status = "CONFIRMED"
	// StatusShipped means the order left the supplier.
	StatusShipped Status = "SHIPPED"
	// StatusDelivered is terminal: the order reached the store.
	StatusDelivered Status = "DELIVERED"
	// StatusCancelled is terminal: the store withdrew the order.
	StatusCancelled Status = "CANCELLED"
	// StatusRejected is terminal: the supplier refused the order.
	StatusRejected Status = "REJECTED"
)

// transitions is the legal-edge table. Terminal states have no entry.
// CANCELLED and REJECTED are reachable from every non-terminal state.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusPending, StatusPlaced, StatusCancelled, StatusRejected},
	StatusPending:   {StatusPlaced, StatusCancelled, StatusRejected},
	StatusPlaced:    {StatusConfirmed, StatusCancelled, StatusRejected},
	StatusConfirmed: {StatusShipped, StatusCancelled, StatusRejected},
	StatusShipped:   {StatusDelivered, StatusCancelled, StatusRejected},
}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusDraft, StatusPending, StatusPlaced, StatusConfirmed,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the edge s -> next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
