// Package ledger owns the per-organization cashback wallet and its
// append-only transaction log. The wallet invariant — available balance equals
// total earned minus total used and never goes negative — is enforced here and
// by the repository's atomic mutations, never recomputed by callers.
package ledger

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// TransactionType enumerates ledger transaction kinds.
type TransactionType string

const (
	// TransactionEarned credits cashback to the wallet.
	TransactionEarned TransactionType = "EARNED"
	// TransactionUsed redeems cashback from the wallet.
	TransactionUsed TransactionType = "USED"
)

var (
	// ErrInvalidAmount is returned when an earn or use amount is not positive.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrInsufficientBalance is returned when a use would drive the wallet
	// balance negative. Retrying without an intervening earn cannot succeed.
	ErrInsufficientBalance = errors.New("insufficient cashback balance")
)

// Wallet is the per-organization cashback account. AvailableBalance is a
// materialized view over the transaction log: it always equals
// TotalEarned - TotalUsed and is never negative.
type Wallet struct {
	ID               string
	OrganizationID   string
	AvailableBalance decimal.Decimal
	TotalEarned      decimal.Decimal
	TotalUsed        decimal.Decimal
	CreatedAt        time.Time
}

// Transaction is an immutable EARNED or USED record against a wallet.
// Rows are never updated or deleted.
type Transaction struct {
	ID            string
	WalletID      string
	OrderID       string
	Type          TransactionType
	Amount        decimal.Decimal
	ReferenceID   string
	ReferenceType string
	Description   string
	CreatedAt     time.Time
}

// HistoryFilter narrows transaction history reads.
type HistoryFilter struct {
	Type  *TransactionType
	Since *time.Time
	Until *time.Time
	Limit int
}

// Repository defines the persistence contract for wallets and transactions.
//
// Credit and Debit are single atomic units: the transaction row insert and the
// wallet aggregate update either both happen or neither does. Debit must be a
// conditional mutation that fails with ErrInsufficientBalance when the wallet
// balance is below the amount — the check and the decrement may not be
// separate round-trips.
type Repository interface {
	// GetOrCreateWallet returns the wallet for the organization, creating a
	// zero-balance one if absent. Safe under concurrent first access.
	GetOrCreateWallet(ctx context.Context, organizationID string) (*Wallet, error)
	// Credit appends an EARNED transaction and increments the wallet's
	// total_earned and available_balance by the transaction amount.
	Credit(ctx context.Context, txn *Transaction) error
	// Debit appends a USED transaction and moves the transaction amount from
	// available_balance to total_used, failing with ErrInsufficientBalance
	// when the balance is too low.
	Debit(ctx context.Context, txn *Transaction) error
	// ListTransactions returns the wallet's transactions ordered by creation
	// time ascending.
	ListTransactions(ctx context.Context, walletID string, f HistoryFilter) ([]Transaction, error)
	// ListTransactionsByOrder returns all transactions referencing the order,
	// across wallets, ordered by creation time ascending.
	ListTransactionsByOrder(ctx context.Context, orderID string) ([]Transaction, error)
}
