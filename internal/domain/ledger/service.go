package ledger

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EarnRequest credits cashback to an organization's wallet.
type EarnRequest struct {
	OrganizationID string
	OrderID        string
	Amount         decimal.Decimal
	ReferenceID    string // e.g. the campaign that granted it
	ReferenceType  string
	Description    string
}

// UseRequest redeems cashback from an organization's wallet.
type UseRequest struct {
	OrganizationID string
	OrderID        string
	Amount         decimal.Decimal
	Description    string
}

// Service encapsulates the cashback ledger operations.
type Service struct {
	repo Repository
}

// NewService creates a ledger Service over the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Earn appends an EARNED transaction and atomically updates the wallet
// aggregates. The wallet is created lazily on first access.
func (s *Service) Earn(ctx context.Context, req EarnRequest) (*Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	w, err := s.repo.GetOrCreateWallet(ctx, req.OrganizationID)
	if err != nil {
		return nil, errors.Wrap(err, "get wallet")
	}

	txn := &Transaction{
		ID:            uuid.New().String(),
		WalletID:      w.ID,
		OrderID:       req.OrderID,
		Type:          TransactionEarned,
		Amount:        req.Amount.Round(2),
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Description:   req.Description,
	}
	if err := s.repo.Credit(ctx, txn); err != nil {
		return nil, errors.Wrap(err, "credit wallet")
	}
	return txn, nil
}

// Use appends a USED transaction and atomically updates the wallet aggregates.
// It fails with ErrInsufficientBalance when the wallet cannot cover the
// amount; the ledger is left untouched in that case.
func (s *Service) Use(ctx context.Context, req UseRequest) (*Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	w, err := s.repo.GetOrCreateWallet(ctx, req.OrganizationID)
	if err != nil {
		return nil, errors.Wrap(err, "get wallet")
	}

	txn := &Transaction{
		ID:          uuid.New().String(),
		WalletID:    w.ID,
		OrderID:     req.OrderID,
		Type:        TransactionUsed,
		Amount:      req.Amount.Round(2),
		Description: req.Description,
	}
	if err := s.repo.Debit(ctx, txn); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, errors.Wrap(err, "debit wallet")
	}
	return txn, nil
}

// Balance returns the organization's wallet, creating it if absent.
func (s *Service) Balance(ctx context.Context, organizationID string) (*Wallet, error) {
	return s.repo.GetOrCreateWallet(ctx, organizationID)
}

// History returns the organization's transactions, oldest first.
func (s *Service) History(ctx context.Context, organizationID string, f HistoryFilter) ([]Transaction, error) {
	w, err := s.repo.GetOrCreateWallet(ctx, organizationID)
	if err != nil {
		return nil, errors.Wrap(err, "get wallet")
	}
	return s.repo.ListTransactions(ctx, w.ID, f)
}

// HistoryByOrder returns all transactions referencing the order, oldest first.
func (s *Service) HistoryByOrder(ctx context.Context, orderID string) ([]Transaction, error) {
	return s.repo.ListTransactionsByOrder(ctx, orderID)
}
