package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supplyhub/procure/internal/domain/ledger"
)

const (
	insertWalletSQL = `INSERT INTO cashback_wallets (id, organization_id)
		VALUES ($1, $2) ON CONFLICT (organization_id) DO NOTHING`

	getWalletSQL = `SELECT id, organization_id, available_balance, total_earned, total_used, created_at
		FROM cashback_wallets WHERE organization_id = $1`

	insertTransactionSQL = `INSERT INTO cashback_transactions
		(id, cashback_wallet_id, order_id, type, amount, reference_id, reference_type, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	creditWalletSQL = `UPDATE cashback_wallets
		SET total_earned = total_earned + $2, available_balance = available_balance + $2
		WHERE id = $1`

	// The balance check and decrement are one conditional statement: zero
	// rows affected means the wallet cannot cover the amount, and the
	// surrounding transaction is rolled back without touching the log.
	debitWalletSQL = `UPDATE cashback_wallets
		SET total_used = total_used + $2, available_balance = available_balance - $2
		WHERE id = $1 AND available_balance >= $2`

	listTransactionsSQL = `SELECT id, cashback_wallet_id, order_id, type, amount,
		reference_id, reference_type, description, created_at
		FROM cashback_transactions WHERE cashback_wallet_id = $1`

	listTransactionsByOrderSQL = `SELECT id, cashback_wallet_id, order_id, type, amount,
		reference_id, reference_type, description, created_at
		FROM cashback_transactions WHERE order_id = $1
		ORDER BY created_at, id`
)

var _ ledger.Repository = (*LedgerRepository)(nil)

// LedgerRepository implements ledger.Repository backed by PostgreSQL.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns a LedgerRepository that uses the given pool.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// GetOrCreateWallet returns the wallet for the organization, creating a
// zero-balance one if absent. The unique constraint on organization_id plus
// ON CONFLICT DO NOTHING makes concurrent first access safe: both creators
// converge on the same row.
func (r *LedgerRepository) GetOrCreateWallet(ctx context.Context, organizationID string) (*ledger.Wallet, error) {
	_, err := r.pool.Exec(ctx, insertWalletSQL, uuid.New().String(), organizationID)
	if err != nil {
		return nil, fmt.Errorf("creating wallet for organization %q: %w", organizationID, err)
	}

	rows, err := r.pool.Query(ctx, getWalletSQL, organizationID)
	if err != nil {
		return nil, fmt.Errorf("getting wallet for organization %q: %w", organizationID, err)
	}

	w, err := pgx.CollectExactlyOneRow(rows, scanWallet)
	if err != nil {
		return nil, fmt.Errorf("getting wallet for organization %q: %w", organizationID, err)
	}
	return &w, nil
}

// Credit appends the EARNED transaction and increments the wallet aggregates
// in one database transaction.
func (r *LedgerRepository) Credit(ctx context.Context, txn *ledger.Transaction) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertTransactionSQL,
			txn.ID, txn.WalletID, txn.OrderID, string(txn.Type), txn.Amount,
			txn.ReferenceID, txn.ReferenceType, txn.Description,
		); err != nil {
			return errors.Wrap(err, "insert transaction")
		}
		if _, err := tx.Exec(ctx, creditWalletSQL, txn.WalletID, txn.Amount); err != nil {
			return errors.Wrap(err, "credit wallet")
		}
		return nil
	})
}

// Debit performs the conditional decrement and appends the USED transaction
// in one database transaction. When the conditional update affects no row the
// wallet cannot cover the amount and ledger.ErrInsufficientBalance is
// returned, rolling back the whole unit.
func (r *LedgerRepository) Debit(ctx context.Context, txn *ledger.Transaction) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, debitWalletSQL, txn.WalletID, txn.Amount)
		if err != nil {
			return errors.Wrap(err, "debit wallet")
		}
		if tag.RowsAffected() == 0 {
			return ledger.ErrInsufficientBalance
		}

		if _, err := tx.Exec(ctx, insertTransactionSQL,
			txn.ID, txn.WalletID, txn.OrderID, string(txn.Type), txn.Amount,
			txn.ReferenceID, txn.ReferenceType, txn.Description,
		); err != nil {
			return errors.Wrap(err, "insert transaction")
		}
		return nil
	})
}

// ListTransactions returns the wallet's transactions oldest first.
func (r *LedgerRepository) ListTransactions(ctx context.Context, walletID string, f ledger.HistoryFilter) ([]ledger.Transaction, error) {
	sql := listTransactionsSQL
	args := []any{walletID}

	if f.Type != nil {
		args = append(args, string(*f.Type))
		sql += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		sql += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		sql += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	sql += " ORDER BY created_at, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for wallet %q: %w", walletID, err)
	}
	return pgx.CollectRows(rows, scanTransaction)
}

// ListTransactionsByOrder returns all transactions referencing the order.
func (r *LedgerRepository) ListTransactionsByOrder(ctx context.Context, orderID string) ([]ledger.Transaction, error) {
	rows, err := r.pool.Query(ctx, listTransactionsByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanTransaction)
}

func scanWallet(row pgx.CollectableRow) (ledger.Wallet, error) {
	var w ledger.Wallet
	err := row.Scan(
		&w.ID, &w.OrganizationID, &w.AvailableBalance,
		&w.TotalEarned, &w.TotalUsed, &w.CreatedAt,
	)
	return w, err
}

func scanTransaction(row pgx.CollectableRow) (ledger.Transaction, error) {
	var (
		t       ledger.Transaction
		txnType string
	)
	err := row.Scan(
		&t.ID, &t.WalletID, &t.OrderID, &txnType, &t.Amount,
		&t.ReferenceID, &t.ReferenceType, &t.Description, &t.CreatedAt,
	)
	t.Type = ledger.TransactionType(txnType)
	return t, err
}
