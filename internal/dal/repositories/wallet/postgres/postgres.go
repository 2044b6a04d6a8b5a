package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/canteen-platform/order-core/internal/dal/postgres"
	"github.com/canteen-platform/order-core/internal/service/models/wallet"
	"github.com/jackc/pgx/v5"
)

type WalletRepository struct {
	conn postgres.Querier
}

func NewWalletRepository(conn postgres.Querier) *WalletRepository {
	return &WalletRepository{
		conn: conn,
	}
}

// GetForUpdate locks and returns the user's wallet row, creating it with a
// zero balance on first use. Must be called inside a transaction; the lock is
// held until commit so concurrent debits serialize.
func (r *WalletRepository) GetForUpdate(ctx context.Context, userID int64) (wallet.Wallet, error) {
	const ensure = `
		INSERT INTO wallets (user_id, balance, updated_at)
		VALUES ($1, 0, now())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.conn.Exec(ctx, ensure, userID); err != nil {
		return wallet.Wallet{}, fmt.Errorf("failed to ensure wallet row: %w", err)
	}

	const query = `
		SELECT user_id, balance, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`

	var w wallet.Wallet
	if err := r.conn.QueryRow(ctx, query, userID).Scan(&w.UserID, &w.Balance, &w.UpdatedAt); err != nil {
		return wallet.Wallet{}, fmt.Errorf("failed to lock wallet: %w", err)
	}

	return w, nil
}

// Get returns the wallet without locking, for read-only dashboards.
func (r *WalletRepository) Get(ctx context.Context, userID int64) (wallet.Wallet, error) {
	const query = `
		SELECT user_id, COALESCE(balance, 0), COALESCE(updated_at, now())
		FROM wallets
		WHERE user_id = $1
	`

	var w wallet.Wallet
	err := r.conn.QueryRow(ctx, query, userID).Scan(&w.UserID, &w.Balance, &w.UpdatedAt)
	if err != nil {
		// No row yet means a zero balance, not an error.
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet.Wallet{UserID: userID}, nil
		}

		return wallet.Wallet{}, fmt.Errorf("failed to get wallet: %w", err)
	}

	return w, nil
}

// ApplyTransaction writes the ledger row and updates the cached balance in
// two statements of the same surrounding transaction. A balance change
// without its ledger row (or the reverse) is therefore impossible.
func (r *WalletRepository) ApplyTransaction(ctx context.Context, txn wallet.Transaction) error {
	query, args, err := sq.Insert("wallet_transactions").
		Columns(
			"id",
			"user_id",
			"transaction_type",
			"source",
			"amount",
			"balance_before",
			"balance_after",
			"payment_id",
			"order_id",
			"description",
			"reference",
			"created_by",
			"created_at",
		).
		Values(
			txn.ID,
			txn.UserID,
			string(txn.Type),
			string(txn.Source),
			txn.Amount,
			txn.BalanceBefore,
			txn.BalanceAfter,
			txn.PaymentID,
			txn.OrderID,
			txn.Description,
			txn.Reference,
			txn.CreatedBy,
			txn.CreatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}

	const update = `
		UPDATE wallets
		SET balance = $2, updated_at = $3
		WHERE user_id = $1
	`
	if _, err := r.conn.Exec(ctx, update, txn.UserID, txn.BalanceAfter, time.Now()); err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	return nil
}

// ListTransactions returns the user's ledger, newest first.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID int64, limit int) ([]wallet.Transaction, error) {
	builder := sq.Select(
		"id",
		"user_id",
		"transaction_type",
		"source",
		"amount",
		"balance_before",
		"balance_after",
		"payment_id",
		"order_id",
		"description",
		"reference",
		"created_by",
		"created_at",
	).
		From("wallet_transactions").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	defer rows.Close()

	var result []wallet.Transaction
	for rows.Next() {
		var (
			txn           wallet.Transaction
			ttype, source string
		)
		err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&ttype,
			&source,
			&txn.Amount,
			&txn.BalanceBefore,
			&txn.BalanceAfter,
			&txn.PaymentID,
			&txn.OrderID,
			&txn.Description,
			&txn.Reference,
			&txn.CreatedBy,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}

		txn.Type = wallet.TransactionType(ttype)
		txn.Source = wallet.Source(source)
		result = append(result, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Totals returns the lifetime credited and debited sums for a user.
func (r *WalletRepository) Totals(ctx context.Context, userID int64) (credited, debited int64, err error) {
	const query = `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'credit'), 0),
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'debit'), 0)
		FROM wallet_transactions
		WHERE user_id = $1
	`

	if err := r.conn.QueryRow(ctx, query, userID).Scan(&credited, &debited); err != nil {
		return 0, 0, fmt.Errorf("failed to sum wallet transactions: %w", err)
	}

	return credited, debited, nil
}
