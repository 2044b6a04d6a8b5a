package iwalletrepo

import (
	"context"

	"github.com/canteen-platform/order-core/internal/service/models/wallet"
)

type IWalletRepository interface {
	GetForUpdate(ctx context.Context, userID int64) (wallet.Wallet, error)
	Get(ctx context.Context, userID int64) (wallet.Wallet, error)
	ApplyTransaction(ctx context.Context, txn wallet.Transaction) error
	ListTransactions(ctx context.Context, userID int64, limit int) ([]wallet.Transaction, error)
	Totals(ctx context.Context, userID int64) (credited, debited int64, err error)
}
