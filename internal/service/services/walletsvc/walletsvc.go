package walletsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/canteen-platform/order-core/internal/dal/interfaces/iwalletrepo"
	"github.com/canteen-platform/order-core/internal/dal/postgres"
	"github.com/canteen-platform/order-core/internal/dal/uow"
	"github.com/canteen-platform/order-core/internal/service/models/actor"
	"github.com/canteen-platform/order-core/internal/service/models/wallet"
)

// ErrForbidden is returned when a non-admin actor adjusts a wallet.
var ErrForbidden = errors.New("wallet adjustments require an admin actor")

// ErrZeroAdjustment is returned for an adjustment of zero.
var ErrZeroAdjustment = errors.New("adjustment amount must be non-zero")

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	WalletRepository() iwalletrepo.IWalletRepository
}

// WalletService exposes wallet balances and ledgers, plus manual
// adjustments. All balance changes go through the same ledger constructors
// the payment flows use.
type WalletService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork
	now      func() time.Time
}

// option is a function that configures the WalletService.
type option func(*WalletService)

// MustNewWalletService creates a new WalletService.
func MustNewWalletService(opts ...option) *WalletService {
	s := &WalletService{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the WalletService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *WalletService) {
		s.pgClient = pgClient
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// Statement is the wallet view returned to the user: current balance, recent
// ledger entries and lifetime totals.
type Statement struct {
	Wallet        wallet.Wallet        `json:"wallet"`
	Transactions  []wallet.Transaction `json:"transactions"`
	TotalCredited int64                `json:"totalCredited"`
	TotalDebited  int64                `json:"totalDebited"`
}

// GetStatement returns the user's wallet with its recent ledger.
func (s *WalletService) GetStatement(ctx context.Context, userID int64, limit int) (*Statement, error) {
	if limit <= 0 {
		limit = 50
	}

	work := s.newUOW()

	w, err := work.WalletRepository().Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	transactions, err := work.WalletRepository().ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	credited, debited, err := work.WalletRepository().Totals(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Statement{
		Wallet:        w,
		Transactions:  transactions,
		TotalCredited: credited,
		TotalDebited:  debited,
	}, nil
}

// Adjust applies a manual balance correction. Positive amounts credit the
// wallet, negative amounts debit it; a debit below the balance is rejected by
// the ledger constructor.
func (s *WalletService) Adjust(ctx context.Context, act actor.Actor, userID int64, amount int64, reason string) (wallet.Transaction, error) {
	if !act.CanManageOrders() {
		return wallet.Transaction{}, ErrForbidden
	}
	if amount == 0 {
		return wallet.Transaction{}, ErrZeroAdjustment
	}
	if reason == "" {
		reason = "Manual adjustment"
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return wallet.Transaction{}, err
	}
	defer work.Rollback(ctx)

	w, err := work.WalletRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return wallet.Transaction{}, err
	}

	var txn wallet.Transaction
	if amount > 0 {
		txn, err = wallet.NewCredit(w, amount, wallet.SourceAdminAdjustment, reason)
	} else {
		txn, err = wallet.NewDebit(w, -amount, wallet.SourceAdminAdjustment, reason)
	}
	if err != nil {
		return wallet.Transaction{}, err
	}
	txn.CreatedBy = act.UserID
	txn.CreatedAt = s.now()

	if err := work.WalletRepository().ApplyTransaction(ctx, txn); err != nil {
		return wallet.Transaction{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return wallet.Transaction{}, err
	}

	slog.Info("Wallet adjusted",
		"user_id", userID,
		"amount", amount,
		"balance_after", txn.BalanceAfter,
		"adjusted_by", act.UserID,
	)

	return txn, nil
}

// Balance returns only the current balance, formatted for quick checks.
func (s *WalletService) Balance(ctx context.Context, userID int64) (int64, string, error) {
	w, err := s.newUOW().WalletRepository().Get(ctx, userID)
	if err != nil {
		return 0, "", err
	}

	return w.Balance, fmt.Sprintf("%d XAF", w.Balance), nil
}
