package postgresrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	return r.scan(dest...)
}

// stubQuerier answers every QueryRow with the scripted row.
type stubQuerier struct {
	row pgx.Row
}

func (q stubQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (q stubQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not scripted")
}

func (q stubQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return q.row
}

func TestGet(t *testing.T) {
	now := time.Now()
	repo := NewWalletRepository(stubQuerier{row: stubRow{scan: func(dest ...any) error {
		*dest[0].(*int64) = 42
		*dest[1].(*int64) = 2500
		*dest[2].(*time.Time) = now

		return nil
	}}})

	w, err := repo.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if w.UserID != 42 || w.Balance != 2500 {
		t.Errorf("wallet = %+v, want user 42 balance 2500", w)
	}
}

func TestGetNoRow(t *testing.T) {
	repo := NewWalletRepository(stubQuerier{row: stubRow{scan: func(...any) error {
		return pgx.ErrNoRows
	}}})

	w, err := repo.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("missing row must read as zero balance, got: %v", err)
	}
	if w.UserID != 42 || w.Balance != 0 {
		t.Errorf("wallet = %+v, want zero wallet for user 42", w)
	}
}

func TestGetQueryError(t *testing.T) {
	dbErr := errors.New("connection reset")
	repo := NewWalletRepository(stubQuerier{row: stubRow{scan: func(...any) error {
		return dbErr
	}}})

	_, err := repo.Get(context.Background(), 42)
	if !errors.Is(err, dbErr) {
		t.Fatalf("err = %v, a query failure must not read as zero balance", err)
	}
}
