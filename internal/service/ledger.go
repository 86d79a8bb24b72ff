// Package service holds the operations that span several repositories
// inside one SQL transaction: the points ledger and the redemption
// workflow.  Activity recording and ticket references live here too.
package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
)

// Ledger is the only writer of users.points, highest_points and
// loyalty_tier.  Every mutation locks the user row, applies the loyalty
// rules, stores the new balance and appends one transaction row, all in
// the caller's SQL transaction.
type Ledger struct {
	DB    *sql.DB
	Users *repository.UserRepo
	Txns  *repository.TransactionRepo
	Unit  int64
}

func NewLedger(db *sql.DB, users *repository.UserRepo, txns *repository.TransactionRepo, unit int64) *Ledger {
	if unit <= 0 {
		unit = loyalty.DefaultCurrencyUnit
	}
	return &Ledger{DB: db, Users: users, Txns: txns, Unit: unit}
}

// Account is a user balance locked for the rest of a SQL transaction.
type Account struct {
	ledger  *Ledger
	tx      *sql.Tx
	UserID  uint64
	Balance loyalty.Balance
	Active  bool
}

// LockTx locks the user row and returns its balance.
func (l *Ledger) LockTx(ctx context.Context, tx *sql.Tx, userID uint64) (*Account, error) {
	b, active, err := l.Users.LockBalanceTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	return &Account{ledger: l, tx: tx, UserID: userID, Balance: b, Active: active}, nil
}

// Credit adds amount points and records entry as points earned.
func (a *Account) Credit(ctx context.Context, amount int64, entry model.Transaction) error {
	nb, err := a.Balance.Credit(amount)
	if err != nil {
		return err
	}
	entry.PointsEarned, entry.PointsSpent = amount, 0
	return a.apply(ctx, nb, entry)
}

// Debit removes amount points and records entry as points spent.  A short
// balance returns loyalty.ErrInsufficientPoints and writes nothing.
func (a *Account) Debit(ctx context.Context, amount int64, entry model.Transaction) error {
	nb, err := a.Balance.Debit(amount)
	if err != nil {
		return err
	}
	entry.PointsEarned, entry.PointsSpent = 0, amount
	return a.apply(ctx, nb, entry)
}

func (a *Account) apply(ctx context.Context, nb loyalty.Balance, entry model.Transaction) error {
	if err := a.ledger.Users.UpdateBalanceTx(ctx, a.tx, a.UserID, nb); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	entry.UserID = a.UserID
	if _, err := a.ledger.Txns.CreateTx(ctx, a.tx, &entry); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	a.Balance = nb
	return nil
}

// AddPoints grants amount points to a user as a points_added entry.
func (l *Ledger) AddPoints(ctx context.Context, userID uint64, amount int64, description string, by *uint64) (loyalty.Balance, error) {
	if amount <= 0 {
		return loyalty.Balance{}, loyalty.ErrInvalidAmount
	}
	return l.credit(ctx, userID, amount, model.Transaction{
		Type:        model.TxPointsAdded,
		Description: description,
		CreatedBy:   by,
	})
}

// DebitPoints removes amount points in its own transaction.  entry must be
// a spending type.  The balance never goes negative.
func (l *Ledger) DebitPoints(ctx context.Context, userID uint64, amount int64, entry model.Transaction) (loyalty.Balance, error) {
	var out loyalty.Balance
	err := withTx(ctx, l.DB, func(tx *sql.Tx) error {
		acct, err := l.LockTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := acct.Debit(ctx, amount, entry); err != nil {
			return err
		}
		out = acct.Balance
		return nil
	})
	return out, err
}

// PurchaseResult reports what a recorded purchase earned.
type PurchaseResult struct {
	PointsEarned int64           `json:"points_earned"`
	Balance      loyalty.Balance `json:"balance"`
}

// RecordPurchase converts a purchase total into points and credits them as
// a purchase entry carrying the total.
func (l *Ledger) RecordPurchase(ctx context.Context, userID uint64, total decimal.Decimal, description string, by *uint64) (PurchaseResult, error) {
	pts, err := loyalty.PointsForPurchase(total, l.Unit)
	if err != nil {
		return PurchaseResult{}, err
	}
	amount := total.StringFixed(2)
	if description == "" {
		description = fmt.Sprintf("Purchase of %s", amount)
	}
	b, err := l.credit(ctx, userID, pts, model.Transaction{
		Type:        model.TxPurchase,
		Amount:      &amount,
		Description: description,
		CreatedBy:   by,
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	return PurchaseResult{PointsEarned: pts, Balance: b}, nil
}

// GrantSignupBonusTx credits the sign-up bonus inside the registration
// transaction.  A non-positive amount is a no-op.
func (l *Ledger) GrantSignupBonusTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	acct, err := l.LockTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	return acct.Credit(ctx, amount, model.Transaction{Type: model.TxEarning, Description: "Sign-up bonus"})
}

func (l *Ledger) credit(ctx context.Context, userID uint64, amount int64, entry model.Transaction) (loyalty.Balance, error) {
	var out loyalty.Balance
	err := withTx(ctx, l.DB, func(tx *sql.Tx) error {
		acct, err := l.LockTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := acct.Credit(ctx, amount, entry); err != nil {
			return err
		}
		out = acct.Balance
		return nil
	})
	return out, err
}

// Balance reads the stored balance of a user.
func (l *Ledger) Balance(ctx context.Context, userID uint64) (loyalty.Balance, error) {
	u, err := l.Users.GetByID(ctx, userID)
	if err != nil {
		return loyalty.Balance{}, err
	}
	return u.Balance(), nil
}

// withTx runs fn in a transaction and commits when it returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
