package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
)

// ErrAccountInactive is returned when a deactivated user still holding a
// live access token tries to redeem.
var ErrAccountInactive = errors.New("account is deactivated")

// Redemption drives redeem requests through their lifecycle.  Each call
// runs in one SQL transaction: the request row (and the user row when the
// balance changes) is locked, the transition is validated against
// loyalty.Transition and then applied with a status-guarded update.
type Redemption struct {
	DB       *sql.DB
	Ledger   *Ledger
	Rewards  *repository.RewardRepo
	Requests *repository.RedeemRequestRepo

	Now     func() time.Time
	NewCode func() string
}

func NewRedemption(db *sql.DB, ledger *Ledger, rewards *repository.RewardRepo, requests *repository.RedeemRequestRepo) *Redemption {
	return &Redemption{
		DB:       db,
		Ledger:   ledger,
		Rewards:  rewards,
		Requests: requests,
		Now:      func() time.Time { return time.Now().UTC() },
		NewCode:  func() string { return uuid.NewString() },
	}
}

// Create debits the reward cost from the customer and opens a pending
// request.  Eligibility failures leave no trace.
func (s *Redemption) Create(ctx context.Context, userID, rewardID uint64) (model.RedeemRequest, error) {
	var rr model.RedeemRequest
	err := withTx(ctx, s.DB, func(tx *sql.Tx) error {
		acct, err := s.Ledger.LockTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !acct.Active {
			return ErrAccountInactive
		}
		reward, err := s.Rewards.GetByIDTx(ctx, tx, rewardID)
		if err != nil {
			return err
		}
		if err := loyalty.CheckEligibility(acct.Balance, reward.Offer()); err != nil {
			return err
		}
		err = acct.Debit(ctx, reward.PointsCost, model.Transaction{
			Type:        model.TxRedemption,
			Description: fmt.Sprintf("Redeemed %s (%d pts)", reward.Name, reward.PointsCost),
		})
		if err != nil {
			return err
		}
		id, err := s.Requests.CreateTx(ctx, tx, userID, rewardID, reward.PointsCost)
		if err != nil {
			return err
		}
		rr = model.RedeemRequest{
			ID:          id,
			UserID:      userID,
			RewardID:    rewardID,
			Status:      loyalty.StatusPending,
			PointsUsed:  reward.PointsCost,
			RequestedAt: s.Now(),
		}
		return nil
	})
	return rr, err
}

// Approve issues the voucher.  The balance is not touched.
func (s *Redemption) Approve(ctx context.Context, requestID, managerID uint64, note *string) (model.RedeemRequest, error) {
	var rr model.RedeemRequest
	err := withTx(ctx, s.DB, func(tx *sql.Tx) error {
		cur, err := s.lockFor(ctx, tx, requestID, loyalty.ActionApprove)
		if err != nil {
			return err
		}
		reward, err := s.Rewards.GetByIDTx(ctx, tx, cur.RewardID)
		if err != nil {
			return err
		}
		now := s.Now()
		code := s.NewCode()
		expires := loyalty.VoucherExpiry(now, reward.ExpiryDays)
		if err := s.Requests.ApproveTx(ctx, tx, requestID, managerID, code, now, expires, note); err != nil {
			return stale(err)
		}
		cur.Status = loyalty.StatusApproved
		cur.ProcessedAt, cur.ProcessedBy = &now, &managerID
		cur.VoucherCode, cur.ExpiresAt, cur.Note = &code, &expires, note
		rr = cur
		return nil
	})
	return rr, err
}

// Reject closes the request and refunds points_used to the customer.
func (s *Redemption) Reject(ctx context.Context, requestID, managerID uint64, note *string) (model.RedeemRequest, error) {
	var rr model.RedeemRequest
	err := withTx(ctx, s.DB, func(tx *sql.Tx) error {
		cur, err := s.lockFor(ctx, tx, requestID, loyalty.ActionReject)
		if err != nil {
			return err
		}
		now := s.Now()
		if err := s.Requests.RejectTx(ctx, tx, requestID, managerID, now, note); err != nil {
			return stale(err)
		}
		acct, err := s.Ledger.LockTx(ctx, tx, cur.UserID)
		if err != nil {
			return err
		}
		err = acct.Credit(ctx, cur.PointsUsed, model.Transaction{
			Type:        model.TxPointsAdded,
			Description: fmt.Sprintf("Refund for rejected redeem request #%d", requestID),
			CreatedBy:   &managerID,
		})
		if err != nil {
			return err
		}
		cur.Status = loyalty.StatusRejected
		cur.ProcessedAt, cur.ProcessedBy, cur.Note = &now, &managerID, note
		rr = cur
		return nil
	})
	return rr, err
}

// Use redeems an approved voucher for its owner.  An expired voucher stays
// approved and returns loyalty.ErrVoucherExpired.
func (s *Redemption) Use(ctx context.Context, requestID, userID uint64) (model.RedeemRequest, error) {
	var rr model.RedeemRequest
	err := withTx(ctx, s.DB, func(tx *sql.Tx) error {
		cur, err := s.Requests.GetForUpdateTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if cur.UserID != userID {
			return repository.ErrForbidden
		}
		if _, err := loyalty.Transition(cur.Status, loyalty.ActionUse); err != nil {
			return err
		}
		now := s.Now()
		var expires time.Time
		if cur.ExpiresAt != nil {
			expires = *cur.ExpiresAt
		}
		if err := loyalty.CheckUsable(expires, now); err != nil {
			return err
		}
		if err := s.Requests.MarkUsedTx(ctx, tx, requestID, now); err != nil {
			return stale(err)
		}
		// Informational entry; the points left the balance at creation.
		_, err = s.Ledger.Txns.CreateTx(ctx, tx, &model.Transaction{
			UserID:      userID,
			Type:        model.TxRewardRedeemed,
			PointsSpent: cur.PointsUsed,
			Description: fmt.Sprintf("Voucher used for redeem request #%d", requestID),
		})
		if err != nil {
			return err
		}
		cur.Status = loyalty.StatusUsed
		cur.UsedAt = &now
		rr = cur
		return nil
	})
	return rr, err
}

// lockFor loads the request row with a lock and checks that action is
// allowed from its current status.
func (s *Redemption) lockFor(ctx context.Context, tx *sql.Tx, id uint64, action loyalty.Action) (model.RedeemRequest, error) {
	cur, err := s.Requests.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return cur, err
	}
	if _, err := loyalty.Transition(cur.Status, action); err != nil {
		return cur, err
	}
	return cur, nil
}

func stale(err error) error {
	if errors.Is(err, repository.ErrStaleState) {
		return loyalty.ErrInvalidTransition
	}
	return err
}
