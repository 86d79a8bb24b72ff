package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
)

// A Silver customer at 600 requests a 400-point Bronze voucher, drops to
// 200, and gets the 400 back when a manager rejects it.
func TestRedemption_CreateThenRejectRestoresBalance(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectBegin()
	f.expectBalance(7, 600, 600)
	f.expectReward(3, 400, 30, true, "Bronze")
	f.mock.ExpectExec(updateUserQ).WithArgs(200, 600, "Silver", 7).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(insertTxnQ).
		WithArgs(7, "redemption", nil, 0, 400, "Redeemed Free coffee (400 pts)", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectExec("INSERT INTO redeem_requests").
		WithArgs(7, 3, "pending", 400).
		WillReturnResult(sqlmock.NewResult(11, 1))
	f.mock.ExpectCommit()

	rr, err := f.redemption.Create(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), rr.ID)
	assert.Equal(t, loyalty.StatusPending, rr.Status)
	assert.Equal(t, int64(400), rr.PointsUsed)

	f.mock.ExpectBegin()
	f.expectRequest(11, 7, 3, "pending", 400, nil)
	f.mock.ExpectExec(`UPDATE redeem_requests SET status=\?, processed_at=\?, processed_by=\?, note=\?`).
		WithArgs("rejected", sqlmock.AnyArg(), 2, nil, 11, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.expectBalance(7, 200, 600)
	f.mock.ExpectExec(updateUserQ).WithArgs(600, 600, "Silver", 7).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(insertTxnQ).
		WithArgs(7, "points_added", nil, 400, 0, "Refund for rejected redeem request #11", 2).
		WillReturnResult(sqlmock.NewResult(2, 1))
	f.mock.ExpectCommit()

	rr, err = f.redemption.Reject(context.Background(), 11, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, loyalty.StatusRejected, rr.Status)
	require.NotNil(t, rr.ProcessedAt)
	assert.Equal(t, f.now, *rr.ProcessedAt)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRedemption_CreateIneligibleCreatesNothing(t *testing.T) {
	tests := []struct {
		name    string
		points  int64
		highest int64
		active  bool
		tier    string
		wantErr error
	}{
		{name: "insufficient points", points: 300, highest: 300, active: true, tier: "Bronze", wantErr: loyalty.ErrInsufficientPoints},
		{name: "tier too low", points: 450, highest: 450, active: true, tier: "Silver", wantErr: loyalty.ErrInsufficientTier},
		{name: "inactive reward", points: 900, highest: 900, active: false, tier: "Bronze", wantErr: loyalty.ErrRewardInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.mock.ExpectBegin()
			f.expectBalance(7, tt.points, tt.highest)
			f.expectReward(3, 400, 30, tt.active, tt.tier)
			f.mock.ExpectRollback()

			_, err := f.redemption.Create(context.Background(), 7, 3)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestRedemption_ApproveIssuesVoucher(t *testing.T) {
	f := newFixture(t)
	note := "enjoy"
	f.mock.ExpectBegin()
	f.expectRequest(11, 7, 3, "pending", 400, nil)
	f.expectReward(3, 400, 30, true, "Bronze")
	f.mock.ExpectExec(`UPDATE redeem_requests SET status=\?, processed_at=\?, processed_by=\?, voucher_code=\?, expires_at=\?, note=\?`).
		WithArgs("approved", f.now, 2, "4b1f2c9e-0000-4000-8000-000000000001", f.now.Add(30*24*time.Hour), "enjoy", 11, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	rr, err := f.redemption.Approve(context.Background(), 11, 2, &note)
	require.NoError(t, err)
	assert.Equal(t, loyalty.StatusApproved, rr.Status)
	require.NotNil(t, rr.VoucherCode)
	require.NotNil(t, rr.ExpiresAt)
	assert.Equal(t, f.now.Add(30*24*time.Hour), *rr.ExpiresAt)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRedemption_SecondDecisionIsInvalid(t *testing.T) {
	for _, status := range []string{"approved", "rejected", "used"} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t)
			f.mock.ExpectBegin()
			f.expectRequest(11, 7, 3, status, 400, nil)
			f.mock.ExpectRollback()
			_, err := f.redemption.Approve(context.Background(), 11, 2, nil)
			assert.ErrorIs(t, err, loyalty.ErrInvalidTransition)

			f.mock.ExpectBegin()
			f.expectRequest(11, 7, 3, status, 400, nil)
			f.mock.ExpectRollback()
			_, err = f.redemption.Reject(context.Background(), 11, 2, nil)
			assert.ErrorIs(t, err, loyalty.ErrInvalidTransition)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestRedemption_RejectLosingRaceDoesNotRefund(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.expectRequest(11, 7, 3, "pending", 400, nil)
	f.mock.ExpectExec(`UPDATE redeem_requests SET status=\?`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectRollback()

	_, err := f.redemption.Reject(context.Background(), 11, 2, nil)
	assert.ErrorIs(t, err, loyalty.ErrInvalidTransition)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRedemption_Use(t *testing.T) {
	t.Run("approved and valid", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectRequest(11, 7, 3, "approved", 400, f.now.Add(time.Hour))
		f.mock.ExpectExec(`UPDATE redeem_requests SET status=\?, used_at=\? WHERE id=\? AND status=\?`).
			WithArgs("used", f.now, 11, "approved").
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectExec(insertTxnQ).
			WithArgs(7, "reward_redeemed", nil, 0, 400, "Voucher used for redeem request #11", nil).
			WillReturnResult(sqlmock.NewResult(1, 1))
		f.mock.ExpectCommit()

		rr, err := f.redemption.Use(context.Background(), 11, 7)
		require.NoError(t, err)
		assert.Equal(t, loyalty.StatusUsed, rr.Status)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("expired", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectRequest(11, 7, 3, "approved", 400, f.now.Add(-time.Minute))
		f.mock.ExpectRollback()

		_, err := f.redemption.Use(context.Background(), 11, 7)
		assert.ErrorIs(t, err, loyalty.ErrVoucherExpired)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("pending", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectRequest(11, 7, 3, "pending", 400, nil)
		f.mock.ExpectRollback()

		_, err := f.redemption.Use(context.Background(), 11, 7)
		assert.ErrorIs(t, err, loyalty.ErrInvalidTransition)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("someone else's voucher", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectBegin()
		f.expectRequest(11, 7, 3, "approved", 400, nil)
		f.mock.ExpectRollback()

		_, err := f.redemption.Use(context.Background(), 11, 8)
		assert.ErrorIs(t, err, repository.ErrForbidden)
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestRedemption_CreateRefusedForDeactivatedAccount(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.expectAccount(7, 900, 900, false)
	f.mock.ExpectRollback()

	_, err := f.redemption.Create(context.Background(), 7, 3)
	assert.ErrorIs(t, err, ErrAccountInactive)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
