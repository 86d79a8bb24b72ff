package service

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
)

var (
	rewardCols = []string{"id", "name", "description", "points_cost", "expiry_days", "is_active",
		"minimum_required_tier", "image_path", "created_at", "updated_at"}
	redeemCols = []string{"id", "user_id", "reward_id", "status", "points_used", "voucher_code", "note",
		"requested_at", "processed_at", "processed_by", "expires_at", "used_at"}
)

const (
	lockUserQ   = `SELECT points, highest_points, is_active FROM users WHERE id=\? FOR UPDATE`
	updateUserQ = `UPDATE users SET points=\?, highest_points=\?, loyalty_tier=\? WHERE id=\?`
	insertTxnQ  = `INSERT INTO transactions`
	rewardTxQ   = `FROM rewards WHERE id=\? LOCK IN SHARE MODE`
	redeemLockQ = `FROM redeem_requests rr WHERE rr.id=\? FOR UPDATE`
)

type fixture struct {
	db         *sql.DB
	mock       sqlmock.Sqlmock
	ledger     *Ledger
	redemption *Redemption
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ledger := NewLedger(db, repository.NewUserRepo(db), repository.NewTransactionRepo(db), 10000)
	red := NewRedemption(db, ledger, repository.NewRewardRepo(db), repository.NewRedeemRequestRepo(db))
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	red.Now = func() time.Time { return now }
	red.NewCode = func() string { return "4b1f2c9e-0000-4000-8000-000000000001" }
	return &fixture{db: db, mock: mock, ledger: ledger, redemption: red, now: now}
}

func (f *fixture) expectBalance(userID uint64, points, highest int64) {
	f.expectAccount(userID, points, highest, true)
}

func (f *fixture) expectAccount(userID uint64, points, highest int64, active bool) {
	f.mock.ExpectQuery(lockUserQ).WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"points", "highest_points", "is_active"}).AddRow(points, highest, active))
}

func (f *fixture) expectReward(id uint64, cost int64, days int, active bool, tier string) {
	f.mock.ExpectQuery(rewardTxQ).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(rewardCols).
			AddRow(id, "Free coffee", nil, cost, days, active, tier, nil, f.now, f.now))
}

func (f *fixture) expectRequest(id, userID, rewardID uint64, status string, pointsUsed int64, expiresAt any) {
	f.mock.ExpectQuery(redeemLockQ).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(redeemCols).
			AddRow(id, userID, rewardID, status, pointsUsed, nil, nil, f.now.Add(-time.Hour), nil, nil, expiresAt, nil))
}

func modelRedemption() model.Transaction {
	return model.Transaction{Type: model.TxRedemption, Description: "test"}
}
