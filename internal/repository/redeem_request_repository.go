package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// RedeemRequestRepo persists redemption requests.  Status changes go
// through guarded updates that only match rows still in the expected
// state; a miss is reported as ErrStaleState.
type RedeemRequestRepo struct{ DB *sql.DB }

func NewRedeemRequestRepo(db *sql.DB) *RedeemRequestRepo { return &RedeemRequestRepo{DB: db} }

const redeemColumns = `rr.id, rr.user_id, rr.reward_id, rr.status, rr.points_used, rr.voucher_code, rr.note,
	rr.requested_at, rr.processed_at, rr.processed_by, rr.expires_at, rr.used_at`

func scanRedeem(s rowScanner, extra ...any) (model.RedeemRequest, error) {
	var (
		rr          model.RedeemRequest
		status      string
		voucher     sql.NullString
		note        sql.NullString
		processedAt sql.NullTime
		processedBy sql.NullInt64
		expiresAt   sql.NullTime
		usedAt      sql.NullTime
	)
	dest := []any{&rr.ID, &rr.UserID, &rr.RewardID, &status, &rr.PointsUsed, &voucher, &note,
		&rr.RequestedAt, &processedAt, &processedBy, &expiresAt, &usedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return rr, err
	}
	rr.Status = loyalty.RequestStatus(status)
	if voucher.Valid {
		rr.VoucherCode = &voucher.String
	}
	if note.Valid {
		rr.Note = &note.String
	}
	if processedAt.Valid {
		rr.ProcessedAt = &processedAt.Time
	}
	if processedBy.Valid {
		v := uint64(processedBy.Int64)
		rr.ProcessedBy = &v
	}
	if expiresAt.Valid {
		rr.ExpiresAt = &expiresAt.Time
	}
	if usedAt.Valid {
		rr.UsedAt = &usedAt.Time
	}
	return rr, nil
}

// CreateTx inserts a pending request.
func (r *RedeemRequestRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, rewardID uint64, pointsUsed int64) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO redeem_requests (user_id, reward_id, status, points_used) VALUES (?,?,?,?)",
		userID, rewardID, string(loyalty.StatusPending), pointsUsed)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID loads a request.
func (r *RedeemRequestRepo) GetByID(ctx context.Context, id uint64) (model.RedeemRequest, error) {
	rr, err := scanRedeem(r.DB.QueryRowContext(ctx,
		"SELECT "+redeemColumns+" FROM redeem_requests rr WHERE rr.id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return rr, ErrNotFound
	}
	return rr, err
}

// GetForUpdateTx loads and locks a request row.
func (r *RedeemRequestRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.RedeemRequest, error) {
	rr, err := scanRedeem(tx.QueryRowContext(ctx,
		"SELECT "+redeemColumns+" FROM redeem_requests rr WHERE rr.id=? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return rr, ErrNotFound
	}
	return rr, err
}

func guarded(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}

// ApproveTx moves a pending request to approved and stores the voucher.
func (r *RedeemRequestRepo) ApproveTx(ctx context.Context, tx *sql.Tx, id, processedBy uint64, voucher string, at, expiresAt time.Time, note *string) error {
	return guarded(tx.ExecContext(ctx,
		`UPDATE redeem_requests SET status=?, processed_at=?, processed_by=?, voucher_code=?, expires_at=?, note=?
		 WHERE id=? AND status=?`,
		string(loyalty.StatusApproved), at, processedBy, voucher, expiresAt, note,
		id, string(loyalty.StatusPending)))
}

// RejectTx moves a pending request to rejected.
func (r *RedeemRequestRepo) RejectTx(ctx context.Context, tx *sql.Tx, id, processedBy uint64, at time.Time, note *string) error {
	return guarded(tx.ExecContext(ctx,
		`UPDATE redeem_requests SET status=?, processed_at=?, processed_by=?, note=?
		 WHERE id=? AND status=?`,
		string(loyalty.StatusRejected), at, processedBy, note,
		id, string(loyalty.StatusPending)))
}

// MarkUsedTx moves an approved request to used.
func (r *RedeemRequestRepo) MarkUsedTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	return guarded(tx.ExecContext(ctx,
		"UPDATE redeem_requests SET status=?, used_at=? WHERE id=? AND status=?",
		string(loyalty.StatusUsed), at, id, string(loyalty.StatusApproved)))
}

const redeemDetailQuery = `SELECT ` + redeemColumns + `, rw.name, u.name, u.email
	FROM redeem_requests rr
	JOIN rewards rw ON rw.id = rr.reward_id
	JOIN users u ON u.id = rr.user_id`

func (r *RedeemRequestRepo) listDetails(ctx context.Context, where string, args ...any) ([]model.RedeemRequestDetail, error) {
	rows, err := r.DB.QueryContext(ctx, redeemDetailQuery+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RedeemRequestDetail{}
	for rows.Next() {
		var d model.RedeemRequestDetail
		rr, err := scanRedeem(rows, &d.RewardName, &d.UserName, &d.UserEmail)
		if err != nil {
			return nil, err
		}
		d.RedeemRequest = rr
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByUser returns a customer's requests, newest first.
func (r *RedeemRequestRepo) ListByUser(ctx context.Context, userID uint64, p Page) ([]model.RedeemRequestDetail, error) {
	p = p.Normalize()
	return r.listDetails(ctx, "WHERE rr.user_id=? ORDER BY rr.requested_at DESC, rr.id DESC LIMIT ? OFFSET ?",
		userID, p.Limit, p.Offset)
}

// ListByStatus returns requests in one status (all when status is empty).
// Pending requests are listed oldest first so they are processed in order.
func (r *RedeemRequestRepo) ListByStatus(ctx context.Context, status loyalty.RequestStatus, p Page) ([]model.RedeemRequestDetail, error) {
	p = p.Normalize()
	if status == "" {
		return r.listDetails(ctx, "ORDER BY rr.requested_at DESC, rr.id DESC LIMIT ? OFFSET ?", p.Limit, p.Offset)
	}
	order := "DESC"
	if status == loyalty.StatusPending {
		order = "ASC"
	}
	return r.listDetails(ctx,
		"WHERE rr.status=? ORDER BY rr.requested_at "+order+", rr.id "+order+" LIMIT ? OFFSET ?",
		string(status), p.Limit, p.Offset)
}
