package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// RewardRepo stores the voucher catalog.
type RewardRepo struct{ DB *sql.DB }

func NewRewardRepo(db *sql.DB) *RewardRepo { return &RewardRepo{DB: db} }

const rewardColumns = `id,name,description,points_cost,expiry_days,is_active,minimum_required_tier,image_path,created_at,updated_at`

func scanReward(s rowScanner) (model.Reward, error) {
	var (
		r     model.Reward
		desc  sql.NullString
		image sql.NullString
		tier  string
	)
	err := s.Scan(&r.ID, &r.Name, &desc, &r.PointsCost, &r.ExpiryDays, &r.IsActive, &tier, &image, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.MinimumRequiredTier = loyalty.Tier(tier)
	if desc.Valid {
		r.Description = &desc.String
	}
	if image.Valid {
		r.ImagePath = &image.String
	}
	return r, nil
}

// Create inserts a reward and returns its ID.
func (r *RewardRepo) Create(ctx context.Context, rw *model.Reward) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO rewards (name, description, points_cost, expiry_days, is_active, minimum_required_tier) VALUES (?,?,?,?,?,?)",
		rw.Name, rw.Description, rw.PointsCost, rw.ExpiryDays, rw.IsActive, string(rw.MinimumRequiredTier))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID loads one reward.
func (r *RewardRepo) GetByID(ctx context.Context, id uint64) (model.Reward, error) {
	rw, err := scanReward(r.DB.QueryRowContext(ctx, "SELECT "+rewardColumns+" FROM rewards WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return rw, ErrNotFound
	}
	return rw, err
}

// GetByIDTx loads a reward inside a transaction with a shared lock, so a
// concurrent edit cannot change the cost between the eligibility check and
// the debit.
func (r *RewardRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reward, error) {
	rw, err := scanReward(tx.QueryRowContext(ctx,
		"SELECT "+rewardColumns+" FROM rewards WHERE id=? LOCK IN SHARE MODE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return rw, ErrNotFound
	}
	return rw, err
}

// List returns rewards ordered by cost.  activeOnly hides deactivated ones.
func (r *RewardRepo) List(ctx context.Context, activeOnly bool) ([]model.Reward, error) {
	q := "SELECT " + rewardColumns + " FROM rewards"
	if activeOnly {
		q += " WHERE is_active=1"
	}
	q += " ORDER BY points_cost, id"
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reward{}
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of a reward.
func (r *RewardRepo) Update(ctx context.Context, rw *model.Reward) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE rewards SET name=?, description=?, points_cost=?, expiry_days=?, is_active=?, minimum_required_tier=? WHERE id=?",
		rw.Name, rw.Description, rw.PointsCost, rw.ExpiryDays, rw.IsActive, string(rw.MinimumRequiredTier), rw.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, rw.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a reward.  It returns ErrConflict while redeem requests
// still reference it.
func (r *RewardRepo) Delete(ctx context.Context, id uint64) error {
	var refs int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM redeem_requests WHERE reward_id=?", id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM rewards WHERE id=?", id)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetImage records the stored image path.
func (r *RewardRepo) SetImage(ctx context.Context, id uint64, path string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE rewards SET image_path=? WHERE id=?", path, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
