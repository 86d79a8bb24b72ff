package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// TransactionRepo appends and lists ledger entries.  Rows are never
// updated or deleted.
type TransactionRepo struct{ DB *sql.DB }

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{DB: db} }

// CreateTx appends an entry inside the ledger transaction.  Points is
// stored in points_spent or points_earned depending on the type.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (user_id, type, amount, points_earned, points_spent, description, created_by) VALUES (?,?,?,?,?,?,?)",
		t.UserID, string(t.Type), t.Amount, t.PointsEarned, t.PointsSpent, t.Description, t.CreatedBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	t.ID = uint64(id)
	return t.ID, nil
}

// ListByUser returns the newest entries of a user first along with the
// total entry count.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uint64, p Page) ([]model.Transaction, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE user_id=?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	p = p.Normalize()
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, type, amount, points_earned, points_spent, description, created_by, created_at
		 FROM transactions WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Transaction{}
	for rows.Next() {
		var (
			t         model.Transaction
			typ       string
			amount    sql.NullString
			createdBy sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &typ, &amount, &t.PointsEarned, &t.PointsSpent,
			&t.Description, &createdBy, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		t.Type = model.TransactionType(typ)
		if amount.Valid {
			t.Amount = &amount.String
		}
		if createdBy.Valid {
			v := uint64(createdBy.Int64)
			t.CreatedBy = &v
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}
