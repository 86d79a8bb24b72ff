package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = `id,email,password_hash,name,phone,role,is_active,points,highest_points,loyalty_tier,avatar_path,created_at,updated_at`

// NewUser carries the fields accepted at creation time.
type NewUser struct {
	Email    string
	Password string
	Name     string
	Phone    *string
	Role     authz.Role
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u      model.User
		phone  sql.NullString
		avatar sql.NullString
		role   string
		tier   string
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &phone, &role, &u.IsActive,
		&u.Points, &u.HighestPoints, &tier, &avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.Role = authz.Role(role)
	u.LoyaltyTier = loyalty.Tier(tier)
	if phone.Valid {
		u.Phone = &phone.String
	}
	if avatar.Valid {
		u.AvatarPath = &avatar.String
	}
	return u, nil
}

// CreateTx inserts a user with a zero balance and returns its ID.  The
// email is normalised to lower case.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, nu NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, phone, role, points, highest_points, loyalty_tier) VALUES (?,?,?,?,?,0,0,?)",
		email, hash, strings.TrimSpace(nu.Name), nu.Phone, string(nu.Role), string(loyalty.TierBronze))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// LockBalanceTx reads the balance and active flag of a user and locks the
// row until the transaction ends.  Concurrent ledger writers for the same
// user queue behind this lock.
func (r *UserRepo) LockBalanceTx(ctx context.Context, tx *sql.Tx, id uint64) (loyalty.Balance, bool, error) {
	var (
		points, highest int64
		active          bool
	)
	err := tx.QueryRowContext(ctx,
		"SELECT points, highest_points, is_active FROM users WHERE id=? FOR UPDATE", id).Scan(&points, &highest, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return loyalty.Balance{}, false, ErrNotFound
		}
		return loyalty.Balance{}, false, err
	}
	return loyalty.NewBalance(points, highest), active, nil
}

// UpdateBalanceTx stores points, high-water mark and tier together.
func (r *UserRepo) UpdateBalanceTx(ctx context.Context, tx *sql.Tx, id uint64, b loyalty.Balance) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET points=?, highest_points=?, loyalty_tier=? WHERE id=?",
		b.Points, b.HighestPoints, string(b.Tier), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserFilter narrows List.  Query matches name, email or phone.
type UserFilter struct {
	Role  authz.Role
	Query string
	Page  Page
}

// List returns one page of users ordered by id and the total match count.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Role != "" {
		where = append(where, "role=?")
		args = append(args, string(f.Role))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		where = append(where, "(name LIKE ? OR email LIKE ? OR phone LIKE ?)")
		args = append(args, like, like, like)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	p := f.Page.Normalize()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+cond+" ORDER BY id LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// UserPatch holds optional profile/administrative changes.  Nil fields are
// left untouched.
type UserPatch struct {
	Name     *string
	Phone    *string
	Role     *authz.Role
	IsActive *bool
}

// Update applies a patch.  It returns ErrNotFound when the user does not
// exist.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UserPatch) error {
	sets := []string{}
	args := []any{}
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, strings.TrimSpace(*p.Name))
	}
	if p.Phone != nil {
		sets = append(sets, "phone=?")
		args = append(args, *p.Phone)
	}
	if p.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, string(*p.Role))
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active=?")
		args = append(args, *p.IsActive)
	}
	if len(sets) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE users SET %s WHERE id=?", strings.Join(sets, ", ")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows when values are unchanged.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SetAvatar stores the uploaded image path.
func (r *UserRepo) SetAvatar(ctx context.Context, id uint64, path string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET avatar_path=? WHERE id=?", path, id)
	return err
}

// BalanceRow is one user's stored ledger fields, used by the tier backfill.
type BalanceRow struct {
	ID            uint64
	Points        int64
	HighestPoints int64
	Tier          string
}

// ScanBalances returns up to limit rows with id > afterID, ordered by id.
func (r *UserRepo) ScanBalances(ctx context.Context, afterID uint64, limit int) ([]BalanceRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, points, highest_points, loyalty_tier FROM users WHERE id > ? ORDER BY id LIMIT ?",
		afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BalanceRow
	for rows.Next() {
		var b BalanceRow
		if err := rows.Scan(&b.ID, &b.Points, &b.HighestPoints, &b.Tier); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
