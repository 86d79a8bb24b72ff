package repository

import (
	"context"
	"database/sql"
	"time"
)

// DashboardRepo runs the read-only aggregates behind the dashboards.
type DashboardRepo struct{ DB *sql.DB }

func NewDashboardRepo(db *sql.DB) *DashboardRepo { return &DashboardRepo{DB: db} }

// DailyCount is one point of a per-day series.
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// TopCustomer is a leaderboard row.
type TopCustomer struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Points      int64  `json:"points"`
	LoyaltyTier string `json:"loyalty_tier"`
}

// OwnerMetrics aggregates the whole program.
type OwnerMetrics struct {
	UsersByRole        map[string]int `json:"users_by_role"`
	CustomersByTier    map[string]int `json:"customers_by_tier"`
	PointsIssued       int64          `json:"points_issued"`
	PointsRedeemed     int64          `json:"points_redeemed"`
	RequestsByStatus   map[string]int `json:"requests_by_status"`
	NewCustomersPerDay []DailyCount   `json:"new_customers_per_day"`
	TopCustomers       []TopCustomer  `json:"top_customers"`
}

func (r *DashboardRepo) countBy(ctx context.Context, q string, args ...any) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

// OwnerMetrics collects the owner dashboard.  days bounds the new customer
// series and top the leaderboard length.  Redeemed points count only
// redemption rows; reward_redeemed rows are informational.
func (r *DashboardRepo) OwnerMetrics(ctx context.Context, now time.Time, days, top int) (OwnerMetrics, error) {
	var m OwnerMetrics
	var err error
	if m.UsersByRole, err = r.countBy(ctx, "SELECT role, COUNT(*) FROM users GROUP BY role"); err != nil {
		return m, err
	}
	if m.CustomersByTier, err = r.countBy(ctx,
		"SELECT loyalty_tier, COUNT(*) FROM users WHERE role='customer' GROUP BY loyalty_tier"); err != nil {
		return m, err
	}
	if err = r.DB.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(points_earned),0), COALESCE(SUM(CASE WHEN type='redemption' THEN points_spent ELSE 0 END),0) FROM transactions",
	).Scan(&m.PointsIssued, &m.PointsRedeemed); err != nil {
		return m, err
	}
	if m.RequestsByStatus, err = r.countBy(ctx, "SELECT status, COUNT(*) FROM redeem_requests GROUP BY status"); err != nil {
		return m, err
	}

	since := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	perDay, err := r.countBy(ctx,
		"SELECT DATE_FORMAT(created_at, '%Y-%m-%d') AS d, COUNT(*) FROM users WHERE role='customer' AND created_at >= ? GROUP BY d",
		since)
	if err != nil {
		return m, err
	}
	m.NewCustomersPerDay = fillDays(since, days, perDay)

	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, email, points, loyalty_tier FROM users WHERE role='customer' ORDER BY points DESC, id LIMIT ?", top)
	if err != nil {
		return m, err
	}
	defer rows.Close()
	m.TopCustomers = []TopCustomer{}
	for rows.Next() {
		var t TopCustomer
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Points, &t.LoyaltyTier); err != nil {
			return m, err
		}
		m.TopCustomers = append(m.TopCustomers, t)
	}
	return m, rows.Err()
}

// fillDays expands sparse per-day counts into a dense series.
func fillDays(since time.Time, days int, counts map[string]int) []DailyCount {
	out := make([]DailyCount, 0, days)
	for i := 0; i < days; i++ {
		d := since.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out, DailyCount{Day: d, Count: counts[d]})
	}
	return out
}

// ManagerSummary is the manager's daily overview.
type ManagerSummary struct {
	PendingRequests    int   `json:"pending_requests"`
	PurchasesToday     int   `json:"purchases_today"`
	PointsIssuedToday  int64 `json:"points_issued_today"`
	ActiveRewards      int   `json:"active_rewards"`
	OpenSupportTickets int   `json:"open_support_tickets"`
}

// ManagerSummary counts today's activity starting at UTC midnight.
func (r *DashboardRepo) ManagerSummary(ctx context.Context, now time.Time) (ManagerSummary, error) {
	var s ManagerSummary
	start := now.UTC().Truncate(24 * time.Hour)
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM redeem_requests WHERE status='pending'").Scan(&s.PendingRequests); err != nil {
		return s, err
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(CASE WHEN type='purchase' THEN 1 END), COALESCE(SUM(points_earned),0) FROM transactions WHERE created_at >= ?",
		start).Scan(&s.PurchasesToday, &s.PointsIssuedToday); err != nil {
		return s, err
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rewards WHERE is_active=1").Scan(&s.ActiveRewards); err != nil {
		return s, err
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM support_tickets WHERE status IN ('open','in_progress')").Scan(&s.OpenSupportTickets); err != nil {
		return s, err
	}
	return s, nil
}
