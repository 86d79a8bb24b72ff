package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

type ActivityLogRepo struct{ DB *sql.DB }

func NewActivityLogRepo(db *sql.DB) *ActivityLogRepo { return &ActivityLogRepo{DB: db} }

// Insert writes one audit entry.
func (r *ActivityLogRepo) Insert(ctx context.Context, l *model.ActivityLog) error {
	details := l.Details
	if len(details) > 500 {
		details = details[:500]
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO activity_logs (actor_id, action, entity, entity_id, details, created_at) VALUES (?,?,?,?,?,?)",
		l.ActorID, l.Action, l.Entity, l.EntityID, details, l.CreatedAt)
	return err
}

// ActivityFilter narrows List.
type ActivityFilter struct {
	ActorID uint64
	Action  string
	Page    Page
}

// List returns entries newest first.
func (r *ActivityLogRepo) List(ctx context.Context, f ActivityFilter) ([]model.ActivityLog, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.ActorID != 0 {
		where = append(where, "actor_id=?")
		args = append(args, f.ActorID)
	}
	if f.Action != "" {
		where = append(where, "action=?")
		args = append(args, f.Action)
	}
	p := f.Page.Normalize()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, actor_id, action, entity, entity_id, details, created_at FROM activity_logs WHERE "+
			strings.Join(where, " AND ")+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ActivityLog{}
	for rows.Next() {
		var (
			l        model.ActivityLog
			actor    sql.NullInt64
			entityID sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &actor, &l.Action, &l.Entity, &entityID, &l.Details, &l.CreatedAt); err != nil {
			return nil, err
		}
		if actor.Valid {
			v := uint64(actor.Int64)
			l.ActorID = &v
		}
		if entityID.Valid {
			v := uint64(entityID.Int64)
			l.EntityID = &v
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
