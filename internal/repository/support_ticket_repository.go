package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

type SupportTicketRepo struct{ DB *sql.DB }

func NewSupportTicketRepo(db *sql.DB) *SupportTicketRepo { return &SupportTicketRepo{DB: db} }

const ticketColumns = `id, reference, user_id, subject, message, priority, status, assigned_to, created_at, updated_at`

func scanTicket(s rowScanner) (model.SupportTicket, error) {
	var (
		t        model.SupportTicket
		assigned sql.NullInt64
	)
	err := s.Scan(&t.ID, &t.Reference, &t.UserID, &t.Subject, &t.Message, &t.Priority, &t.Status,
		&assigned, &t.CreatedAt, &t.UpdatedAt)
	if assigned.Valid {
		v := uint64(assigned.Int64)
		t.AssignedTo = &v
	}
	return t, err
}

// Create inserts an open ticket.
func (r *SupportTicketRepo) Create(ctx context.Context, t *model.SupportTicket) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO support_tickets (reference, user_id, subject, message, priority, status) VALUES (?,?,?,?,?,?)",
		t.Reference, t.UserID, t.Subject, t.Message, t.Priority, model.TicketOpen)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID loads a ticket together with its replies.
func (r *SupportTicketRepo) GetByID(ctx context.Context, id uint64) (model.SupportTicket, error) {
	t, err := scanTicket(r.DB.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM support_tickets WHERE id=?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, ErrNotFound
		}
		return t, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, ticket_id, author_id, message, created_at FROM ticket_replies WHERE ticket_id=? ORDER BY created_at, id", id)
	if err != nil {
		return t, err
	}
	defer rows.Close()
	for rows.Next() {
		var rp model.TicketReply
		if err := rows.Scan(&rp.ID, &rp.TicketID, &rp.AuthorID, &rp.Message, &rp.CreatedAt); err != nil {
			return t, err
		}
		t.Replies = append(t.Replies, rp)
	}
	return t, rows.Err()
}

// TicketFilter narrows List.  A zero UserID lists every user's tickets.
type TicketFilter struct {
	UserID uint64
	Status string
	Page   Page
}

// List returns tickets newest first, without replies.
func (r *SupportTicketRepo) List(ctx context.Context, f TicketFilter) ([]model.SupportTicket, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.UserID != 0 {
		where = append(where, "user_id=?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	p := f.Page.Normalize()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM support_tickets WHERE "+strings.Join(where, " AND ")+
			" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SupportTicket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TicketPatch holds staff changes.  Nil fields are left untouched.
type TicketPatch struct {
	Status     *string
	Priority   *string
	AssignedTo *uint64
}

// Update applies a patch to a ticket.
func (r *SupportTicketRepo) Update(ctx context.Context, id uint64, p TicketPatch) error {
	sets := []string{}
	args := []any{}
	if p.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *p.Status)
	}
	if p.Priority != nil {
		sets = append(sets, "priority=?")
		args = append(args, *p.Priority)
	}
	if p.AssignedTo != nil {
		sets = append(sets, "assigned_to=?")
		args = append(args, *p.AssignedTo)
	}
	if len(sets) == 0 {
		return nil
	}
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE support_tickets SET %s WHERE id=?", strings.Join(sets, ", ")),
		append(args, id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM support_tickets WHERE id=?", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// AddReply appends a message to a ticket thread.
func (r *SupportTicketRepo) AddReply(ctx context.Context, ticketID, authorID uint64, message string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO ticket_replies (ticket_id, author_id, message) VALUES (?,?,?)",
		ticketID, authorID, message)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
