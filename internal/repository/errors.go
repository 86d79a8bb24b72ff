// Package repository defines the MySQL data access layer and the error
// values shared by every repository.  Handlers and services compare
// against these sentinels with errors.Is.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by id, email or token matches no
// row.  Handlers translate it into an HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into an HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent records, such as deleting a reward that redeem
// requests still reference.  Handlers translate it into an HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrStaleState is returned by guarded status updates when the row is no
// longer in the expected state (someone else processed it first).
var ErrStaleState = errors.New("row not in expected state")

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// isDuplicate detects MySQL error 1062 (duplicate entry).
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "1062")
}

// isForeignKey detects MySQL error 1451 (row is referenced by a foreign key).
func isForeignKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1451
	}
	return strings.Contains(err.Error(), "1451")
}
