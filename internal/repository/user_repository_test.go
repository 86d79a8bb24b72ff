package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
)

var userCols = []string{"id", "email", "password_hash", "name", "phone", "role", "is_active",
	"points", "highest_points", "loyalty_tier", "avatar_path", "created_at", "updated_at"}

func TestUserRepo_GetByEmail(t *testing.T) {
	tests := []struct {
		name    string
		mockFn  func(sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "found",
			mockFn: func(mock sqlmock.Sqlmock) {
				now := time.Now()
				mock.ExpectQuery("SELECT .* FROM users WHERE email=\\?").
					WithArgs("ana@example.com").
					WillReturnRows(sqlmock.NewRows(userCols).
						AddRow(7, "ana@example.com", "hash", "Ana", nil, "customer", true, 600, 600, "Silver", nil, now, now))
			},
		},
		{
			name: "missing",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM users WHERE email=\\?").
					WithArgs("ana@example.com").
					WillReturnRows(sqlmock.NewRows(userCols))
			},
			wantErr: ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupTestDB(t)
			tt.mockFn(mock)

			u, err := NewUserRepo(db).GetByEmail(context.Background(), "  Ana@Example.com ")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, uint64(7), u.ID)
				assert.Equal(t, authz.RoleCustomer, u.Role)
				assert.Equal(t, loyalty.TierSilver, u.LoyaltyTier)
				assert.Nil(t, u.Phone)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepo_CreateTxDuplicateEmail(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = NewUserRepo(db).CreateTx(context.Background(), tx, NewUser{
		Email: "a@b.c", Password: "secret123", Name: "A", Role: authz.RoleCustomer,
	}, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_LockBalanceTx(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT points, highest_points, is_active FROM users WHERE id=? FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"points", "highest_points", "is_active"}).AddRow(200, 1200, false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT points, highest_points, is_active FROM users WHERE id=? FOR UPDATE")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"points", "highest_points", "is_active"}))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	repo := NewUserRepo(db)

	b, active, err := repo.LockBalanceTx(context.Background(), tx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(200), b.Points)
	assert.Equal(t, loyalty.TierGold, b.Tier)
	assert.False(t, active)

	_, _, err = repo.LockBalanceTx(context.Background(), tx, 4)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateBalanceTx(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET points=?, highest_points=?, loyalty_tier=? WHERE id=?")).
		WithArgs(600, 600, "Silver", 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = NewUserRepo(db).UpdateBalanceTx(context.Background(), tx, 9, loyalty.NewBalance(600, 600))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ListFilters(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND role=? AND (name LIKE ? OR email LIKE ? OR phone LIKE ?)")).
		WithArgs("customer", "%ana%", "%ana%", "%ana%").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("SELECT .* FROM users WHERE 1=1 AND role=\\? .* LIMIT \\? OFFSET \\?").
		WithArgs("customer", "%ana%", "%ana%", "%ana%", 20, 0).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(7, "ana@example.com", "hash", "Ana", "0912", "customer", true, 10, 10, "Bronze", "/uploads/a.png", now, now))

	users, total, err := NewUserRepo(db).List(context.Background(), UserFilter{Role: authz.RoleCustomer, Query: " ana "})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	require.NotNil(t, users[0].Phone)
	assert.Equal(t, "0912", *users[0].Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateNoFieldsChecksExistence(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE id=\\?").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(userCols))

	err := NewUserRepo(db).Update(context.Background(), 5, UserPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isDuplicate(&mysql.MySQLError{Number: 1451}))
	assert.True(t, isDuplicate(errors.New("Error 1062: Duplicate entry")))
	assert.False(t, isDuplicate(nil))
}
