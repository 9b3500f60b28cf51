package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deptshare-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var userRowColumns = []string{"id", "email", "username", "password_hash", "full_name", "is_staff", "is_superuser", "active", "last_login", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "faculty@example.edu", "faculty", "hash", "Faculty One", false, false, true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("Faculty@Example.edu").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "Faculty@Example.edu")
	require.NoError(t, err)
	assert.Equal(t, "faculty", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{UserID: "u1", Token: "token", ExpiresAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersJoinsProfile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	listRows := sqlmock.NewRows([]string{"id", "username", "email", "full_name", "is_staff", "is_superuser", "active", "is_faculty", "department_id"}).
		AddRow("1", "faculty", "f@example.edu", "F", false, false, true, true, "dept-cse")
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u LEFT JOIN user_profiles p ON p.user_id = u.id WHERE 1=1 AND u.is_staff = $1 ORDER BY u.username ASC LIMIT 50 OFFSET 0")).
		WithArgs(false).
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users u")).WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	staff := false
	users, total, err := repo.List(context.Background(), models.UserFilter{IsStaff: &staff})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsFaculty)
	assert.Equal(t, "dept-cse", *users[0].DepartmentID)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsernameTaken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1) AND id <> $2)")).
		WithArgs("taken", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.UsernameTaken(context.Background(), "taken", "u1")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("INSERT INTO user_profiles .* ON CONFLICT \\(user_id\\) DO UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))

	dept := "dept-cse"
	require.NoError(t, repo.Upsert(context.Background(), &models.UserProfile{UserID: "u1", DepartmentID: &dept, IsFaculty: true}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
