package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deptshare-api/internal/models"
)

func TestDashboardStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	rows := sqlmock.NewRows([]string{"users", "sessions", "departments", "folders", "files", "sharelinks", "notifications", "allowed_extensions", "storage_bytes"}).
		AddRow(4, 2, 3, 10, 25, 6, 1, 2, 1536)
	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COALESCE(SUM(file_size), 0) FROM file_items) AS storage_bytes")).WillReturnRows(rows)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, stats.Files)
	assert.Equal(t, int64(1536), stats.StorageBytes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardFilesByDepartment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDashboardRepository(db)

	rows := sqlmock.NewRows([]string{"label", "value"}).AddRow("Computer Science", 4).AddRow("Unknown", 1)
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(d.name, 'Unknown') AS label")).WillReturnRows(rows)

	points, err := repo.FilesByDepartment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ChartPoint{{Label: "Computer Science", Value: 4}, {Label: "Unknown", Value: 1}}, points)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileAuditRecentJoinsNames(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileAuditRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "action", "file_name", "ip_address", "timestamp"}).
		AddRow("a1", "faculty", "upload", "syllabus.pdf", "10.0.0.1", time.Now()).
		AddRow("a2", nil, "download", "syllabus.pdf", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY a.timestamp DESC LIMIT $1")).WithArgs(10).WillReturnRows(rows)

	entries, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Nil(t, entries[1].Username)
	assert.Equal(t, models.FileActionDownload, entries[1].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileAuditCreateDefaultsDetails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFileAuditRepository(db)

	mock.ExpectExec("INSERT INTO file_audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	entry := &models.FileAuditLog{Action: models.FileActionView}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.Equal(t, "{}", string(entry.Details))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadScopedToOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2")).
		WithArgs("n1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkRead(context.Background(), "n1", "u2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogFileDeactivateExpired(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLogFileRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE log_files SET is_active = FALSE WHERE is_active = TRUE AND expires_at IS NOT NULL AND expires_at <= $1 RETURNING file_path")).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("exports/audit-1.csv"))

	paths, err := repo.DeactivateExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/audit-1.csv"}, paths)
	assert.NoError(t, mock.ExpectationsWereMet())
}
