package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deptshare-api/internal/models"
)

var shareRowColumns = []string{"id", "token", "file_item_id", "folder_id", "share_type", "created_by", "created_at", "expires_at", "email", "password_hash", "max_downloads", "download_count", "is_active"}

func TestShareLinkFindByTokenMapsTarget(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareLinkRepository(db)

	rows := sqlmock.NewRows(shareRowColumns).
		AddRow("l1", "tok", nil, "folder-1", "public", "u1", time.Now(), nil, nil, nil, 5, 0, true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM share_links WHERE token = $1")).WithArgs("tok").WillReturnRows(rows)

	link, err := repo.FindByToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, models.FolderTarget("folder-1"), link.Target)
	assert.Equal(t, 5, *link.MaxDownloads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareLinkRejectsAmbiguousRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareLinkRepository(db)

	rows := sqlmock.NewRows(shareRowColumns).
		AddRow("l1", "tok", "file-1", "folder-1", "public", "u1", time.Now(), nil, nil, nil, nil, 0, true)
	mock.ExpectQuery("FROM share_links WHERE id").WithArgs("l1").WillReturnRows(rows)

	_, err := repo.FindByID(context.Background(), "l1")
	assert.ErrorIs(t, err, models.ErrInvalidShareTarget)
}

func TestShareLinkCreateValidatesTarget(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareLinkRepository(db)

	err := repo.Create(context.Background(), &models.ShareLink{Token: "tok", ShareType: models.ShareTypePublic})
	assert.ErrorIs(t, err, models.ErrInvalidShareTarget)

	mock.ExpectExec("INSERT INTO share_links").WillReturnResult(sqlmock.NewResult(1, 1))
	link := &models.ShareLink{Token: "tok", Target: models.FileTarget("file-1"), ShareType: models.ShareTypePublic, CreatedBy: "u1", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), link))
	assert.NotEmpty(t, link.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareLinkDeactivateForTarget(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareLinkRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE share_links SET is_active = FALSE WHERE folder_id = $1 AND is_active = TRUE")).
		WithArgs("folder-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE share_links SET is_active = FALSE WHERE file_item_id = $1 AND is_active = TRUE")).
		WithArgs("file-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.DeactivateForTarget(context.Background(), models.FolderTarget("folder-1"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = repo.DeactivateForTarget(context.Background(), models.FileTarget("file-1"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareLinkRepositoryIncrementDownloadsRespectsCeiling(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareLinkRepository(db)

	mock.ExpectQuery("UPDATE share_links SET download_count = download_count \\+ 1").
		WithArgs("link-1").
		WillReturnRows(sqlmock.NewRows([]string{"download_count"}).AddRow(1))
	count, err := repo.IncrementDownloads(context.Background(), "link-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	mock.ExpectQuery("UPDATE share_links SET download_count = download_count \\+ 1").
		WithArgs("link-1").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.IncrementDownloads(context.Background(), "link-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
