package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/storage"
)

type scanFixture struct {
	svc      *ScanService
	store    *memStore
	sessions *sessionRepoStub
	depts    *departmentRepoStub
	audit    *auditLoggerStub
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	for rel, body := range map[string]string{
		"2025_Spring/CSE/NOTES/UNIT1/week1.pdf": "%PDF-1.4\n%test\n",
		"2025_Spring/CSE/readme.txt":            "hello department",
		"2025_Spring/CSE/already.pdf":           "%PDF-1.4\n",
		"2023_Summer/me/lab/sheet.txt":          "lab sheet",
		"stray.txt":                             "no layout",
		"misc/CSE/file.txt":                     "bad session dir",
		"exports/audit_log.csv":                 "a,b",
	} {
		_, err := blobs.Save(rel, []byte(body))
		require.NoError(t, err)
	}

	m := newMemStore()
	m.addFolder("notes", nil, "f", false)
	m.addFile("already", nil, "f", false)
	sessions := newSessionRepoStub(&models.AcademicSession{ID: "s1", Name: "Spring", Year: 2025, IsActive: true})
	depts := &departmentRepoStub{depts: map[string]*models.Department{"d1": {ID: "d1", Name: "Computer Science", Code: "CSE", IsActive: true}}}
	audit := &auditLoggerStub{}
	return &scanFixture{
		svc:      NewScanService(blobs, sessions, depts, memFolders{m}, memFiles{m}, audit, nil, nil),
		store:    m,
		sessions: sessions,
		depts:    depts,
		audit:    audit,
	}
}

func TestScanImportsManualContent(t *testing.T) {
	fx := newScanFixture(t)

	report, err := fx.svc.Scan(context.Background(), staffActor, dto.ScanRequest{}, models.RequestMeta{IP: "10.0.0.9"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SessionsCreated)
	assert.Equal(t, 1, report.DepartmentsCreated)
	assert.Equal(t, 2, report.FoldersCreated)
	assert.Equal(t, 3, report.FilesCreated)
	assert.Len(t, report.Skipped, 3)

	var week1 *models.FileItem
	for _, f := range fx.store.files {
		if f.BlobRef == "2025_Spring/CSE/NOTES/UNIT1/week1.pdf" {
			week1 = f
		}
	}
	require.NotNil(t, week1)
	assert.True(t, week1.IsManual)
	assert.False(t, week1.IsPublic)
	assert.Equal(t, "application/pdf", week1.MimeType)
	require.NotNil(t, week1.FolderID)
	unit1 := fx.store.folders[*week1.FolderID]
	assert.Equal(t, "UNIT1", unit1.Name)
	assert.True(t, unit1.IsManual)
	require.NotNil(t, unit1.ParentID)
	assert.Equal(t, "notes", *unit1.ParentID)

	summer, err := fx.sessions.FindByYearAndName(context.Background(), 2023, "Summer")
	require.NoError(t, err)
	assert.False(t, summer.IsActive)
	me, err := fx.depts.FindByCode(context.Background(), "ME")
	require.NoError(t, err)
	assert.Equal(t, "Mechanical Engineering", me.Name)

	for _, f := range fx.store.files {
		if f.Name == "readme.txt" {
			assert.Nil(t, f.FolderID)
			assert.True(t, strings.HasPrefix(f.MimeType, "text/plain"))
		}
	}

	require.Len(t, fx.audit.logs, 1)
	assert.Equal(t, models.AuditActionManualScan, fx.audit.logs[0].Action)
	assert.Equal(t, "10.0.0.9", fx.audit.logs[0].IPAddress)

	again, err := fx.svc.Scan(context.Background(), staffActor, dto.ScanRequest{}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Zero(t, again.FilesCreated)
	assert.Zero(t, again.FoldersCreated)
	assert.Len(t, again.Skipped, 6)
}

func TestScanDryRunWritesNothing(t *testing.T) {
	fx := newScanFixture(t)
	files, folders := len(fx.store.files), len(fx.store.folders)

	report, err := fx.svc.Scan(context.Background(), staffActor, dto.ScanRequest{DryRun: true}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.FilesCreated)
	assert.Equal(t, 2, report.FoldersCreated)
	assert.Equal(t, 1, report.SessionsCreated)
	assert.Len(t, fx.store.files, files)
	assert.Len(t, fx.store.folders, folders)
	assert.Len(t, fx.sessions.sessions, 1)
	assert.Len(t, fx.depts.depts, 1)
}

func TestScanYearFilterAndAccess(t *testing.T) {
	fx := newScanFixture(t)

	report, err := fx.svc.Scan(context.Background(), staffActor, dto.ScanRequest{Year: 2023}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesCreated)
	assert.Equal(t, 1, report.DepartmentsCreated)
	assert.Equal(t, 1, report.FoldersCreated)

	_, err = fx.svc.Scan(context.Background(), facultyActor, dto.ScanRequest{}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestParseSessionDir(t *testing.T) {
	year, name, ok := parseSessionDir("2024_2024-25")
	require.True(t, ok)
	assert.Equal(t, 2024, year)
	assert.Equal(t, "2024-25", name)

	for _, dir := range []string{"Spring", "abcd_Spring", "2025_", "12_Old"} {
		_, _, ok := parseSessionDir(dir)
		assert.False(t, ok, dir)
	}
}
