package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type fakeExportSrv struct {
	req  dto.GenerateExportRequest
	path string
}

func (f *fakeExportSrv) Generate(_ context.Context, _ *models.Actor, req dto.GenerateExportRequest) (*dto.LogFileView, error) {
	f.req = req
	return &dto.LogFileView{LogFile: models.LogFile{ID: "log-1", Format: req.Format}, DownloadURL: "/api/v1/admin/logs/log-1/download?token=t"}, nil
}

func (f *fakeExportSrv) List(context.Context, *models.Actor) ([]dto.LogFileView, error) {
	return nil, nil
}

func (f *fakeExportSrv) Open(_ context.Context, id, token string) (*os.File, *models.LogFile, error) {
	if token != "t" {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, nil, err
	}
	return file, &models.LogFile{ID: id, Name: "audit_log_7d.csv", Format: "csv", FileSize: 9}, nil
}

type fakeScanSrv struct {
	req dto.ScanRequest
}

func (f *fakeScanSrv) Scan(_ context.Context, _ *models.Actor, req dto.ScanRequest, _ models.RequestMeta) (*dto.ScanReport, error) {
	f.req = req
	return &dto.ScanReport{FilesCreated: 2}, nil
}

func TestAdminHandlerGenerateExport(t *testing.T) {
	exports := &fakeExportSrv{}
	handler := NewAdminHandler(exports, &fakeScanSrv{})

	c, rec := newTestContext(http.MethodPost, "/admin/logs", strings.NewReader(`{"format":"pdf","days":7}`), adminActor)
	c.Request.Header.Set("Content-Type", "application/json")
	handler.GenerateExport(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 7, exports.req.Days)
	assert.Equal(t, "/api/v1/admin/logs/log-1/download?token=t", decodeEnvelope(t, rec).Data["download_url"])
}

func TestAdminHandlerDownloadExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("Timestamp"), 0o600))
	handler := NewAdminHandler(&fakeExportSrv{path: path}, &fakeScanSrv{})

	c, rec := newTestContext(http.MethodGet, "/admin/logs/log-1/download?token=x", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "log-1"}}
	handler.DownloadExport(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/admin/logs/log-1/download?token=t", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "log-1"}}
	handler.DownloadExport(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Timestamp", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "audit_log_7d.csv")
}

func TestAdminHandlerScanAcceptsEmptyBody(t *testing.T) {
	scans := &fakeScanSrv{}
	handler := NewAdminHandler(&fakeExportSrv{}, scans)

	c, rec := newTestContext(http.MethodPost, "/admin/scan", nil, adminActor)
	handler.Scan(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, scans.req.DryRun)

	c, rec = newTestContext(http.MethodPost, "/admin/scan", strings.NewReader(`{"dry_run":true,"year":2025}`), adminActor)
	c.Request.Header.Set("Content-Type", "application/json")
	handler.Scan(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, scans.req.DryRun)
	assert.Equal(t, 2025, scans.req.Year)
}
