package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/deptshare-api/internal/handler"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(Handlers{
		Auth:      handler.NewAuthHandler(nil),
		Content:   handler.NewContentHandler(nil, nil),
		Recycle:   handler.NewRecycleHandler(nil),
		Share:     handler.NewShareHandler(nil),
		Catalogue: handler.NewCatalogueHandler(nil, nil, nil, nil, nil),
		Account:   handler.NewAccountHandler(nil, nil),
		Users:     handler.NewUserHandler(nil),
		Dashboard: handler.NewDashboardHandler(nil),
		Admin:     handler.NewAdminHandler(nil, nil),
		Metrics:   handler.NewMetricsHandler(nil),
	}, Options{
		APIPrefix: "/api/v1",
		Auth: tokenStub{
			"faculty": {UserID: "u-1", Username: "faculty"},
			"staff":   {UserID: "u-2", Username: "staff", IsStaff: true},
		},
	})
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealth(t *testing.T) {
	rec := serve(newTestRouter(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouterProtectsAuthenticatedRoutes(t *testing.T) {
	r := newTestRouter()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/folders"},
		{http.MethodPost, "/api/v1/files"},
		{http.MethodDelete, "/api/v1/files/f-1"},
		{http.MethodGet, "/api/v1/recycle-bin"},
		{http.MethodPost, "/api/v1/shares"},
		{http.MethodGet, "/api/v1/notifications"},
	} {
		rec := serve(r, tc.method, tc.path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
		rec = serve(r, tc.method, tc.path, "forged")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
	}
}

func TestRouterRequiresStaffForAdministration(t *testing.T) {
	r := newTestRouter()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/sessions"},
		{http.MethodPost, "/api/v1/extensions"},
		{http.MethodGet, "/api/v1/admin/dashboard"},
		{http.MethodGet, "/api/v1/admin/users"},
		{http.MethodPost, "/api/v1/admin/scan"},
	} {
		rec := serve(r, tc.method, tc.path, "faculty")
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.path)
	}
}

func TestRouterPublicRoutesValidateBeforeServices(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/files/search", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/files/f-1/download", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/share/tok/download", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/admin/logs/log-1/download", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/nope", "").Code)
}
