package router

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/handler"
	"github.com/noah-isme/deptshare-api/internal/middleware"
	"github.com/noah-isme/deptshare-api/internal/models"
	"github.com/noah-isme/deptshare-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/deptshare-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/deptshare-api/pkg/middleware/requestid"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

type profileLookup interface {
	FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type requestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Auth      *handler.AuthHandler
	Content   *handler.ContentHandler
	Recycle   *handler.RecycleHandler
	Share     *handler.ShareHandler
	Catalogue *handler.CatalogueHandler
	Account   *handler.AccountHandler
	Users     *handler.UserHandler
	Dashboard *handler.DashboardHandler
	Admin     *handler.AdminHandler
	Metrics   *handler.MetricsHandler
}

// Options configures cross-cutting middleware.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	EnableMetrics  bool
	Logger         *zap.Logger
	Auth           tokenValidator
	Profiles       profileLookup
	Audit          auditWriter
	Observer       requestObserver
}

// New builds the gin engine with the portal's middleware chain and routes.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	prefix := strings.TrimRight(opts.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	if opts.Observer != nil {
		r.Use(middleware.Metrics(opts.Observer))
	}
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.OptionalJWT(opts.Auth))
	r.Use(middleware.LoadActor(opts.Profiles, opts.Logger))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if opts.EnableMetrics {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)
	requireAuth := middleware.JWT(opts.Auth)
	staff := middleware.RequireStaff()
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(opts.Audit, opts.Logger, action, resource)
	}

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", requireAuth, h.Auth.Logout)
	auth.POST("/change-password", requireAuth, h.Auth.ChangePassword)
	auth.GET("/me", requireAuth, h.Auth.Me)

	// Anonymous access is decided per item by the services.
	api.GET("/browse", h.Catalogue.PublicTree)
	api.GET("/browse/session", h.Catalogue.SessionBrowse)
	api.GET("/sessions", h.Catalogue.ListSessions)
	api.GET("/sessions/active", h.Catalogue.ActiveSession)
	api.GET("/sessions/:id", h.Catalogue.GetSession)
	api.GET("/departments", h.Catalogue.ListDepartments)
	api.GET("/departments/:id", h.Catalogue.GetDepartment)
	api.GET("/categories", h.Catalogue.ListCategories)
	api.GET("/extensions", h.Catalogue.ListExtensions)
	api.GET("/folders/:id", h.Content.FolderContents)
	api.GET("/files/search", h.Content.Search)
	api.GET("/files/:id", h.Content.GetFile)
	api.GET("/files/:id/download", h.Content.Download)
	api.GET("/share/:token", h.Share.Resolve)
	api.POST("/share/:token", h.Share.Unlock)
	api.GET("/share/:token/download", h.Share.Download)

	authed := api.Group("", requireAuth)
	authed.POST("/folders", h.Content.CreateFolder)
	authed.GET("/folders", h.Content.ListFolders)
	authed.PATCH("/folders/:id", h.Content.UpdateFolder)
	authed.DELETE("/folders/:id", h.Recycle.DeleteFolder)
	authed.POST("/folders/:id/visibility", h.Content.SetFolderVisibility)
	authed.GET("/files", h.Content.ListFiles)
	authed.POST("/files", h.Content.Upload)
	authed.PATCH("/files/:id", h.Content.UpdateFile)
	authed.DELETE("/files/:id", h.Recycle.DeleteFile)
	authed.POST("/files/:id/visibility", h.Content.SetFileVisibility)

	authed.GET("/recycle-bin", h.Recycle.List)
	authed.POST("/recycle-bin/folders/:id/restore", h.Recycle.RestoreFolder)
	authed.POST("/recycle-bin/files/:id/restore", h.Recycle.RestoreFile)
	authed.DELETE("/recycle-bin/folders/:id", h.Recycle.PurgeFolder)
	authed.DELETE("/recycle-bin/files/:id", h.Recycle.PurgeFile)

	authed.POST("/shares", h.Share.Create)
	authed.GET("/shares", h.Share.List)
	authed.DELETE("/shares/:id", h.Share.Deactivate)

	authed.GET("/profile", h.Account.Profile)
	authed.PATCH("/profile", h.Account.UpdateProfile)
	authed.PATCH("/profile/account", h.Account.UpdateAccount)
	authed.GET("/notifications", h.Account.Notifications)
	authed.POST("/notifications/:id/read", h.Account.MarkNotificationRead)

	managed := authed.Group("", staff)
	managed.POST("/sessions", audit(models.AuditActionSessionCreate, "academic_session"), h.Catalogue.CreateSession)
	managed.PUT("/sessions/:id", audit(models.AuditActionSessionUpdate, "academic_session"), h.Catalogue.UpdateSession)
	managed.POST("/sessions/:id/activate", h.Catalogue.ActivateSession)
	managed.POST("/sessions/:id/deactivate", h.Catalogue.DeactivateSession)
	managed.POST("/departments", audit(models.AuditActionDepartmentCreate, "department"), h.Catalogue.CreateDepartment)
	managed.PATCH("/departments/:id", h.Catalogue.UpdateDepartment)
	managed.POST("/categories", audit(models.AuditActionCategoryCreate, "file_category"), h.Catalogue.CreateCategory)
	managed.POST("/extensions", h.Catalogue.AddExtension)
	managed.DELETE("/extensions/:name", h.Catalogue.RemoveExtension)

	admin := managed.Group("/admin")
	admin.GET("/dashboard", h.Dashboard.Stats)
	admin.GET("/dashboard/charts", h.Dashboard.Charts)
	admin.GET("/dashboard/activity", h.Dashboard.Activity)
	admin.GET("/users", h.Users.List)
	admin.PATCH("/users/:id", h.Users.Update)
	admin.POST("/logs", audit(models.AuditActionLogExport, "log_file"), h.Admin.GenerateExport)
	admin.GET("/logs", h.Admin.ListExports)
	admin.POST("/scan", h.Admin.Scan)

	// Export downloads authenticate through the signed token so links work from a browser.
	api.GET("/admin/logs/:id/download", h.Admin.DownloadExport)

	return r
}
