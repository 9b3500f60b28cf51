package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/deptshare-api/api/swagger"
	"github.com/noah-isme/deptshare-api/internal/handler"
	"github.com/noah-isme/deptshare-api/internal/repository"
	"github.com/noah-isme/deptshare-api/internal/router"
	"github.com/noah-isme/deptshare-api/internal/service"
	"github.com/noah-isme/deptshare-api/pkg/cache"
	"github.com/noah-isme/deptshare-api/pkg/config"
	"github.com/noah-isme/deptshare-api/pkg/database"
	"github.com/noah-isme/deptshare-api/pkg/jobs"
	"github.com/noah-isme/deptshare-api/pkg/logger"
	"github.com/noah-isme/deptshare-api/pkg/mail"
	"github.com/noah-isme/deptshare-api/pkg/storage"
)

// @title Departmental File Portal API
// @version 1.0.0
// @description Academic sessions, departments, folders, files, share links and audit exports.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	if cfg.Migrations.RunOnBoot {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			logr.Sugar().Fatalw("migrations failed", "error", err)
		}
	}

	metrics := service.NewMetricsService()

	readiness := []handler.ReadinessCheck{
		{Name: "database", Probe: db.PingContext},
		{Name: "storage", Probe: func(context.Context) error {
			_, err := os.Stat(cfg.Storage.Dir)
			return err
		}},
	}

	var cacheRepo service.CacheRepository
	cacheEnabled := cfg.Cache.Enabled
	if cacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, logr)
			readiness = append(readiness, handler.ReadinessCheck{Name: "cache", Probe: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}})
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TreeTTL, logr, cacheEnabled)

	blobs, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		logr.Sugar().Fatalw("storage init failed", "dir", cfg.Storage.Dir, "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	users := repository.NewUserRepository(db)
	profiles := repository.NewProfileRepository(db)
	sessions := repository.NewSessionRepository(db)
	departments := repository.NewDepartmentRepository(db)
	categories := repository.NewCategoryRepository(db)
	extensions := repository.NewExtensionRepository(db)
	folders := repository.NewFolderRepository(db)
	files := repository.NewFileRepository(db)
	shareLinks := repository.NewShareLinkRepository(db)
	fileAudits := repository.NewFileAuditRepository(db)
	logFiles := repository.NewLogFileRepository(db)
	notifications := repository.NewNotificationRepository(db)
	dashboards := repository.NewDashboardRepository(db)

	queue := jobs.NewQueue("mail", jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: cfg.Mail.RetryDelay,
		Logger:     logr,
	})
	service.NewMailWorker(mail.NewSender(cfg.Mail, logr), users, metrics, logr).Register(queue)
	queue.Start(ctx)
	defer queue.Stop()

	validate := validator.New()
	audit := service.NewFileAuditRecorder(fileAudits, logr)

	authSvc := service.NewAuthService(users, profiles, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	sessionSvc := service.NewSessionService(sessions, departments, profiles, users, cacheSvc, validate, logr)
	departmentSvc := service.NewDepartmentService(departments, sessions, users, cacheSvc, validate, logr)
	categorySvc := service.NewCategoryService(categories, validate)
	extensionSvc := service.NewExtensionService(extensions, users, metrics, logr, cfg.Cache.ExtensionLRUSize, cfg.Cache.ExtensionCacheTTL)
	profileSvc := service.NewProfileService(profiles, users, departments, validate, logr)
	userSvc := service.NewUserService(users, profiles, departments, validate, logr)
	notificationSvc := service.NewNotificationService(notifications, users, queue, metrics, logr)

	contentSvc := service.NewContentService(folders, files, sessions, departments, sessionSvc, extensionSvc, blobs, signer,
		audit, cacheSvc, metrics, validate, logr, service.ContentOptions{
			MaxFileSize: cfg.Storage.MaxFileSizeBytes,
			APIPrefix:   cfg.APIPrefix,
		})
	visibilitySvc := service.NewVisibilityService(folders, files, cacheSvc, metrics, logr)
	recycleSvc := service.NewRecycleService(folders, files, shareLinks, blobs, audit, users, cacheSvc, metrics, logr)
	shareSvc := service.NewShareService(shareLinks, folders, files, sessions, departments, blobs, signer, notificationSvc,
		audit, metrics, validate, logr, service.ShareOptions{
			BaseURL:       cfg.Share.BaseURL,
			DefaultExpiry: cfg.Share.DefaultExpiry,
		})
	browseSvc := service.NewBrowseService(folders, files, sessions, departments, cacheSvc, cfg.Cache.TreeTTL, cfg.APIPrefix, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Repo:   dashboards,
		Audits: fileAudits,
		Cache:  cacheSvc,
		Logger: logr,
		Config: service.DashboardServiceConfig{CacheTTL: cfg.Cache.StatsTTL},
	})
	exportSvc := service.NewExportService(fileAudits, logFiles, blobs, signer, service.ExportConfig{
		APIPrefix:   cfg.APIPrefix,
		ResultTTL:   cfg.Exports.RetentionPeriod,
		DefaultDays: cfg.Exports.DefaultDays,
	}, logr, nil, nil)
	scanSvc := service.NewScanService(blobs, sessions, departments, folders, files, users, cacheSvc, logr)

	engine := router.New(router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Content:   handler.NewContentHandler(contentSvc, visibilitySvc),
		Recycle:   handler.NewRecycleHandler(recycleSvc),
		Share:     handler.NewShareHandler(shareSvc),
		Catalogue: handler.NewCatalogueHandler(sessionSvc, departmentSvc, categorySvc, extensionSvc, browseSvc),
		Account:   handler.NewAccountHandler(profileSvc, notificationSvc),
		Users:     handler.NewUserHandler(userSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Admin:     handler.NewAdminHandler(exportSvc, scanSvc),
		Metrics:   handler.NewMetricsHandler(metrics, readiness...),
	}, router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		EnableMetrics:  cfg.Metrics.Enabled,
		Logger:         logr,
		Auth:           authSvc,
		Profiles:       profiles,
		Audit:          users,
		Observer:       metrics,
	})

	go runExportCleanup(ctx, exportSvc, cfg.Exports, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, cfg config.ExportsConfig, logr *zap.Logger) {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(ctx, cfg.RetentionPeriod)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logr.Info("expired exports removed", zap.Int("count", removed))
			}
		}
	}
}
