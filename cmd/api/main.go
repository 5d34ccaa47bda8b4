package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/uninet-dev/campus-hub-api/api/swagger"
	"github.com/uninet-dev/campus-hub-api/internal/handler"
	"github.com/uninet-dev/campus-hub-api/internal/middleware"
	"github.com/uninet-dev/campus-hub-api/internal/models"
	"github.com/uninet-dev/campus-hub-api/internal/repository"
	"github.com/uninet-dev/campus-hub-api/internal/service"
	"github.com/uninet-dev/campus-hub-api/pkg/cache"
	"github.com/uninet-dev/campus-hub-api/pkg/config"
	"github.com/uninet-dev/campus-hub-api/pkg/database"
	"github.com/uninet-dev/campus-hub-api/pkg/jobs"
	"github.com/uninet-dev/campus-hub-api/pkg/logger"
	corsmiddleware "github.com/uninet-dev/campus-hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uninet-dev/campus-hub-api/pkg/middleware/requestid"
	"github.com/uninet-dev/campus-hub-api/pkg/storage"
)

// @title Campus Hub API
// @version 1.0.0
// @description Study material requests, uploads and complaint moderation for the campus portal
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	files, err := storage.NewLocalStorage(cfg.Materials.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare materials storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Materials.SignedURLSecret, cfg.Materials.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	forumPostRepo := repository.NewForumPostRepository(db)

	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	requestSvc := service.NewRequestService(requestRepo, userRepo, cacheSvc, logr, cfg.Requests.SweepBatch)
	fulfillmentSvc := service.NewFulfillmentService(requestRepo, materialRepo, userRepo, cacheSvc, logr)
	materialSvc := service.NewMaterialService(materialRepo, files, signer, userRepo, cacheSvc, logr,
		cfg.Materials.MaxFileSizeBytes, cfg.Materials.AllowedMIMEs)
	complaintSvc := service.NewComplaintService(complaintRepo, userRepo, logr)
	moderationSvc := service.NewModerationService(complaintSvc, materialSvc, forumPostRepo, userRepo, userRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	requestHandler := handler.NewRequestHandler(requestSvc, fulfillmentSvc)
	materialHandler := handler.NewMaterialHandler(materialSvc)
	complaintHandler := handler.NewComplaintHandler(complaintSvc, moderationSvc)
	moderationHandler := handler.NewModerationHandler(moderationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweepQueue := jobs.NewQueue("request-expiry", func(ctx context.Context, job jobs.Job) error {
		_, err := requestSvc.ExpireSweep(ctx)
		return err
	}, jobs.QueueConfig{Workers: 1, BufferSize: 4, Logger: logr})
	sweepQueue.Start(ctx)
	defer sweepQueue.Stop()
	go func() {
		ticker := time.NewTicker(cfg.Requests.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if err := sweepQueue.Enqueue(jobs.Job{Type: "expire-due", Enqueued: now}); err != nil {
					logr.Warn("failed to enqueue expiry sweep", zap.Error(err))
				}
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	authed := auth.Group("", middleware.JWT(authSvc))
	authed.POST("/logout", authHandler.Logout)
	authed.POST("/change-password", authHandler.ChangePassword)
	authed.GET("/me", authHandler.Me)

	requests := api.Group("/requests")
	requests.GET("", requestHandler.List)
	requests.GET("/:id", requestHandler.Get)
	requestsAuthed := requests.Group("", middleware.JWT(authSvc))
	requestsAuthed.POST("", requestHandler.Create)
	requestsAuthed.PUT("/:id", requestHandler.Update)
	requestsAuthed.DELETE("/:id", requestHandler.Delete)
	requestsAuthed.PUT("/:id/fulfill", requestHandler.Fulfill)

	materials := api.Group("/materials")
	materials.GET("", materialHandler.List)
	materials.GET("/file", materialHandler.File)
	materials.GET("/:id", materialHandler.Get)
	materialsAuthed := materials.Group("", middleware.JWT(authSvc))
	materialsAuthed.POST("", materialHandler.Upload)
	materialsAuthed.POST("/:id/like", materialHandler.Like)
	materialsAuthed.POST("/:id/unlike", materialHandler.Unlike)
	materials.POST("/:id/download",
		middleware.OptionalJWT(authSvc),
		middleware.Audit(userRepo, models.AuditActionMaterialDownload, "material"),
		materialHandler.Download)
	materialsAuthed.DELETE("/:id", materialHandler.Delete)

	complaints := api.Group("/complaints", middleware.JWT(authSvc))
	complaints.POST("", complaintHandler.Create)
	moderatorOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	complaints.GET("", moderatorOnly, complaintHandler.List)
	if cfg.Exports.Enabled {
		complaints.GET("/export", moderatorOnly, complaintHandler.Export)
	}
	complaints.GET("/:id", moderatorOnly, complaintHandler.Get)
	complaints.GET("/:id/detail", moderatorOnly, complaintHandler.Detail)
	complaints.PUT("/:id", moderatorOnly, complaintHandler.Resolve)

	moderation := api.Group("", middleware.JWT(authSvc), moderatorOnly)
	moderation.DELETE("/forum-posts/:id", moderationHandler.DeleteForumPost)
	moderation.POST("/users/:id/ban", moderationHandler.BanUser)
	moderation.GET("/metrics/summary", metricsHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
