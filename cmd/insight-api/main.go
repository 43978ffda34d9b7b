package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tc-insight-api/internal/handler"
	"github.com/noah-isme/tc-insight-api/internal/middleware"
	"github.com/noah-isme/tc-insight-api/internal/models"
	"github.com/noah-isme/tc-insight-api/internal/repository"
	"github.com/noah-isme/tc-insight-api/internal/service"
	"github.com/noah-isme/tc-insight-api/pkg/cache"
	"github.com/noah-isme/tc-insight-api/pkg/config"
	"github.com/noah-isme/tc-insight-api/pkg/database"
	"github.com/noah-isme/tc-insight-api/pkg/jobs"
	"github.com/noah-isme/tc-insight-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tc-insight-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tc-insight-api/pkg/middleware/requestid"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Engine.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Engine.CacheTTL, logr, cfg.Engine.CacheEnabled)

	attendanceRepo := repository.NewAttendanceRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	entityRepo := repository.NewEntityRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	insightSvc := service.NewInsightService(service.InsightServiceParams{
		Attendance:  attendanceRepo,
		Assignments: assignmentRepo,
		Entities:    entityRepo,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Logger:      logr,
		CacheTTL:    cfg.Engine.CacheTTL,
	})
	bridgeSvc := service.NewBridgeService(service.BridgeServiceParams{
		Insights:      insightSvc,
		Tasks:         taskRepo,
		Notifications: notificationRepo,
		Entities:      entityRepo,
		Assignments:   assignmentRepo,
		Metrics:       metricsSvc,
		Logger:        logr,
		Cooldown:      cfg.Bridge.NotificationCooldown,
		MasterID:      cfg.Bridge.MasterRecipientID,
		DueDays:       cfg.Bridge.TaskDueDays,
		ConflictDays:  cfg.Bridge.ConflictTaskDueDays,
	})
	taskSvc := service.NewTaskService(taskRepo, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	exportSvc := service.NewExportService(insightSvc, logr, cfg.Exports.Enabled)

	defaults := engineThresholds(cfg.Engine)

	insightHandler := handler.NewInsightHandler(insightSvc, defaults)
	bridgeHandler := handler.NewBridgeHandler(bridgeSvc, defaults)
	taskHandler := handler.NewTaskHandler(taskSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	exportHandler := handler.NewExportHandler(exportSvc, defaults)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/insights", insightHandler.Insights)
		api.POST("/insights/bridge", bridgeHandler.Run)
		api.GET("/insights/export", exportHandler.Export)
		api.GET("/students/:id/score", insightHandler.StudentScore)
		api.GET("/entities/:kind/:id/timeline", insightHandler.Timeline)
		api.GET("/entities/:kind/:id/calendar", insightHandler.Calendar)

		api.GET("/tasks", taskHandler.List)
		api.GET("/tasks/:id", taskHandler.Get)
		api.PATCH("/tasks/:id/status", taskHandler.UpdateStatus)

		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
		api.POST("/notifications/read-all", notificationHandler.MarkAllRead)

		api.GET("/system/metrics", metricsHandler.System)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var bridgeRunner *jobs.Runner
	if cfg.Scheduler.Enabled {
		bridgeRunner = jobs.NewRunner("bridge", func(ctx context.Context) error {
			today := time.Now().UTC()
			window := models.Window{
				From: today.AddDate(0, 0, -cfg.Engine.LookbackDays),
				To:   today,
			}
			_, err := bridgeSvc.RunBridge(ctx, window, models.Scope{}, today, defaults)
			return err
		}, jobs.RunnerConfig{Interval: cfg.Scheduler.Interval, Logger: logr})
		bridgeRunner.Start(ctx)
		defer bridgeRunner.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}

// engineThresholds maps the engine configuration onto the threshold set the
// detectors consume.
func engineThresholds(cfg config.EngineConfig) models.Thresholds {
	return models.Thresholds{
		DaysThreshold:       cfg.DaysThreshold,
		MonthsThreshold:     cfg.MonthsThreshold,
		CompletionThreshold: cfg.CompletionThreshold,
		AttendanceRateFloor: cfg.AttendanceRateFloor,
		IrregularityCutoff:  cfg.IrregularityCutoff,
		DelaySlackFraction:  cfg.DelaySlackFraction,
		WeeklyHoursCap:      cfg.WeeklyHoursCap,
		MarginFloor:         cfg.MarginFloor,
		RevenuePerStudent:   cfg.RevenuePerStudent,
		DensityClampHours:   cfg.DensityClampHours,
		Weights: models.ScoreWeights{
			Consistency: cfg.WeightConsistency,
			Efficiency:  cfg.WeightEfficiency,
			Progress:    cfg.WeightProgress,
		},
	}
}
