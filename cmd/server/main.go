package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/ph0en1x29/FT-sub003/internal/config"
	"github.com/ph0en1x29/FT-sub003/internal/handler"
	"github.com/ph0en1x29/FT-sub003/internal/middleware"
	"github.com/ph0en1x29/FT-sub003/internal/model/entity"
	"github.com/ph0en1x29/FT-sub003/internal/repository"
	"github.com/ph0en1x29/FT-sub003/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 本地开发从.env读取环境变量
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting field service engine",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services, cfg)

	// 启动后台巡检
	if err := services.Sweep.Start(service.SweepIntervals{
		Escalation:      cfg.Sweep.EscalationInterval,
		AckExpire:       cfg.Sweep.AckExpireInterval,
		Acceptance:      cfg.Sweep.AcceptanceInterval,
		Export:          cfg.Sweep.ExportInterval,
		ExportBatchSize: cfg.Sweep.ExportBatchSize,
	}); err != nil {
		zapLogger.Fatal("Failed to start sweep scheduler", zap.Error(err))
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	if err := services.Sweep.Stop(); err != nil {
		zapLogger.Error("Sweep scheduler shutdown failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// 开发环境自动建表，生产以迁移脚本为准
	if os.Getenv("DB_AUTO_MIGRATE") == "true" {
		if err := db.AutoMigrate(
			&entity.User{},
			&entity.Customer{},
			&entity.Forklift{},
			&entity.HourmeterRecord{},
			&entity.HourmeterAmendment{},
			&entity.Job{},
			&entity.PartUsage{},
			&entity.Charge{},
			&entity.JobRequest{},
			&entity.JobAuditLog{},
			&entity.AutoCountExportRecord{},
		); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		if err := db.Exec("CREATE SEQUENCE IF NOT EXISTS job_code_seq").Error; err != nil {
			return nil, fmt.Errorf("create job code sequence: %w", err)
		}
	}

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 当前用户
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 用户管理
			users := authorized.Group("/users")
			{
				users.GET("", h.Auth.ListUsers)
				users.POST("", middleware.RequireRole(), h.Auth.CreateUser)
			}

			// 客户管理
			customers := authorized.Group("/customers")
			{
				customers.GET("", h.Customer.List)
				customers.POST("", middleware.RequireRole("supervisor"), h.Customer.Create)
				customers.GET("/:id", h.Customer.Get)
				customers.PUT("/:id", middleware.RequireRole("supervisor"), h.Customer.Update)
			}

			// 叉车管理
			forklifts := authorized.Group("/forklifts")
			{
				forklifts.GET("", h.Forklift.List)
				forklifts.POST("", middleware.RequireRole("supervisor"), h.Forklift.Create)
				forklifts.GET("/:id", h.Forklift.Get)
				forklifts.PUT("/:id", middleware.RequireRole("supervisor"), h.Forklift.Update)
				forklifts.GET("/:id/readings", h.Forklift.Readings)
				forklifts.GET("/:id/upgrade-advice", h.Forklift.UpgradeAdvice)
			}

			// 读数修正单
			amendments := authorized.Group("/hourmeter-amendments")
			{
				amendments.GET("/pending", middleware.RequireRole("supervisor"), h.Forklift.ListPendingAmendments)
				amendments.POST("/:id/resolve", middleware.RequireRole("supervisor"), h.Forklift.ResolveAmendment)
			}

			// 工单管理
			jobs := authorized.Group("/jobs")
			{
				jobs.GET("", h.Job.List)
				jobs.POST("", middleware.RequireRole("supervisor"), h.Job.Create)
				jobs.GET("/:id", h.Job.Get)
				jobs.DELETE("/:id", middleware.RequireRole("supervisor"), h.Job.Delete)
				jobs.GET("/:id/audit", h.Job.AuditTrail)
				jobs.GET("/:id/sla", h.Job.Sla)

				// 生命周期转换——动作级授权由引擎能力表裁决
				jobs.POST("/:id/assign", h.Job.Assign)
				jobs.POST("/:id/accept", h.Job.Accept)
				jobs.POST("/:id/reject", h.Job.Reject)
				jobs.POST("/:id/start", h.Job.Start)
				jobs.POST("/:id/hourmeter", h.Job.RecordHourmeter)
				jobs.POST("/:id/continue", h.Job.ContinueTomorrow)
				jobs.POST("/:id/resume", h.Job.Resume)
				jobs.POST("/:id/complete", h.Job.Complete)
				jobs.POST("/:id/defer-complete", h.Job.DeferComplete)
				jobs.POST("/:id/dispute", h.Job.Dispute)
				jobs.POST("/:id/resolve-dispute", h.Job.ResolveDispute)
				jobs.POST("/:id/confirm-parts", h.Job.ConfirmParts)
				jobs.POST("/:id/confirm-job", h.Job.ConfirmJob)
				jobs.POST("/:id/finalize", h.Job.Finalize)
				jobs.POST("/:id/cancel", h.Job.Cancel)
				jobs.POST("/:id/acknowledge", h.Job.Acknowledge)

				// 财务明细
				jobs.POST("/:id/parts", h.Job.AddPart)
				jobs.POST("/:id/charges", h.Job.AddCharge)

				// 现场请求
				jobs.GET("/:id/requests", h.Job.ListRequests)
				jobs.POST("/:id/requests", h.Job.CreateRequest)

				// 导出记录
				jobs.GET("/:id/exports", h.Export.ListByJob)
			}

			// 现场请求裁决
			requests := authorized.Group("/requests")
			{
				requests.GET("/pending", middleware.RequireRole("supervisor"), h.Job.ListPendingRequests)
				requests.POST("/:id/resolve", middleware.RequireRole("supervisor"), h.Job.ResolveRequest)
			}

			// 检查清单目录
			authorized.GET("/checklist-catalog", h.Job.ChecklistCatalog)

			// AutoCount导出
			exports := authorized.Group("/exports")
			exports.Use(middleware.RequireRole("accountant"))
			{
				exports.GET("", h.Export.List)
				exports.GET("/:id", h.Export.Get)
				exports.POST("/:id/push", h.Export.Push)
				exports.POST("/:id/retry", h.Export.Retry)
				exports.POST("/:id/cancel", h.Export.Cancel)
			}
		}
	}
}
