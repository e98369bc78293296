package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stage-planner/config"
	"stage-planner/internal/api/handler"
	"stage-planner/internal/api/middleware"
	"stage-planner/internal/api/router"
	"stage-planner/internal/realtime"
	"stage-planner/internal/repository"
	"stage-planner/internal/service"
	"stage-planner/pkg/database"
	"stage-planner/pkg/jwt"
	applogger "stage-planner/pkg/logger"
	"stage-planner/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("realtime_driver", cfg.Realtime.Driver),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与草稿持久化将不可用", zap.Error(err))
		rdb = nil
	}

	// 4.1 依赖 Redis 的组件；接口变量保持 nil 而非持有 nil 指针
	var (
		blacklist service.TokenBlacklist
		checker   middleware.TokenChecker
		drafts    repository.SelectionDraftStore
		hub       realtime.Hub
	)
	if rdb != nil {
		blacklist = rdb
		checker = rdb
		drafts = repository.NewRedisDraftStore(rdb, cfg.Workflow.SelectionDraftTTL)
	}
	switch {
	case cfg.Realtime.Driver == "redis" && rdb != nil:
		hub = realtime.NewRedisHub(rdb, logger)
	case cfg.Realtime.Driver == "redis":
		logger.Warn("realtime.driver=redis 但 Redis 不可用，回退到进程内推送")
		hub = realtime.NewMemoryHub(logger)
	default:
		hub = realtime.NewMemoryHub(logger)
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db, drafts)
	svc := service.NewService(cfg, repo, jwtMgr, blacklist, hub, logger)
	h := handler.NewHandler(cfg, svc)

	// 7. 初始化路由
	engine := router.Setup(router.Deps{
		Config:   cfg,
		Handler:  h,
		JWT:      jwtMgr,
		Checker:  checker,
		Profiles: svc.Profile,
		DB:       db,
		Logger:   logger,
	})

	// 8. 启动 HTTP 服务器（优雅关闭）
	// WriteTimeout 为 0：通知 SSE 为长连接
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	// 先关闭推送，结束仍在进行的 SSE 连接
	if err := hub.Close(); err != nil {
		logger.Warn("关闭推送 Hub 异常", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接异常", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
