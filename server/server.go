package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schooltone/config"
	"schooltone/core/access"
	"schooltone/core/approval"
	"schooltone/core/auth"
	"schooltone/core/ingest"
	"schooltone/core/registry"
	"schooltone/core/release"
	"schooltone/db"
	"schooltone/logger"
	"schooltone/repository"
	"schooltone/storage"

	"github.com/gorilla/mux"
)

// Start initializes all dependencies and runs the HTTP server until
// interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	loc, err := time.LoadLocation(cfg.ReleaseTimezone)
	if err != nil {
		logger.Fatal("无法加载发布时区",
			logger.String("timezone", cfg.ReleaseTimezone),
			logger.ErrorField(err))
	}

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("初始化MinIO失败", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("连接数据库失败", logger.ErrorField(err))
	}
	defer db.CloseDB()

	if err := db.MigrateModels(); err != nil {
		logger.Fatal("数据库迁移失败", logger.ErrorField(err))
	}

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("连接Redis失败", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	// 组装各组件
	gateway := storage.NewMinioGateway(storage.GetMinioClient(), cfg.MinioBucket)
	eventRepo := repository.NewMySQLEventRepository(db.DB)
	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	releaseRepo := repository.NewMySQLReleaseRepository(db.DB)
	sessionRepo := repository.NewRedisUploadSessionRepository(db.RedisClient)

	reg := registry.NewService(trackRepo, eventRepo)
	approvals := approval.NewEngine(reg)
	releases := release.NewPipeline(releaseRepo, eventRepo, loc)
	resolver := access.NewResolver(eventRepo, reg, releases, gateway, loc)
	ingestCtrl := ingest.NewController(gateway, sessionRepo, reg, releases)

	apiHandler := NewAPIHandler(eventRepo, reg, approvals, releases, resolver, ingestCtrl, cfg)

	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 上传相关端点
	router.HandleFunc("/api/uploads",
		apiHandler.RequireRole(apiHandler.BeginUploadHandler, auth.RoleAdmin)).Methods(http.MethodPost)
	router.HandleFunc("/api/uploads/{upload_id}/complete",
		apiHandler.RequireRole(apiHandler.CompleteUploadHandler, auth.RoleAdmin)).Methods(http.MethodPost)
	router.HandleFunc("/api/uploads/{upload_id}/abort",
		apiHandler.RequireRole(apiHandler.AbortUploadHandler, auth.RoleAdmin)).Methods(http.MethodPost)

	// 审批相关端点
	router.HandleFunc("/api/admin/events/{event_id}/approvals",
		apiHandler.RequireRole(apiHandler.ApplyApprovalsHandler, auth.RoleAdmin)).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/events/{event_id}/tracks",
		apiHandler.RequireRole(apiHandler.EventOverviewHandler, auth.RoleAdmin)).Methods(http.MethodGet)

	// 校歌发布流程端点
	router.HandleFunc("/api/admin/events/{event_id}/schoolsong",
		apiHandler.RequireRole(apiHandler.SchoolsongStatusHandler, auth.RoleAdmin, auth.RoleTeacher)).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/events/{event_id}/schoolsong/teacher-approval",
		apiHandler.RequireRole(apiHandler.TeacherApproveHandler, auth.RoleTeacher)).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/events/{event_id}/schoolsong/approval",
		apiHandler.RequireRole(apiHandler.AdminApproveHandler, auth.RoleAdmin)).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/events/{event_id}/schoolsong/rejection",
		apiHandler.RequireRole(apiHandler.AdminRejectHandler, auth.RoleAdmin)).Methods(http.MethodPost)

	// 家长访问端点
	router.HandleFunc("/api/events/{event_id}/classes/{class_id}/audio",
		apiHandler.AuthMiddleware(apiHandler.ClassAudioHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/events/{event_id}/schoolsong/audio",
		apiHandler.AuthMiddleware(apiHandler.SchoolsongAudioHandler)).Methods(http.MethodGet)

	// 预定系统回调端点
	router.HandleFunc("/api/internal/events",
		apiHandler.RequireRole(apiHandler.CreateEventHandler, auth.RoleAdmin)).Methods(http.MethodPost)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("服务器启动", logger.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("服务器强制关闭", logger.ErrorField(err))
	}

	logger.Info("服务器已停止")
}
