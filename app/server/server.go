package server

import (
	"bili-downloader/app/config"
	"bili-downloader/app/database"
	"bili-downloader/app/handler"
	"bili-downloader/app/logger"
	"bili-downloader/app/middleware"
	"bili-downloader/app/service"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config       *config.Config
	Logger       *logger.Logger
	gin          *gin.Engine
	http         *http.Server
	db           *gorm.DB
	settings     *service.SettingsService
	queue        *service.DownloadQueueService
	resolve      *service.ResolveService
	loginMonitor *service.LoginMonitor
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Server, error) {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(log))

	settings := service.NewSettingsService(db, log)
	queue := service.NewDownloadQueueService(db, log)
	resolve, err := service.NewResolveService(cfg, settings, queue, log)
	if err != nil {
		return nil, err
	}

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config:       cfg,
		Logger:       log,
		db:           db,
		settings:     settings,
		queue:        queue,
		resolve:      resolve,
		loginMonitor: service.NewLoginMonitor(resolve, settings, cfg.Bilibili.LoginCheckSpec, log),
	}

	// 设置路由
	s.setupRoutes()

	return s, nil
}

// Handler 返回路由，便于测试
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	// 启动登录状态巡检
	if err := s.loginMonitor.Start(); err != nil {
		s.Logger.Errorf("启动登录状态巡检失败: %v", err)
	}

	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	s.loginMonitor.Stop()

	if err := s.resolve.Close(); err != nil {
		s.Logger.Errorf("关闭上游连接失败: %v", err)
	}

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return err
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	authHandler := handler.NewAuthHandler(s.Config, s.db)
	videoHandler := handler.NewVideoHandler(s.resolve, s.Logger)
	s.settings.OnCredentialChange(videoHandler.ForgetCredential)
	taskHandler := handler.NewTaskHandler(s.queue)
	settingsHandler := handler.NewSettingsHandler(s.settings)

	// API路由组
	api := s.gin.Group("/api")

	// 认证相关路由（不需要JWT验证）
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// 需要JWT验证的路由
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(s.Config, s.Logger))
	{
		protected.GET("/me", authHandler.Me)

		protected.GET("/bilibili/login", videoHandler.LoginStatus)

		video := protected.Group("/video")
		{
			video.POST("/parse", videoHandler.Parse)
			video.POST("/download", videoHandler.Download)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.GET("", taskHandler.List)
			tasks.DELETE("", taskHandler.Clear)
			tasks.GET("/:id", taskHandler.Get)
			tasks.DELETE("/:id", taskHandler.Cancel)
		}

		settings := protected.Group("/settings")
		{
			settings.GET("", settingsHandler.Get)
			settings.PUT("", settingsHandler.Update)
		}
	}
}
