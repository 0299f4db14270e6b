package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/j031nich0145/noBG/config"
	"github.com/j031nich0145/noBG/handler"
	"github.com/j031nich0145/noBG/middleware"
	"github.com/j031nich0145/noBG/service"
	"github.com/j031nich0145/noBG/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting noBG server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	// 确保上传目录存在
	if err := os.MkdirAll(cfg.Upload.UploadDir, 0755); err != nil {
		utils.Logger.Fatal("failed to create upload directory", zap.Error(err))
	}

	// 初始化Redis
	redisService := service.NewRedisService(&cfg.Redis)
	ctx := context.Background()
	if err := redisService.Ping(ctx); err != nil {
		utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
	} else {
		utils.Logger.Info("redis connected successfully")
	}
	defer redisService.Close()

	// 初始化分割引擎
	segmenter := service.NewSegmenter(&cfg.Segment)

	// 启动过期上传文件清理任务
	sweeper := service.NewSweeperService(&cfg.Upload)
	if err := sweeper.Start(cfg.Upload.SweepSchedule); err != nil {
		utils.Logger.Warn("failed to start upload sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	removeHandler := handler.NewRemoveHandler(cfg, redisService, segmenter)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 创建路由
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API路由
	api := r.Group("/api")
	{
		api.GET("/health", removeHandler.Health)
		api.POST("/remove-background", removeHandler.Remove)
		api.POST("/batch-remove-background", removeHandler.BatchRemove)
	}

	// 启动服务器
	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(cfg.Server.Port); err != nil {
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
}
