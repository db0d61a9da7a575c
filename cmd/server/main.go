// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"launchgpt-go/internal/config"
	"launchgpt-go/internal/handler"
	"launchgpt-go/internal/model"
	"launchgpt-go/internal/pipeline"
	"launchgpt-go/internal/repository"
	"launchgpt-go/internal/service"
	"launchgpt-go/pkg/database"
	"launchgpt-go/pkg/es"
	"launchgpt-go/pkg/kafka"
	"launchgpt-go/pkg/llm"
	"launchgpt-go/pkg/log"
	"launchgpt-go/pkg/storage"
	"launchgpt-go/pkg/token"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 初始化配置
	configPath := os.Getenv("LAUNCHGPT_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// 2. 初始化日志记录器
	if err := log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化数据库、Redis、MinIO 与 Elasticsearch
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, &model.User{}, &model.ChatRecord{}); err != nil {
		return err
	}
	rdb, err := database.NewRedis(ctx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	minioClient, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return err
	}
	transcripts := storage.NewTranscriptStore(minioClient, cfg.MinIO.BucketName)

	esClient, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		return err
	}
	chatIndex := es.NewChatIndex(esClient, cfg.Elasticsearch.IndexName)
	if err := chatIndex.EnsureIndex(ctx); err != nil {
		return err
	}

	producer := kafka.NewProducer(cfg.Kafka)
	defer func() {
		if err := producer.Close(); err != nil {
			log.Errorw("关闭 Kafka 生产者失败", "error", err)
		}
	}()

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	historyCache := repository.NewHistoryCache(rdb, cfg.History.CacheTTL)

	// 5. 初始化 Service (依赖注入)
	tokenManager, err := token.NewManager(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		return err
	}
	llmClient := llm.NewClient(cfg.LLM)
	userService := service.NewUserService(userRepo, tokenManager)
	chatService := service.NewChatService(llmClient, chatRepo, service.ChatOptions{
		Prompt:        llm.NewPrompt(cfg.LLM.Prompt.System, cfg.LLM.Prompt.UserTemplate),
		HistoryLimit:  cfg.History.Limit,
		Cache:         historyCache,
		Publisher:     producer,
		Transcripts:   transcripts,
		PresignExpiry: cfg.MinIO.PresignExpiry,
	})
	searchService := service.NewSearchService(chatIndex)

	// 6. 启动后台 Kafka 消费者：归档原文并写入检索索引
	archiver := pipeline.NewArchiver(transcripts, chatIndex)
	consumer := kafka.NewConsumer(cfg.Kafka, archiver, kafka.NewRedisAttemptCounter(rdb))
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil {
			log.Errorw("Kafka 消费者异常退出", "error", err)
		}
	}()

	// 7. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	origins := cfg.Server.Origins()
	r := handler.NewRouter(handler.RouterConfig{
		Tokens:     tokenManager,
		CookieName: cfg.Session.CookieName,
		Origins:    origins,
		Auth: handler.NewAuthHandler(userService, handler.CookieConfig{
			Name:   cfg.Session.CookieName,
			MaxAge: int(tokenManager.TTL().Seconds()),
			Secure: cfg.Session.CookieSecure,
		}),
		Chat:   handler.NewChatHandler(chatService, origins),
		Search: handler.NewSearchHandler(searchService),
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 等待中断信号以实现优雅停机
	select {
	case err := <-serveErr:
		stop()
		<-consumerDone
		return fmt.Errorf("HTTP 服务监听失败: %w", err)
	case <-ctx.Done():
	}
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP 服务器关闭失败", "error", err)
	}
	<-consumerDone
	log.Info("服务已优雅关闭")
	return nil
}
