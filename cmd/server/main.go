// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"resume-chat-go/internal/config"
	"resume-chat-go/internal/handler"
	"resume-chat-go/internal/middleware"
	"resume-chat-go/internal/pipeline"
	"resume-chat-go/internal/repository"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/database"
	"resume-chat-go/pkg/embedding"
	"resume-chat-go/pkg/es"
	"resume-chat-go/pkg/kafka"
	"resume-chat-go/pkg/llm"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/storage"
	"resume-chat-go/pkg/tika"
	"resume-chat-go/pkg/token"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化数据库和 Redis
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal("数据库初始化失败", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("数据表迁移失败", err)
		}
	}
	rdb, err := database.NewRedis(ctx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatal("Redis 初始化失败", err)
	}
	defer rdb.Close()

	// 4. 初始化外部服务客户端
	httpClient := &http.Client{Timeout: 60 * time.Second}
	esClient, err := es.NewClient(cfg.Search, cfg.Embedding.Dimensions, nil)
	if err != nil {
		log.Fatal("es 客户端初始化失败", err)
	}
	if err := esClient.EnsureIndex(ctx); err != nil {
		// 检索服务暂不可用时仍然启动，问答请求会返回 503
		log.Warnf("es 索引检查失败: %v", err)
	}
	embeddingClient := embedding.NewClient(cfg.Embedding, httpClient)
	llmClient := llm.NewClient(cfg.LLM, httpClient)
	tikaClient := tika.NewClient(cfg.Tika, httpClient)
	objectStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("MinIO 初始化失败", err)
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 5. 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	blacklist := repository.NewTokenBlacklist(rdb)

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	userService := service.NewUserService(userRepo, blacklist, jwtManager)
	quotaService := service.NewQuotaService(userRepo, conversationRepo)
	historyService := service.NewHistoryService(conversationRepo)
	retrievalService := service.NewRetrievalService(embeddingClient, esClient)
	answerService := service.NewAnswerService(retrievalService, llmClient, service.AnswerOptions{
		OwnerName: cfg.Chat.ResumeOwnerName,
		TopK:      cfg.Search.TopK,
		Fake:      cfg.Chat.FakeAnswers,
	})
	chatService := service.NewChatService(quotaService, historyService, answerService, service.ChatOptions{
		OwnerName:     cfg.Chat.ResumeOwnerName,
		WindowSize:    cfg.Chat.WindowSize,
		RoleAwareTrim: cfg.Chat.RoleAwareTrim,
	})
	adminService := service.NewAdminService(userRepo, historyService, quotaService)
	resumeService := service.NewResumeService(objectStore, producer)

	// 7. 启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(objectStore, tikaClient, embeddingClient, esClient)
	consumer := kafka.NewConsumer(cfg.Kafka, processor, kafka.NewRedisAttemptCounter(rdb))
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil {
			log.Error("Kafka 消费者异常退出", err)
		}
	}()

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(quotaService)
	conversationHandler := handler.NewConversationHandler(historyService)
	chatHandler := handler.NewChatHandler(chatService, userService, jwtManager)
	adminHandler := handler.NewAdminHandler(adminService, userService, resumeService)

	// 9. 注册路由
	registerRoutes(r, jwtManager, userService, authHandler, userHandler, conversationHandler, chatHandler, adminHandler)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	<-ctx.Done()
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warnf("等待 Kafka 消费者退出超时")
	}
	log.Info("服务已优雅关闭")
}

func registerRoutes(
	r *gin.Engine,
	jwtManager *token.JWTManager,
	userService service.UserService,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	conversationHandler *handler.ConversationHandler,
	chatHandler *handler.ChatHandler,
	adminHandler *handler.AdminHandler,
) {
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := middleware.AuthMiddleware(jwtManager, userService)

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authRequired, authHandler.Logout)
		}

		users := apiV1.Group("/users")
		users.Use(authRequired)
		{
			users.GET("/me", userHandler.GetProfile)
			users.GET("/quota", userHandler.GetQuota)
			users.GET("/conversation", conversationHandler.GetConversations)
		}

		chat := apiV1.Group("/chat")
		chat.Use(authRequired)
		{
			chat.GET("/welcome", chatHandler.Welcome)
			chat.POST("", chatHandler.Ask)
		}

		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin := apiV1.Group("/admin")
		admin.Use(authRequired, middleware.AdminAuthMiddleware())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.PUT("/users/:userId/max-messages", adminHandler.SetMaxMessages)
			admin.GET("/conversation", adminHandler.GetAllConversations)
			admin.POST("/resume", adminHandler.UploadResume)
		}
	}

	// WebSocket 无法携带 Authorization 头，token 放在路径中
	r.GET("/chat/:token", chatHandler.Handle)
}
