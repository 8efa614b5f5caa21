package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"postpilot/internal/api"
	"postpilot/internal/cache"
	"postpilot/internal/config"
	"postpilot/internal/llm"
	"postpilot/internal/model"
	"postpilot/internal/plan"
	"postpilot/internal/quota"
	"postpilot/internal/service"
)

func main() {
	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		return
	}

	// 初始化logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	repo, gormDB, err := model.InitRepository(&cfg)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise repository")
		return
	}

	// 远程配置表为空时写入内置默认套餐
	if err := plan.SeedDefaults(context.Background(), repo); err != nil {
		logrus.WithError(err).Warn("failed to seed default plan features")
	}

	quotaStore := quota.NewStore(gormDB, plan.NewResolver(repo))

	// Redis 远程缓存可选，未配置时降级为纯本地缓存
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logrus.WithError(err).Warn("redis unreachable, remote cache disabled")
			redisClient = nil
		}
	}
	localCache := cache.NewLocal()
	remoteCache := cache.NewRemote(redisClient)

	// 文案模型：按配置逐个注册，缺少密钥的直接跳过
	var textProviders []llm.TextProvider
	var enhancer service.Enhancer
	var imageProviders []llm.ImageProvider

	openaiProvider, err := llm.NewOpenAI(cfg.OpenAIAPIKey)
	if err != nil {
		logrus.WithError(err).Warn("openai provider disabled")
	} else {
		textProviders = append(textProviders, openaiProvider)
		enhancer = openaiProvider
	}
	if geminiProvider, err := llm.NewGemini(cfg.GeminiAPIKey); err != nil {
		logrus.WithError(err).Warn("gemini provider disabled")
	} else {
		textProviders = append(textProviders, geminiProvider)
	}
	if openRouterProvider, err := llm.NewOpenRouter(cfg.OpenRouterAPIKey); err != nil {
		logrus.WithError(err).Warn("openrouter provider disabled")
	} else {
		textProviders = append(textProviders, openRouterProvider)
	}

	// 图片模型级联顺序：代理 Stability → 直连 Stability → Replicate →
	// Fal → OpenAI 同步生图
	if stabilityProxy, err := llm.NewStabilityViaProxy(cfg.StabilityProxyURL, cfg.StabilityAPIKey); err != nil {
		logrus.WithError(err).Warn("stability proxy provider disabled")
	} else {
		imageProviders = append(imageProviders, stabilityProxy)
	}
	if stabilityDirect, err := llm.NewStabilityDirect(cfg.StabilityDirectURL, cfg.StabilityAPIKey); err != nil {
		logrus.WithError(err).Warn("stability direct provider disabled")
	} else {
		imageProviders = append(imageProviders, stabilityDirect)
	}
	if replicateProvider, err := llm.NewReplicate(cfg.ReplicateAPIKey); err != nil {
		logrus.WithError(err).Warn("replicate provider disabled")
	} else {
		imageProviders = append(imageProviders, replicateProvider)
	}
	if falProvider, err := llm.NewFal(cfg.FalAPIKey); err != nil {
		logrus.WithError(err).Warn("fal provider disabled")
	} else {
		imageProviders = append(imageProviders, falProvider)
	}
	if openaiProvider != nil {
		imageProviders = append(imageProviders, openaiProvider.Images())
	}

	router := llm.NewRouter(repo, textProviders...)
	captionService := service.NewCaptionService(quotaStore, router, cfg.IsProduction())
	imageService := service.NewImageService(quotaStore, repo, enhancer, imageProviders, localCache, remoteCache, cfg.BypassImageCache)

	httpHandler, err := api.NewHTTPHandler(cfg, repo, quotaStore, captionService, imageService)
	if err != nil {
		logrus.WithError(err).Error("failed to initialise http handler")
		return
	}

	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// 添加中间件
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", httpHandler.Register)
	authGroup.POST("/login", httpHandler.Login)
	authGroup.GET("/me", httpHandler.AuthMiddleware(), httpHandler.Me)

	protected := apiGroup.Group("")
	protected.Use(httpHandler.AuthMiddleware())
	protected.POST("/captions", httpHandler.GenerateCaption)
	protected.POST("/images", httpHandler.GenerateImage)
	protected.GET("/quota", httpHandler.GetQuota)
	protected.GET("/usage-logs", httpHandler.ListUsageLogs)

	admin := protected.Group("")
	admin.Use(httpHandler.RequireAdmin())
	admin.PATCH("/users/:id", httpHandler.AdminUpdateUser)
	admin.GET("/plans/:plan_key/features", httpHandler.AdminListPlanFeatures)
	admin.PUT("/plans/:plan_key/features", httpHandler.AdminUpsertPlanFeature)
	admin.DELETE("/plans/:plan_key/features/:feature_key", httpHandler.AdminDeletePlanFeature)

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	logrus.WithField("host", serverHost).Info("服务器启动")
	// 创建HTTP服务器
	httpServer := &http.Server{
		Addr:         serverHost,
		Handler:      r,
		ReadTimeout:  300 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  600 * time.Second,
	}
	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logrus.WithError(err).Error("服务器启动失败")
	}
}

// CORSMiddleware CORS跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggingMiddleware 日志记录中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// 处理请求
		c.Next()
		// 记录请求结束
		duration := time.Since(start)
		logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  duration.String(),
			"size":      c.Writer.Size(),
			"client_ip": c.ClientIP(),
		}).Info("http_request")
	}
}
