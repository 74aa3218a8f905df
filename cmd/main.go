package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"universe-gateway/core"
	"universe-gateway/core/adapter"
	"universe-gateway/core/security"
	"universe-gateway/models"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "encrypt-secret" {
		if err := encryptSecret(os.Stdin, os.Stdout, os.Getenv("SECRET_KEY")); err != nil {
			logrus.Fatal(err)
		}
		return
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		logrus.Fatal("Invalid configuration: ", err)
	}

	// 创建日志器
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		logrus.Fatal("Failed to open log file: ", err)
	}
	defer closeLog()

	// 🔇 关闭 Gin Debug 模式输出
	gin.SetMode(gin.ReleaseMode)

	metrics := core.NewMetrics()
	recorders := core.MultiRecorder{metrics}

	// 遥测持久化是可选的，DB_PATH 为空时只有日志和指标
	var db *gorm.DB
	if cfg.DBPath != "" {
		db, err = initDatabase(cfg.DBPath, log)
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		telemetry := core.NewAsyncOutcomeLogger(db, log)
		defer telemetry.Close()
		recorders = append(recorders, telemetry)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var generator core.Generator
	remote, err := adapter.New(ctx, cfg.Backend, cfg.APIKey, cfg.BaseURL, core.NewHTTPClient())
	if err != nil {
		log.Fatal("Failed to create generator:", err)
	}
	switch {
	case remote == nil:
		log.Warn("No API key configured, serving fallback content only")
	case cfg.BreakerFailures > 0:
		generator = core.NewBreakerGenerator(remote, core.BreakerConfig{
			Failures:    uint32(cfg.BreakerFailures),
			OpenTimeout: cfg.BreakerTimeout,
		}, log)
	default:
		generator = remote
	}

	client := core.NewGenerativeClient(generator, cfg.APIKey, core.NewKeyStateManager(), cfg.Timeout, log)
	service := core.NewContentService(
		core.NewContentRequestBuilder(cfg.Model, cfg.FeedSize),
		client,
		core.NewResultEnricher(log),
		recorders,
		log,
	)

	engine := setupRouter(&server{
		cfg:     cfg,
		service: service,
		session: core.NewSessionHandler(service, metrics, log),
		db:      db,
		limiter: NewIPRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		metrics: metrics,
		log:     log,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"port":       cfg.Port,
			"model":      cfg.Model,
			"backend":    cfg.Backend,
			"configured": cfg.Configured(),
		}).Info("Starting Universe Gateway")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// 等待中断信号或监听失败
		<-gctx.Done()
		log.Info("Shutting down server...")

		// 给在途的生成请求留出完成时间
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error: ", err)
		return
	}
	log.Info("Server exited")
}

// contentService 展示层依赖的服务能力
type contentService interface {
	core.ContentGateway
	Configured() bool
	Model() string
	CredentialStatus() string
	ResetCredential()
}

// server 路由处理所需的依赖
type server struct {
	cfg     *core.Config
	service contentService
	session http.Handler
	db      *gorm.DB // 为 nil 时管理统计接口不可用
	limiter *IPRateLimiter
	metrics *core.Metrics // 为 nil 时不暴露 /metrics
	log     *logrus.Logger
}

// setupRouter 设置路由
func setupRouter(s *server) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.RecoveryWithWriter(s.log.Writer()))
	engine.Use(corsMiddleware())
	engine.Use(requestIDMiddleware())
	if s.metrics != nil {
		engine.Use(metricsMiddleware(s.metrics))
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}

	// 公开路由 - 无需鉴权，无访问日志
	engine.GET("/", handleRoot(s))
	engine.GET("/health", handleHealth(s))
	engine.GET("/dashboard", handleDashboard())

	// 业务接口：限流 + 请求日志
	api := engine.Group("/api")
	api.Use(RateLimitMiddleware(s.limiter, s.log), requestLoggerMiddleware(s.log))
	{
		api.GET("/feed", handleGetFeed(s))
		api.POST("/feed", handlePostFeed(s))
		api.POST("/cocreate", handleCoCreate(s))
		api.GET("/content-types", handleContentTypes())
	}

	engine.GET("/ws/universe", RateLimitMiddleware(s.limiter, s.log), gin.WrapH(s.session))

	// 管理API路由组 - 静默模式，不记录访问日志
	admin := engine.Group("/admin")
	admin.Use(AdminAuthMiddleware(s.cfg.AdminToken))
	{
		admin.GET("/stats", handleAdminStats(s))
		admin.GET("/logs", handleAdminLogs(s))
		admin.GET("/credential", handleAdminCredential(s))
		admin.POST("/credential/reset", handleAdminResetCredential(s))
	}

	return engine
}

// encryptSecret 从 in 读取明文凭证，输出可写入配置文件的 enc: 值
func encryptSecret(in io.Reader, out io.Writer, secretKey string) error {
	if secretKey == "" {
		return errors.New("SECRET_KEY is not set")
	}
	provider, err := security.NewAESSecretProvider(secretKey)
	if err != nil {
		return err
	}
	raw, err := io.ReadAll(io.LimitReader(in, 4096))
	if err != nil {
		return err
	}
	plaintext := strings.TrimSpace(string(raw))
	if plaintext == "" {
		return errors.New("nothing to encrypt")
	}
	enc, err := provider.Encrypt(plaintext)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, enc)
	return err
}

// newLogger JSON 格式日志，配置 LOG_FILE 时同时写入滚动文件
func newLogger(cfg *core.Config) (*logrus.Logger, func(), error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFile == "" {
		return log, func() {}, nil
	}
	rotator, err := core.NewLogRotator(cfg.LogFile, cfg.LogFileMaxMB)
	if err != nil {
		return nil, nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return log, func() { _ = rotator.Close() }, nil
}

// initDatabase 初始化遥测数据库
func initDatabase(path string, log *logrus.Logger) (*gorm.DB, error) {
	// 只记录错误，不打印 SQL 语句
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.WithField("path", path).Info("Database initialized successfully")
	return db, nil
}
