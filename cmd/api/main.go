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
	_ "time/tzdata"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"root/internal/apikey"
	"root/internal/attendance"
	"root/internal/auth"
	"root/internal/config"
	"root/internal/daily"
	"root/internal/githubclient"
	"root/internal/graph"
	"root/internal/httpmiddleware"
	"root/internal/logging"
	"root/internal/member"
	"root/internal/metrics"
	"root/internal/queue"
	"root/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Production())
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema applied")
	}

	redisClient, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, store.Key("queue"))
	}

	members := member.NewRepository(db.Client)
	records := attendance.NewRepository(db.Client)
	gh := githubclient.New(cfg.GitHubAPIURL, cfg.GitHubClientID, cfg.GitHubClientSecret)
	keys := apikey.NewManager(apikey.NewRepository(db.Client), gh, cfg.APIKeyCost, logger.Named("apikey"), m)

	dailyLog := logger.Named("daily")
	batch := daily.NewGuardedBatch(
		daily.NewBatch(members, records, dailyLog, m),
		daily.NewRedisGuard(redisClient.Client, dailyLog),
		dailyLog,
	)
	if cfg.SchedulerEnabled {
		runner := daily.NewRunner(batch, daily.RealClock(), loc, cfg.DailyTaskOffset, dailyLog)
		go func() {
			logExit(dailyLog, "daily runner", runner.RunForever(ctx))
		}()
	}
	if cfg.QueueBackend == "memory" {
		go func() {
			logExit(dailyLog, "daily trigger consumer", daily.ConsumeTriggers(ctx, q, batch, loc, dailyLog))
		}()
	}

	schema := graph.NewSchema(graph.NewResolver(graph.Deps{
		Members:    members,
		Attendance: records,
		Marker:     attendance.NewService(records, cfg.RootSecret, loc),
		Keys:       apikey.NewRepository(db.Client),
		Queue:      q,
		Location:   loc,
		Logger:     logger.Named("graph"),
	}))
	oauth := auth.NewOAuth(
		auth.NewGitHubConfig(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL),
		cfg.StateSigningKey, cfg.FrontendRedirectURL, gh, members, logger.Named("oauth"),
	)
	limiter := httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin,
		httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin), logger.Named("ratelimit"))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.AccessLog(logger.Named("http"), m, "/healthz", "/metrics"))
	r.Use(cors.New(corsConfig(cfg)))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RateLimit(limiter))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.GET("/", gin.WrapH(graph.Playground("/graphql")))
	r.POST("/graphql", auth.APIKeyGate(keys), gin.WrapH(graph.Handler(schema)))
	r.GET("/auth/github/login", oauth.Login)
	r.GET("/auth/github/callback", oauth.Callback)
	r.POST("/api-key", auth.IssueHandler(keys))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

// logExit reports a background loop that ended for any reason other than shutdown.
func logExit(logger *zap.Logger, what string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	logger.Error(what+" stopped", zap.Error(err))
}

func corsConfig(cfg config.App) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key", httpmiddleware.RequestIDHeader},
		MaxAge:       24 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = cfg.CORSOrigins
	c.AllowCredentials = true
	return c
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
