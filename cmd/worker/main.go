package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"go.uber.org/zap"

	"root/internal/attendance"
	"root/internal/config"
	"root/internal/daily"
	"root/internal/logging"
	"root/internal/member"
	"root/internal/queue"
	"root/internal/store"
)

// Worker consumes daily batch triggers from the Redis queue.
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
	if cfg.QueueBackend != "redis" {
		logger.Fatal("worker requires QUEUE_BACKEND=redis", zap.String("queue_backend", cfg.QueueBackend))
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("redis config invalid", zap.Error(err))
	}
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable yet, consumer will keep retrying")
	}

	dailyLog := logger.Named("daily")
	batch := daily.NewGuardedBatch(
		daily.NewBatch(member.NewRepository(db.Client), attendance.NewRepository(db.Client), dailyLog, nil),
		daily.NewRedisGuard(redisClient.Client, dailyLog),
		dailyLog,
	)

	logger.Info("worker started, waiting for messages")
	err = daily.ConsumeTriggers(ctx, queue.NewRedisQueue(redisClient.Client, store.Key("queue")), batch, loc, dailyLog)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", zap.Error(err))
	}
	logger.Info("worker stopped")
}
