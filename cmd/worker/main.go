package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"checkclass/internal/cache"
	"checkclass/internal/config"
	"checkclass/internal/logging"
	"checkclass/internal/notify"
	"checkclass/internal/queue"
	"checkclass/internal/store"
	"checkclass/internal/worker"
)

// Worker turns queued events into notifications and keeps the offline mirror fresh.
func main() {
	cfg := config.Load()
	log := logging.Must(cfg.Env, cfg.LogLevel).Named("worker")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	repo := store.NewRepository(db.Client)

	redisClient, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis config invalid", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx); err != nil {
		log.Warn("redis not reachable, events will wait until it is back", zap.Error(err))
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		log.Warn("memory queue selected, the worker only sees events published in its own process")
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}
	kv := cache.NewRedis(redisClient.Client, store.KeyPrefix)

	refresher := &worker.MirrorRefresher{Source: repo, Mirror: cache.NewMirror(kv), Log: log}
	if err := refresher.Refresh(ctx); err != nil {
		log.Warn("initial mirror refresh failed", zap.Error(err))
	}
	sched, err := refresher.Schedule(ctx, cfg.MirrorSchedule)
	if err != nil {
		log.Fatal("mirror schedule", zap.Error(err))
	}
	defer func() { <-sched.Stop().Done() }()

	handler := &notify.Handler{Inbox: notify.NewInbox(kv), Log: log}
	log.Info("worker started, waiting for events", zap.String("mirror_schedule", cfg.MirrorSchedule))
	if err := worker.Consume(ctx, q, handler, log); err != nil && ctx.Err() == nil {
		log.Error("worker stopped", zap.Error(err))
		return
	}
	log.Info("worker stopped")
}
