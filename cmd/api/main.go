package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"checkclass/internal/api"
	"checkclass/internal/attendance"
	"checkclass/internal/auth"
	"checkclass/internal/cache"
	"checkclass/internal/cloudinary"
	"checkclass/internal/config"
	"checkclass/internal/live"
	"checkclass/internal/logging"
	"checkclass/internal/metrics"
	"checkclass/internal/notify"
	"checkclass/internal/qrsession"
	"checkclass/internal/queue"
	"checkclass/internal/store"
	"checkclass/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logging.Must(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if db == nil {
		return err
	}
	if err != nil {
		log.Warn("db not reachable", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	repo := store.NewRepository(db.Client)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	if cfg.SeedDemo {
		if err := repo.Seed(ctx, auth.HashPassword); err != nil {
			return err
		}
		log.Info("demo data seeded")
	}

	redisClient, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	var kv cache.Cache
	if cfg.CacheBackend == "memory" {
		kv = cache.NewMemory()
	} else {
		kv = cache.NewRedis(redisClient.Client, store.KeyPrefix)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	hub := live.NewHub(log.Named("live"), cfg.CORSOrigins...)
	events := queue.Fanout{q, hub, m}

	qr := qrsession.New(repo, qrsession.Options{
		Validity:  cfg.QRValidity,
		ImageSize: cfg.QRImageSize,
		Events:    events,
		Logger:    log.Named("qr"),
	})
	recorder := attendance.NewRecorder(repo,
		attendance.WithEvents(events),
		attendance.WithLogger(log.Named("attendance")),
	)
	checkIn := &attendance.CheckIn{QR: qr, Classes: repo, Recorder: recorder, Log: log.Named("checkin")}
	if cfg.QRSingleUse {
		checkIn.Ledger = repo
	}

	inbox := notify.NewInbox(kv)
	if cfg.QueueBackend == "memory" {
		// no separate worker can see an in-process queue
		go func() {
			_ = worker.Consume(ctx, q, &notify.Handler{Inbox: inbox, Log: log.Named("notify")}, log.Named("worker"))
		}()
	}

	deps := api.Deps{
		Users:    repo,
		Classes:  repo,
		Records:  repo,
		QR:       qr,
		Recorder: recorder,
		CheckIn:  checkIn,
		Inbox:    inbox,
		Hub:      hub,
		Metrics:  m,
		Logger:   log,
	}
	if cfg.CacheBackend != "memory" {
		// kept current by cmd/worker's scheduled refresh
		deps.Snapshot = cache.NewMirror(kv)
	}
	if cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder); cdn != nil {
		deps.Images = cdn
		log.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		log.Info("cloudinary not configured, QR images stay inline")
	}

	r := api.New(cfg, deps).Router()
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy, "live_clients": hub.Clients()})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", zap.Error(err))
	}
	log.Info("server exited", zap.Int("pid", os.Getpid()))
	return nil
}
