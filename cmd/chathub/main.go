// Command chathub runs the presence and private-messaging hub: the WebSocket
// endpoint, the account/profile/media HTTP API, and the stores behind them.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"chathub/internal/config"
	"chathub/internal/hub"
	"chathub/internal/metrics"
	"chathub/internal/presence"
	"chathub/internal/ratelimit"
	"chathub/internal/server"
	"chathub/internal/util"
	"chathub/pkg/storage"
	"chathub/pkg/store"
)

func main() {
	configPath := flag.String("config", config.ConfigPath, "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		util.Fatal("load config", "error", err)
	}
	log := util.InitLogger(cfg.LogLevel)

	var st store.Store
	if cfg.DatabaseURL != "" {
		gs, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			util.Fatal("connect database", "error", err)
		}
		st = gs
		log.Info("using postgres store")
	} else {
		st = store.NewMemoryStore()
		log.Warn("databaseURL not set, using in-memory store; data is lost on restart")
	}

	ttl, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		util.Fatal("parse session ttl", "error", err)
	}
	var sessions store.SessionStore
	switch {
	case cfg.SessionSecret != "":
		sessions, err = store.NewJWTSessionStore(cfg.SessionSecret, ttl)
		if err != nil {
			util.Fatal("init jwt sessions", "error", err)
		}
		log.Info("using jwt sessions", "ttl", ttl)
	case cfg.RedisAddr != "":
		sessions = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, ttl)
		log.Info("using redis sessions", "addr", cfg.RedisAddr, "ttl", ttl)
	default:
		sessions = store.NewMemorySessionStore(ttl)
		log.Warn("no sessionSecret or redisAddr, using in-memory sessions")
	}

	var media storage.MediaStore
	uploadsDir := ""
	if cfg.MinioEndpoint != "" {
		media, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			util.Fatal("connect minio", "error", err)
		}
		log.Info("using minio media store", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	} else {
		fs, err := storage.NewFileStore(cfg.UploadsDir, "/uploads")
		if err != nil {
			util.Fatal("init uploads dir", "error", err)
		}
		media = fs
		uploadsDir = fs.BasePath()
		log.Info("using local media store", "dir", uploadsDir)
	}

	signupLimiter := newLimiter(cfg, "chathub:ratelimit:signup", cfg.SignupRateLimitPerMinute, log)
	loginLimiter := newLimiter(cfg, "chathub:ratelimit:login", cfg.LoginRateLimitPerMinute, log)

	registry := presence.NewRegistry(st)
	h := hub.New(hub.Config{
		Presence:       registry,
		Messages:       st,
		Metrics:        metrics.New(prometheus.DefaultRegisterer),
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := server.New(server.Config{
		Store:         st,
		Sessions:      sessions,
		Media:         media,
		Hub:           h,
		SignupLimiter: signupLimiter,
		LoginLimiter:  loginLimiter,
		UploadsDir:    uploadsDir,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// No blanket write timeout: WebSocket connections outlive any
		// reasonable request deadline.
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		util.Fatal("server exited", "error", err)
	}
	log.Info("stopped")
}

func newLimiter(cfg config.FileConfig, prefix string, perMinute int, log *slog.Logger) *ratelimit.FixedWindowLimiter {
	if perMinute <= 0 {
		return nil
	}
	if cfg.RedisAddr == "" {
		log.Warn("rate limit configured without redisAddr, disabled", "prefix", prefix)
		return nil
	}
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, perMinute, time.Minute)
	if err != nil {
		util.Fatal("init rate limiter", "error", err)
	}
	return limiter
}
