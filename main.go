package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-site-go/internal/analytics"
	"portfolio-site-go/internal/config"
	"portfolio-site-go/internal/crosspost"
	"portfolio-site-go/internal/events"
	"portfolio-site-go/internal/handlers"
	"portfolio-site-go/internal/handles"
	"portfolio-site-go/internal/logging"
	"portfolio-site-go/internal/metrics"
	"portfolio-site-go/internal/models"
	"portfolio-site-go/internal/notice"
	"portfolio-site-go/internal/push"
	"portfolio-site-go/internal/relay"
	"portfolio-site-go/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	hashPassword := flag.String("hash-password", "", "Print the bcrypt hash for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := models.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, "hash password:", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("falling back to default logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	m := metrics.New()

	vapidPublic, vapidPrivate, err := push.LoadVAPIDKeys(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, logger)
	if err != nil {
		logger.Fatal("failed to load VAPID keys", zap.Error(err))
	}

	provider := handles.NewProvider(handles.Builder{
		Identity: handlers.ContextIdentity{},
		Store: func(ctx context.Context) (store.Store, error) {
			return openStore(ctx, cfg, rdb, logger)
		},
		Messaging: func(context.Context) (handles.Messaging, error) {
			return push.NewSender(vapidPublic, vapidPrivate, cfg.VAPIDSubject, cfg.PushTTL), nil
		},
		Analytics: func(context.Context) (analytics.Logger, error) {
			return analytics.NewClient(rdb, m.AnalyticsEvents, logger), nil
		},
		Production: cfg.IsProd(),
		Supported:  func() bool { return cfg.AnalyticsEnabled },
	}.Init)
	provider.Start(ctx)

	registry := events.NewRegistry(logger)
	bridge := events.NewBridge(rdb, registry, logger)
	board := notice.NewBoard(rdb, logger)
	broadcaster := push.NewBroadcaster(provider, m.PushDeliveries, logger)

	var teardown events.Teardown
	defer teardown.Close()
	teardown.Add(relay.New(provider, logger).Register(registry))
	teardown.Add(registry.On(events.MetaCreated, broadcaster.OnMetaCreated))
	if cfg.Twitter.Enabled() {
		trigger := crosspost.NewTrigger(crosspost.NewTwitterClient(cfg.Twitter), m.CrossPosts, logger)
		teardown.Add(registry.On(events.MetaCreated, trigger.OnCreate))
	} else {
		logger.Info("twitter credentials not set, cross-posting disabled")
	}

	go bridge.Serve(ctx)

	h := handlers.NewHandler(handlers.Handler{
		Handles:     provider,
		Push:        push.NewController(board, m.Lifecycle, cfg.ServiceWorkerURL, logger),
		Broadcaster: broadcaster,
		Notices:     board,
		Events:      registry,
		Publisher:   bridge,
		Sessions:    handlers.NewSessionStore(cfg.SessionSecret, cfg.IsProd()),
		Admin: models.AdminAccount{
			Username:     cfg.AdminUsername,
			PasswordHash: cfg.AdminPasswordHash,
			TOTPSecret:   cfg.AdminTOTPSecret,
		},
		WebhookSecret: cfg.WebhookSecret,
		Logger:        logger,
	})
	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin login disabled; generate one with -hash-password")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/", h.Routes())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Events published before the subscription exists would be dropped.
	select {
	case <-bridge.Ready():
	case <-quit:
		logger.Info("interrupted before event bridge subscribed")
		return
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	if set := provider.Peek(); set != nil {
		if err := set.Store.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}
	logger.Info("server exited")
}

func openStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (store.Store, error) {
	if cfg.StoreBackend == config.BackendPostgres {
		pg, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.RunMigrations(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		logger.Info("database migrations completed")
		return pg, nil
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return store.NewRedisStore(rdb), nil
}
