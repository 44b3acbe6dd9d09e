package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	authsvc "shamsa/internal/app/services/auth"
	"shamsa/internal/app/services/messaging"
	"shamsa/internal/domain/auth"
	"shamsa/internal/domain/chat"
	"shamsa/internal/domain/feed"
	"shamsa/internal/domain/games"
	"shamsa/internal/domain/shop"
	"shamsa/internal/domain/user"
	"shamsa/internal/infra/broker/kafka"
	"shamsa/internal/infra/completion"
	"shamsa/internal/infra/config"
	mongodb "shamsa/internal/infra/db/mongo"
	ginserver "shamsa/internal/infra/http/gin"
	"shamsa/internal/infra/obs"
	"shamsa/internal/infra/security"
	"shamsa/internal/infra/storage/memory"
	"shamsa/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	metrics := obs.NewMetrics()

	app, cleanup, err := buildApplication(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: metrics}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	ready    func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger, metrics *obs.Metrics) (application, func(), error) {
	var app application
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var (
		users     user.Repository
		sessions  auth.SessionStore
		posts     feed.Repository
		chatStore chat.Store
		ready     = func() error { return nil }
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return app, cleanup, err
		}
		if err := client.Ping(ctx); err != nil {
			return app, cleanup, err
		}
		users = mongodb.NewUserRepository(client.DB)
		sessions = mongodb.NewSessionStore(client.DB)
		posts = mongodb.NewPostRepository(client.DB)
		chatStore = mongodb.NewChatStore(client.DB, logger)
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	default:
		users = memory.NewUserRepository()
		sessions = memory.NewSessionStore()
		posts = memory.NewPostRepository()
		chatStore = memory.NewChatStore()
	}

	var chatEvents chat.Events
	var authEvents authsvc.Events
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return app, cleanup, err
		}
		cleanups = append(cleanups, func() {
			if err := producer.Close(); err != nil {
				logger.Warn("kafka producer close failed", "error", err)
			}
		})
		publisher := &kafka.EventPublisher{Producer: producer, Logger: logger}
		chatEvents = publisher
		authEvents = publisher
	}

	var uploader s3.Uploader = s3.NoopUploader{}
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(s3.Config{
			Endpoint:      cfg.S3Endpoint,
			UseSSL:        cfg.S3UseSSL,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicEndpoint,
		}, logger)
		if err != nil {
			return app, cleanup, err
		}
		uploader = client
	}

	var generator games.Generator
	if cfg.CompletionURL != "" {
		generator = completion.NewClient(completion.Config{
			Endpoint: cfg.CompletionURL,
			Model:    cfg.CompletionModel,
			Timeout:  cfg.CompletionTimeout,
		}, logger)
	}

	authService := &authsvc.Service{
		Users:      users,
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		Events:     authEvents,
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	feedService := &feed.Service{Posts: posts, Users: users, Logger: logger}
	shopService := &shop.Service{Users: users, Logger: logger}
	gamesService := &games.Service{
		Generator: generator,
		Users:     users,
		Logger:    logger,
		TTL:       cfg.QuestionTTL,
	}
	sessionManager := &messaging.Manager{
		Store:      chatStore,
		Identities: user.IdentityDirectory{Users: users},
		Events:     chatEvents,
		Logger:     logger,
		OnSubscriptionError: func(error) {
			metrics.SubscriptionErrors.Inc()
		},
	}
	cleanups = append(cleanups, sessionManager.Close)

	authMW := ginserver.AuthMiddleware{Service: authService, Logger: logger}
	app.handlers = ginserver.Handlers{
		Auth:           ginserver.AuthHandler{Service: authService, Sessions: sessionManager, Logger: logger},
		User:           ginserver.UserHandler{Users: users, Logger: logger},
		Feed:           ginserver.FeedHandler{Service: feedService, Users: users, Logger: logger},
		Chat:           ginserver.ChatHandler{Sessions: sessionManager, Logger: logger, Metrics: metrics},
		Shop:           ginserver.ShopHandler{Service: shopService, Users: users, Logger: logger},
		Games:          ginserver.GamesHandler{Service: gamesService, Logger: logger},
		Media:          ginserver.MediaHandler{Uploader: uploader, Logger: logger},
		AuthMiddleware: authMW.Handle,
		MetricsHandler: metrics.Handler(),
	}
	app.ready = ready
	return app, cleanup, nil
}
