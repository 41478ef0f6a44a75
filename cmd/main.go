package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/dealer-chat/config"
	"github.com/cwrk-planet/dealer-chat/internal/bridge"
	"github.com/cwrk-planet/dealer-chat/internal/notify"
	"github.com/cwrk-planet/dealer-chat/internal/postgres"
	"github.com/cwrk-planet/dealer-chat/internal/pubsub"
	"github.com/cwrk-planet/dealer-chat/internal/security"
	"github.com/cwrk-planet/dealer-chat/internal/service"
	"github.com/cwrk-planet/dealer-chat/internal/storage"
	grpcx "github.com/cwrk-planet/dealer-chat/internal/transport/grpc"
	httpx "github.com/cwrk-planet/dealer-chat/internal/transport/http"
	"github.com/cwrk-planet/dealer-chat/internal/transport/ws"
	"github.com/cwrk-planet/dealer-chat/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting dealer-chat",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx := context.Background()

	// --- postgres ---
	db, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
		ApplicationName: cfg.Logging.Service,
		SlowQuery:       cfg.Postgres.SlowQuery,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- pub/sub ---
	broker, err := newBroker(ctx, cfg.PubSub)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	defer broker.Close()

	// --- attachments ---
	files, mediaDir, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	media := storage.NewMediaURLs(cfg.Media.BaseURL)

	// --- push ---
	notifier, err := newNotifier(cfg.Push)
	if err != nil {
		log.Fatalf("push: %v", err)
	}
	defer notifier.Close()

	// --- repos & services ---
	users := postgres.NewUserRepository(db.Pool)
	b := bridge.New(cfg.Persistence.Workers)
	chatSvc := service.NewChatService(service.Stores{
		Chats:    postgres.NewChatRepository(db.Pool),
		Messages: postgres.NewMessageRepository(db.Pool, media),
		Profiles: postgres.NewProfileRepository(db.Pool),
		Reads:    postgres.NewReadModel(db.Pool, media),
	}, b, service.NewFanout(broker, notifier))

	// --- auth ---
	pub, err := security.LoadRSAPublicKeyFromPEM(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	verifier := security.NewJWTVerifier(pub, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.ClockSkew)
	tokens := security.NewTokenResolver(verifier, users, b)

	// --- WS ---
	wsServer := ws.NewServer(ws.Config{
		PingInterval:   cfg.WebSocket.PingInterval,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.WebSocket.SendBuffer,
		HandlerTimeout: cfg.WebSocket.HandlerTimeout,
		MaxInFlight:    cfg.WebSocket.MaxInFlight,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	}, broker, tokens, ws.DefaultRoles(chatSvc))

	// --- HTTP ---
	router := httpx.NewRouter(httpx.RouterDeps{
		WS:       wsServer.HandleWS,
		Messages: httpx.NewHandler(chatSvc, files, cfg.HTTP.MaxUploadBytes, cfg.HTTP.MaxFiles),
		Auth:     tokens,
		Ready:    map[string]httpx.Pinger{"postgres": db, "pubsub": broker},
		MediaDir: mediaDir,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// --- gRPC health ---
	grpcSrv := grpcx.NewServer(map[string]grpcx.Pinger{"postgres": db, "pubsub": broker})
	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()

	// --- run servers ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.GRPC.Addr != "" {
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				errCh <- err
				return
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			go grpcSrv.Watch(healthCtx, cfg.GRPC.HealthEvery)
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	stopHealth()
	grpcSrv.Stop(ctxShutdown)
	if err := wsServer.Shutdown(ctxShutdown); err != nil {
		slog.Warn("ws shutdown", "err", err)
	}
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	slog.Info("stopped")
}

func newBroker(ctx context.Context, cfg config.PubSub) (pubsub.Broker, error) {
	if cfg.Driver == "redis" {
		return pubsub.NewRedisBroker(ctx, cfg.Redis)
	}
	slog.Warn("pubsub: in-process broker, rooms are not shared between instances")
	return pubsub.NewMemoryBroker(), nil
}

// newStorage возвращает хранилище и каталог для раздачи по /media/ (только local).
func newStorage(ctx context.Context, cfg config.Storage) (storage.Storage, string, error) {
	if cfg.Driver == "s3" {
		s, err := storage.NewS3Storage(ctx, cfg.S3)
		return s, "", err
	}
	s, err := storage.NewLocalStorage(cfg.Local)
	if err != nil {
		return nil, "", err
	}
	return s, s.BasePath(), nil
}

func newNotifier(cfg config.Push) (notify.Notifier, error) {
	if cfg.Driver == "kafka" {
		return notify.NewKafkaNotifier(cfg.Kafka)
	}
	return notify.Noop{}, nil
}
