package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/goevery/notifier/internal/auth"
	"github.com/goevery/notifier/internal/broadcaster"
	"github.com/goevery/notifier/internal/events"
	"github.com/goevery/notifier/internal/handler"
	"github.com/goevery/notifier/internal/server"
	"github.com/goevery/notifier/internal/store"
	"github.com/goevery/notifier/internal/store/memory"
	"github.com/goevery/notifier/internal/store/mongodb"
	"github.com/goevery/notifier/internal/store/postgres"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	store           store.Engine
	registry        *broadcaster.InMemoryRegistry
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
	consumer        *events.Consumer
}

func NewApp(logger *zap.Logger, settings Settings, engine store.Engine) *App {
	originChecker := server.NewOriginChecker(splitList(settings.AllowedOrigins))
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		HandshakeTimeout:  10 * time.Second,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	authenticator := auth.NewAuthenticator(settings.JWTSecret, settings.JWTAudience, splitList(settings.APIKeys))

	validator := handler.NewRequestValidator()
	registry := broadcaster.NewInMemoryRegistry(logger)

	heartbeatHandler := handler.NewHeartbeatHandler(registry)
	orderUpdateHandler := handler.NewOrderUpdateHandler(validator, engine, registry)
	driverLocationHandler := handler.NewDriverLocationHandler(validator, engine, registry)
	subscribeOrderHandler := handler.NewSubscribeOrderHandler(validator, engine, registry)
	notifyHandler := handler.NewNotifyHandler(validator, registry, orderUpdateHandler)

	router := server.NewRouter(
		logger,
		registry,
		settings.ErrorFrames,
		heartbeatHandler,
		orderUpdateHandler,
		driverLocationHandler,
		subscribeOrderHandler,
	)

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		authenticator,
		registry,
		router,
		server.WebSocketOptions{
			SendQueueSize: settings.SendQueueSize,
			MaxFrameSize:  settings.MaxFrameSize,
			AuthTimeout:   settings.AuthTimeout,
			IdleTimeout:   settings.IdleTimeout,
			PingInterval:  settings.PingInterval,
			WriteTimeout:  settings.WriteTimeout,
		},
	)
	restServer := server.NewRESTServer(
		logger,
		notifyHandler,
		registry,
		authenticator,
	)

	var consumer *events.Consumer
	if settings.AMQPURL != "" {
		consumer = events.NewConsumer(logger, settings.AMQPURL, notifyHandler)
	}

	return &App{
		logger,
		settings,
		engine,
		registry,
		websocketServer,
		restServer,
		consumer,
	}
}

func (a *App) setup(ctx context.Context) error {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	if a.consumer != nil {
		go a.consumer.Run(notifyCtx)
	} else {
		a.logger.Info("AMQP_URL not set, order event consumer disabled")
	}

	a.startHttpServer(notifyCtx)

	return nil
}

func (a *App) startHttpServer(ctx context.Context) {
	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter().
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.websocketServer.Register(router, broadcaster.Rooms)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: router,
	}

	a.logger.Info("starting http server",
		zap.String("address", address))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-ctx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http server shutdown failed",
			zap.Error(err))
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	a.registry.Shutdown()

	err = a.store.Close(shutdownCtx)
	if err != nil {
		a.logger.Error("failed to close store",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func connectStore(ctx context.Context, logger *zap.Logger, settings Settings) (store.Engine, error) {
	switch settings.StoreDriver {
	case "postgres":
		engine, err := postgres.Connect(ctx, logger, settings.DatabaseURL)
		if err != nil {
			return nil, err
		}

		return engine, nil
	case "mongodb":
		engine, err := mongodb.Connect(ctx, settings.MongoDBURI, settings.MongoDBDatabase)
		if err != nil {
			return nil, err
		}

		return engine, nil
	case "memory":
		return memory.NewEngine(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", settings.StoreDriver)
	}
}

func main() {
	ctx := context.Background()

	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic(fmt.Errorf("failed to parse settings from environment: %w", err))
	}

	err = settings.Validate()
	if err != nil {
		panic(fmt.Errorf("invalid settings: %w", err))
	}

	logger, err := buildZapLogger(settings.LogEncoding, settings.LogLevel)
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}
	defer logger.Sync()

	engine, err := connectStore(ctx, logger, settings)
	if err != nil {
		logger.Fatal("failed to connect store",
			zap.String("driver", settings.StoreDriver),
			zap.Error(err))
	}

	err = engine.Setup(ctx)
	if err != nil {
		logger.Fatal("failed to set up store", zap.Error(err))
	}

	app := NewApp(logger, settings, engine)

	err = app.setup(ctx)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}
}
