package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NexiaCore/internal/consumer/rabbitmq"
	handler "NexiaCore/internal/handler/http"
	"NexiaCore/internal/messaging"
	"NexiaCore/internal/middleware"
	"NexiaCore/internal/pkg/jwt"
	"NexiaCore/internal/pkg/password"
	"NexiaCore/internal/repository/postgres"
	"NexiaCore/internal/service"
	"NexiaCore/pkg/config"
	"NexiaCore/pkg/database"
	"NexiaCore/pkg/health"
	"NexiaCore/pkg/logger"
	"NexiaCore/pkg/metrics"
	rabbitmqpkg "NexiaCore/pkg/rabbitmq"
	"NexiaCore/pkg/ratelimit"
	redispkg "NexiaCore/pkg/redis"
)

const (
	serviceName    = "nexia-core"
	serviceVersion = "1.0.0"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	// Загружаем конфигурацию. Слабый JWT секрет обнаруживается здесь,
	// до открытия любых подключений.
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Инициализируем логгер
	appLogger, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, serviceName)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("starting service",
		logger.String("version", serviceVersion),
		logger.String("environment", cfg.Environment))

	// Метрики и трейсинг
	appMetrics := metrics.NewMetrics("nexia_core")
	tracerProvider, err := metrics.InitTracer(serviceName, serviceVersion)
	if err != nil {
		appLogger.Error("failed to init tracer", logger.Error(err))
		os.Exit(1)
	}
	defer tracerProvider.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключаемся к PostgreSQL
	dbConfig := database.NewConfig()
	dbConfig.Host = cfg.Database.Host
	dbConfig.Port = cfg.Database.Port
	dbConfig.User = cfg.Database.User
	dbConfig.Password = cfg.Database.Password
	dbConfig.Database = cfg.Database.Name
	dbConfig.SSLMode = cfg.Database.SSLMode

	db, err := database.Connect(ctx, dbConfig)
	if err != nil {
		appLogger.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Применяем миграции схемы
	if err := database.RunMigrations(dbConfig.URL()); err != nil {
		appLogger.Error("failed to run migrations", logger.Error(err))
		os.Exit(1)
	}

	// Подключаемся к Redis
	redisConfig := redispkg.NewConfig()
	redisConfig.Addr = cfg.Redis.Addr
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	redisConfig.PoolSize = cfg.Redis.PoolSize
	redisConfig.MinIdleConn = cfg.Redis.MinIdleConn

	redisClient, err := redispkg.Connect(ctx, redisConfig)
	if err != nil {
		appLogger.Error("failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// Подключаемся к RabbitMQ
	mqConfig := rabbitmqpkg.NewConfig()
	mqConfig.URL = cfg.RabbitMQ.URL
	mqConfig.Exchange = cfg.RabbitMQ.Exchange
	mqConfig.RoutingKey = cfg.RabbitMQ.RoutingKey
	mqConfig.Queue = cfg.RabbitMQ.Queue
	mqConfig.DLX = cfg.RabbitMQ.DLX
	mqConfig.DLQ = cfg.RabbitMQ.DLQ

	mqConn, err := rabbitmqpkg.Connect(mqConfig)
	if err != nil {
		appLogger.Error("failed to connect to rabbitmq", logger.Error(err))
		os.Exit(1)
	}
	defer mqConn.Close()

	// Репозитории
	userRepo := postgres.NewUserRepository(db.Pool)
	processedRepo := postgres.NewProcessedMessageRepository(db.Pool)

	// Токены и пароли
	tokenManager, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.TTLSeconds)*time.Second)
	if err != nil {
		appLogger.Error("failed to create token manager", logger.Error(err))
		os.Exit(1)
	}
	hasher := password.NewBcryptHasher()

	// Публикация событий
	producer := rabbitmqpkg.NewProducer(mqConn, mqConfig)
	publisher := messaging.NewUserEventPublisher(producer, cfg.RabbitMQ.RoutingKey, appLogger, appMetrics)

	// Сервисы
	authService := service.NewAuthService(userRepo, hasher, tokenManager, publisher, appLogger)
	userService := service.NewUserService(userRepo, appLogger)

	// Middleware
	identity := middleware.NewIdentity(tokenManager, userRepo, appLogger)
	limiter := middleware.NewRateLimit(
		ratelimit.NewRedisRateLimiter(redisClient.Client),
		cfg.RateLimiting.RequestsPerMinute,
		time.Minute,
		appLogger,
	)

	// Консьюмер событий
	mqConsumer := rabbitmqpkg.NewConsumer(mqConn, mqConfig)
	eventConsumer := rabbitmq.NewUserEventConsumer(mqConsumer, processedRepo, cfg.RabbitMQ.Queue, appLogger, appMetrics)

	go func() {
		if err := eventConsumer.Start(ctx); err != nil && err != context.Canceled {
			appLogger.Error("event consumer stopped", logger.Error(err))
		}
	}()

	// Health checks
	healthService := health.NewService(serviceVersion)
	healthService.Register("postgres", db.HealthCheck)
	healthService.Register("redis", redisClient.HealthCheck)
	healthService.Register("rabbitmq", func(ctx context.Context) error {
		return mqConn.HealthCheck()
	})

	// HTTP сервер
	httpHandler := handler.NewHandler(authService, userService, identity, limiter, appLogger, appMetrics)

	mux := http.NewServeMux()
	mux.Handle("/api/", httpHandler.Routes())
	mux.Handle("/health", health.Handler(healthService))
	mux.Handle("/health/live", health.LiveHandler())
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("http server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("http server failed", logger.Error(err))
			stop()
		}
	}()

	// Ждем сигнала завершения
	<-ctx.Done()

	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("failed to shutdown http server", logger.Error(err))
	}

	appLogger.Info("service stopped")
}
