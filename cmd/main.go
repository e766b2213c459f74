package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mittag-dabbas/checkout-service/internal/cartstore"
	"github.com/mittag-dabbas/checkout-service/internal/httpapi"
	"github.com/mittag-dabbas/checkout-service/internal/notifier"
	"github.com/mittag-dabbas/checkout-service/internal/provider"
	"github.com/mittag-dabbas/checkout-service/internal/publisher"
	"github.com/mittag-dabbas/checkout-service/internal/repository"
	"github.com/mittag-dabbas/checkout-service/internal/service"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "main").Logger()

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file found, using process environment")
	}

	logger.Info().Msg("checkout service starting...")

	// HTTP
	httpPort := getEnv("HTTP_PORT", "8080")
	requestTimeout := 30 * time.Second
	shutdownTimeout := 10 * time.Second

	// Postgres
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "checkout")
	migrationsPath := getEnv("MIGRATIONS_PATH", "./internal/repository/migrations")

	port, err := strconv.Atoi(dbPort)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid DB_PORT")
	}

	creds := &repository.Credentials{
		Host:              dbHost,
		Port:              port,
		User:              dbUser,
		Password:          dbPass,
		DBName:            dbName,
		MigrationsDirPath: migrationsPath,
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Info().Msg("database migrations completed")

	// Mongo holds the weekly carts
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDB := getEnv("MONGO_DATABASE", "checkout")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := cartstore.ConnectMongoDB(ctx, mongoURI, mongoDB)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}

	// Redis caches cart reads
	redisClient := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()

	store := cartstore.NewStore(
		cartstore.NewMongoRepository(db),
		cartstore.NewRedisCache(redisClient),
	)

	// Payment provider
	providerClient := provider.NewClient(
		getEnv("PROVIDER_BASE_URL", "https://api.payment.example.com"),
		os.Getenv("PROVIDER_API_KEY"),
		10*time.Second,
	)

	checkoutService := service.NewCheckoutService(repo, store, providerClient, service.Config{
		Currency:      getEnv("CURRENCY", "EUR"),
		SuccessURL:    getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
		CancelURL:     getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
		WebhookSecret: os.Getenv("PROVIDER_WEBHOOK_SECRET"),
	})

	// Background workers
	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	poller := publisher.NewOutboxPoller(repo, brokers...)
	go poller.Run(workerCtx)

	mailer := notifier.NewMailer(
		getEnv("MAIL_GATEWAY_URL", "http://localhost:8090"),
		os.Getenv("MAIL_GATEWAY_API_KEY"),
		os.Getenv("ADMIN_EMAIL"),
		10*time.Second,
	)
	consumer := notifier.NewConsumer(mailer, brokers...)
	defer consumer.Close()
	go consumer.Run(workerCtx)

	router := httpapi.NewRouter(store, checkoutService, requestTimeout)

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", httpPort).Msg("checkout service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down checkout service...")
	stopWorkers()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("checkout service stopped")
}
