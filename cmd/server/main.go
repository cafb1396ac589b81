package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"

	"github.com/ansovision/mt5-community-api/internal/api"
	"github.com/ansovision/mt5-community-api/internal/config"
	"github.com/ansovision/mt5-community-api/internal/database"
	"github.com/ansovision/mt5-community-api/internal/distributor"
	"github.com/ansovision/mt5-community-api/internal/kafka"
	"github.com/ansovision/mt5-community-api/internal/logger"
	"github.com/ansovision/mt5-community-api/internal/redis"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if cfg.Auth.APIKey == "" {
		log.Fatal().Msg("API_SECRET_KEY must be set")
	}

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(cfg.Database.ConnectionString(), log); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}
	log.Info().Msg("connected to PostgreSQL database")

	// Connect to Redis
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Info().Msg("connected to Redis cache")
	}

	dist := distributor.New(db, log)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create Kafka producer and account-updates consumer
	var producer *kafka.Producer
	var accountConsumer *kafka.AccountConsumer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		defer producer.Close()
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("kafka producer initialized")

		accountConsumer = kafka.NewAccountConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.AccountTopic,
			cfg.Kafka.ConsumerGroup,
			db,
			dist,
			log,
		)
		go func() {
			log.Info().Str("topic", cfg.Kafka.AccountTopic).Str("group", cfg.Kafka.ConsumerGroup).Msg("starting kafka account consumer")
			if err := accountConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("kafka account consumer error")
			}
		}()
	}

	// Set up HTTP handler and routes
	handler := api.NewHandler(db, producer, redisClient, dist, cfg.Account, log)
	router := api.SetupRoutes(handler, cfg.Auth.APIKey, cfg.CORS.AllowedOrigins)

	// Create HTTP server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Str("account_mode", cfg.Account.Mode).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop the Kafka consumer
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	if accountConsumer != nil {
		if err := accountConsumer.Close(); err != nil {
			log.Error().Err(err).Msg("error closing kafka account consumer")
		}
	}

	log.Info().Msg("server stopped")
}

func runMigrations(databaseURL string, log zerolog.Logger) error {
	m, err := migrate.New("file://./db/migrations", databaseURL)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}
	if err == migrate.ErrNoChange {
		log.Info().Msg("no migrations to apply; database is up to date")
	}

	return nil
}
