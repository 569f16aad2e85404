package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	configs "verification_service/config"
	"verification_service/internal/app"
	"verification_service/internal/cache"
	"verification_service/internal/events"
	"verification_service/internal/repository"
	"verification_service/internal/server/verification_http"
	"verification_service/internal/service"
	"verification_service/pkg/db"
	"verification_service/pkg/kafka"
	"verification_service/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	log := logger.New()
	defer func() { _ = log.Sync() }()

	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig := db.Config{
		Host:           cfg.DB.Host,
		Port:           cfg.DB.Port,
		User:           cfg.DB.User,
		Password:       cfg.DB.Password,
		DBName:         cfg.DB.DBName,
		SSLMode:        cfg.DB.SSLMode,
		MigrationsPath: cfg.DB.MigrationsPath,
	}

	pg, err := db.NewPostgres(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	allocationRepo := repository.NewAllocationRepository(pg.DB())
	verificationRepo := repository.NewVerificationRepository(pg.DB())

	gradingClient := app.NewGradingClient(
		cfg.Services.GradingService.Address,
		cfg.Services.GradingService.Timeout,
	)
	userClient := app.NewUserClient(
		cfg.Services.UserService.Address,
		cfg.Services.UserService.Timeout,
	)

	kafkaProducer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer kafkaProducer.Close()

	redisConn := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
	redisCache := cache.NewRedisCache(redisConn, "verification:")

	verificationService := service.NewVerificationService(verificationRepo, allocationRepo, redisCache, log)
	allocationService := service.NewAllocationService(allocationRepo, kafkaProducer, log)
	searchService := service.NewSearchService(userClient)
	backupService := service.NewBackupService(verificationRepo, allocationRepo, verificationService, redisCache, log)

	handler := verification_http.NewVerificationHandler(
		verificationService,
		allocationService,
		searchService,
		backupService,
		redisCache,
		log,
	)

	server := verification_http.NewServer(cfg.HTTP.Address, handler, log)

	kafkaConsumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topics:  cfg.Kafka.Topics,
	})
	defer kafkaConsumer.Close()

	consumer := events.NewConsumer(
		kafkaConsumer,
		gradingClient,
		allocationRepo,
		verificationService,
		cfg.Features.VerificationEnabled,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.Run(ctx)

	go func() {
		log.Infof("Starting HTTP server on %s", cfg.HTTP.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Failed to shut down server: %v", err)
	}
	log.Info("Server stopped")
}
