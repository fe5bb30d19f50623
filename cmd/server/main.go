package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eshop/internal/config"
	"eshop/internal/database"
	"eshop/internal/handlers"
	"eshop/internal/kafka"
	"eshop/internal/logger"
	"eshop/internal/models"
	"eshop/internal/redis"
	"eshop/internal/router"
	"eshop/internal/services"
	"eshop/internal/storage"

	"github.com/google/uuid"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	newMediaStorage  = storage.New
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	handler  http.Handler
	server   *http.Server
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting eshop server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	app.shutdown(ctx)
	app.log.Info("Server exited")
}

// shutdown останавливает сервер и закрывает внешние подключения
func (a *application) shutdown(ctx context.Context) {
	if err := a.consumer.Stop(); err != nil {
		a.log.WithError(err).Warn("Kafka consumer stop failed")
	}
	stats := a.consumer.Stats()
	a.log.WithFields(map[string]interface{}{
		"processed": stats.Processed,
		"failed":    stats.Failed,
		"skipped":   stats.Skipped,
	}).Info("Kafka consumer stopped")

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = a.producer.Close()
	_ = a.redis.Close()
	_ = a.db.Close()
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := newLogger(&cfg.Logger)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.Database.RunMigrations {
		if err := db.Migrate(log); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db migrate: %w", err)
		}
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	mediaStorage, err := newMediaStorage(&cfg.Media)
	if err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("media storage: %w", err)
	}

	var media services.MediaStorage
	var mediaHealth handlers.MediaHealth
	if mediaStorage != nil {
		media = mediaStorage
		mediaHealth = mediaStorage
	} else {
		log.Warn("Media storage is not configured, image uploads are disabled")
	}
	mediaService := services.NewMediaService(media, log, &cfg.Media)

	tokens := services.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	userService := services.NewUserService(db, log)
	authService := services.NewAuthService(db, log, tokens, userService)
	productService := services.NewProductService(db, log)
	categoryService := services.NewCategoryService(db, log)
	ratingService := services.NewRatingService(db, log)
	cartService := services.NewCartService(db, log, productService)
	wishlistService := services.NewWishlistService(db, log, productService)
	historyService := services.NewSearchHistoryService(db, log)
	orderService := services.NewOrderService(db, log)
	analyticsService := services.NewAnalyticsService(db, log, &cfg.Analytics)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit)

	h := router.Handlers{
		Health:        handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck).WithMedia(mediaHealth),
		Auth:          handlers.NewAuthHandler(authService, log),
		Users:         handlers.NewUserHandler(userService, mediaService, log),
		Cart:          handlers.NewCartHandler(cartService, wishlistService, log),
		SearchHistory: handlers.NewSearchHistoryHandler(historyService, log),
		Products:      handlers.NewProductHandler(productService, historyService, mediaService, producer, log),
		Categories:    handlers.NewCategoryHandler(categoryService, log),
		Ratings:       handlers.NewRatingHandler(ratingService, producer, log),
		Orders:        handlers.NewOrderHandler(orderService, producer, log),
		Analytics:     handlers.NewAnalyticsHandler(analyticsService, log, &cfg.Analytics),
		Uploads:       handlers.NewUploadHandler(mediaService, log),
		RateLimit:     handlers.NewRateLimitHandler(rateLimiter, log),
	}
	authMiddleware := handlers.NewAuthMiddleware(authService, log)

	registerEventHandlers(consumer, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	handler := router.New(h, authMiddleware, rateLimiter, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		handler:  handler,
		server:   server,
	}, nil
}

// registerEventHandlers регистрирует обработчики событий Kafka
func registerEventHandlers(consumer *kafka.Consumer, log *logger.Logger) {
	events := log.Component("events")

	consumer.RegisterHandler(models.EventTypeOrderPlaced, func(ctx context.Context, event *models.Event) error {
		events.WithField("event_id", event.ID).Info("Processing order placed event")
		return nil
	})

	consumer.RegisterHandler(models.EventTypeOrderStatusChanged, func(ctx context.Context, event *models.Event) error {
		events.WithField("event_id", event.ID).Info("Processing order status changed event")
		return nil
	})

	catalogEvent := func(ctx context.Context, event *models.Event) error {
		productID, err := eventProductID(event)
		if err != nil {
			return err
		}
		events.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
			"product_id": productID,
		}).Info("Processing catalog event")
		return nil
	}
	consumer.RegisterHandler(models.EventTypeProductCreated, catalogEvent)
	consumer.RegisterHandler(models.EventTypeProductUpdated, catalogEvent)
	consumer.RegisterHandler(models.EventTypeProductDeleted, catalogEvent)
	consumer.RegisterHandler(models.EventTypeRatingSubmitted, catalogEvent)
}

// eventProductID достает product_id из полезной нагрузки события
func eventProductID(event *models.Event) (uuid.UUID, error) {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode event data: %w", err)
	}

	var payload struct {
		ProductID uuid.UUID `json:"product_id"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode event data: %w", err)
	}
	if payload.ProductID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("event %s has no product_id", event.ID)
	}
	return payload.ProductID, nil
}
