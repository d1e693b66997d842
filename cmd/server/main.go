package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookmarket-service/config"
	"bookmarket-service/internal/api"
	"bookmarket-service/internal/broker"
	"bookmarket-service/internal/models"
	"bookmarket-service/internal/redisclient"
	"bookmarket-service/internal/service"
	"bookmarket-service/internal/session"
	"bookmarket-service/internal/store"
	"bookmarket-service/internal/store/memstore"
	"bookmarket-service/internal/util"
	"bookmarket-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting bookmarket service", zap.String("store", cfg.Database.Driver))

	tp, err := util.InitTracer("bookmarket-service", cfg.Observ.JaegerEndpoint, cfg.Observ.SampleRatio)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	var (
		runner    store.Runner
		sessions  service.SessionStore
		cache     service.BookCache
		publisher service.EventPublisher = service.NopPublisher
		checks                           = map[string]api.Pinger{}
	)

	switch cfg.Database.Driver {
	case config.StoreDriverMemory:
		mem := memstore.New()
		seedUsers(mem, logger)
		runner = mem
		sessions = session.NewMemoryStore()
		logger.Warn("Using in-memory store; data is lost on exit")

	case config.StoreDriverPostgres:
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Info("Database connected")
		runner = db
		checks["postgres"] = db

		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.BookTTL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		logger.Info("Redis connected")
		sessions = redisClient
		cache = redisClient
		checks["redis"] = redisClient

	default:
		log.Fatalf("Unknown STORE_DRIVER %q", cfg.Database.Driver)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var catalogWorker *worker.CatalogWorker
	if cfg.Kafka.Enabled && cache != nil {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicMarketEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicMarketEvents))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicMarketEvents, cfg.Kafka.ConsumerGroup)
		catalogWorker = worker.NewCatalogWorker(consumer, service.NewCatalogSync(runner, cache))
		go func() {
			if err := catalogWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Catalog worker error", zap.Error(err))
			}
		}()
	}

	services := api.Services{
		Auth:           service.NewAuthService(runner, sessions, cfg.Session.TTL),
		Submissions:    service.NewSubmissionService(runner, publisher),
		Orders:         service.NewOrderService(runner, cache, publisher),
		Catalog:        service.NewCatalogService(runner, cache, publisher),
		Cart:           service.NewCartService(runner),
		PaymentMethods: service.NewPaymentMethodService(runner),
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	handler := api.NewHandler(services, checks)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if catalogWorker != nil {
		if err := catalogWorker.Stop(); err != nil {
			logger.Warn("Error stopping catalog worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// seedUsers creates one staff and one customer account for local runs
func seedUsers(mem *memstore.Store, logger *zap.Logger) {
	accounts := []struct {
		email, name, password, role string
	}{
		{"admin@bookmarket.local", "Store Admin", getEnv("SEED_ADMIN_PASSWORD", "admin123"), models.RoleAdmin},
		{"student@bookmarket.local", "Sample Student", getEnv("SEED_CUSTOMER_PASSWORD", "student123"), models.RoleCustomer},
	}
	for _, a := range accounts {
		hash, err := service.HashPassword(a.password)
		if err != nil {
			log.Fatalf("Failed to hash seed password: %v", err)
		}
		u := mem.AddUser(models.User{Email: a.email, Name: a.name, PasswordHash: hash, Role: a.role})
		logger.Info("Seeded user", zap.Int64("user_id", u.ID), zap.String("email", u.Email), zap.String("role", u.Role))
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
